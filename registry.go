package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DuplicateKeyError means a record with the same video id or slug is
// already in the registry. Callers check uniqueness before appending; the
// flat file has no transactional enforcement of its own.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s: %q", e.Field, e.Value)
}

// Registry is the flat JSON post store shared with the web app. The web
// app reads it for the blog listing and sitemap, so the on-disk shape (a
// single JSON array of records) and the field names are a contract.
type Registry struct {
	path string
}

// NewRegistry wraps the registry document at path. The file may not exist
// yet; that reads as an empty registry.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the registry document location.
func (r *Registry) Path() string {
	return r.path
}

// legacyDocument is the wrapper shape older deployments wrote. Reads
// accept it; writes always produce a bare array.
type legacyDocument struct {
	Posts []PostRecord `json:"posts"`
}

// Load reads every record, newest first. A missing file is an empty
// registry, not an error.
func (r *Registry) Load() ([]PostRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", r.path, err)
	}

	var posts []PostRecord
	if err := json.Unmarshal(data, &posts); err == nil {
		return posts, nil
	}

	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", r.path, err)
	}
	return legacy.Posts, nil
}

// Contains reports whether a post already exists for the video. Older
// records sometimes carried only the video URL, so that is matched too.
func (r *Registry) Contains(videoID string) (bool, error) {
	posts, err := r.Load()
	if err != nil {
		return false, err
	}
	videoID = strings.TrimSpace(videoID)
	for _, p := range posts {
		if strings.TrimSpace(p.VideoID) == videoID {
			return true, nil
		}
		if videoID != "" && strings.Contains(p.YouTubeURL, videoID) {
			return true, nil
		}
	}
	return false, nil
}

// Slugs returns the set of slugs already committed.
func (r *Registry) Slugs() (map[string]bool, error) {
	posts, err := r.Load()
	if err != nil {
		return nil, err
	}
	slugs := make(map[string]bool, len(posts))
	for _, p := range posts {
		slugs[p.Slug] = true
	}
	return slugs, nil
}

// Append commits a new record at the head of the document (newest first).
// It rejects duplicate video ids and slugs, then rewrites the whole file
// atomically so a crash mid-write never corrupts the previous state.
func (r *Registry) Append(record PostRecord) error {
	posts, err := r.Load()
	if err != nil {
		return err
	}

	for _, p := range posts {
		if p.VideoID == record.VideoID {
			return &DuplicateKeyError{Field: "video_id", Value: record.VideoID}
		}
		if p.Slug == record.Slug {
			return &DuplicateKeyError{Field: "slug", Value: record.Slug}
		}
	}

	posts = append([]PostRecord{record}, posts...)
	return r.save(posts)
}

// save writes the document via temp-file-then-rename.
func (r *Registry) save(posts []PostRecord) error {
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing registry temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}
