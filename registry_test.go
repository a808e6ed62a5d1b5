package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testRecord(videoID, slug string) PostRecord {
	return PostRecord{
		VideoID:       videoID,
		Slug:          slug,
		Title:         "Test Title",
		Description:   "A description",
		PublishedAt:   "2026-02-11T12:34:56Z",
		PublishedDate: "11 Feb 2026",
		UpdatedDate:   "11 Feb 2026",
		ReadingTime:   "5 min read",
		Category:      "CRO",
		Template:      "blog_" + slug + ".html",
		YouTubeURL:    "https://youtu.be/" + videoID,
		Source:        "youtube",
	}
}

func TestLoadMissingFile(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "blog_posts.json"))

	posts, err := r.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Load() on missing file = %d posts, want 0", len(posts))
	}
}

func TestAppendWritesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog_posts.json")
	r := NewRegistry(path)

	if err := r.Append(testRecord("v1", "old-video")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// The serving component depends on the document being a bare JSON
	// array with these field names.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading registry: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("registry is not a JSON array: %v", err)
	}
	for _, field := range []string{"video_id", "slug", "title", "published_at"} {
		if _, ok := raw[0][field]; !ok {
			t.Errorf("record missing contract field %q", field)
		}
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestAppendNewestFirst(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "blog_posts.json"))

	if err := r.Append(testRecord("v1", "old-video")); err != nil {
		t.Fatalf("Append(v1) error = %v", err)
	}
	if err := r.Append(testRecord("v2", "new-video")); err != nil {
		t.Fatalf("Append(v2) error = %v", err)
	}

	posts, err := r.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Load() = %d posts, want 2", len(posts))
	}
	if posts[0].VideoID != "v2" {
		t.Errorf("first post = %q, want newest (v2) first", posts[0].VideoID)
	}
}

func TestAppendDuplicate(t *testing.T) {
	tests := []struct {
		name      string
		record    PostRecord
		wantField string
	}{
		{"duplicate video id", testRecord("v1", "other-slug"), "video_id"},
		{"duplicate slug", testRecord("v9", "old-video"), "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(filepath.Join(t.TempDir(), "blog_posts.json"))
			if err := r.Append(testRecord("v1", "old-video")); err != nil {
				t.Fatalf("seed Append() error = %v", err)
			}

			err := r.Append(tt.record)
			var dup *DuplicateKeyError
			if !errors.As(err, &dup) {
				t.Fatalf("error = %v, want *DuplicateKeyError", err)
			}
			if dup.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", dup.Field, tt.wantField)
			}

			posts, _ := r.Load()
			if len(posts) != 1 {
				t.Errorf("registry has %d posts after rejected append, want 1", len(posts))
			}
		})
	}
}

func TestLoadLegacyWrapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog_posts.json")
	legacy := `{"posts": [{"video_id": "v1", "slug": "old-video", "title": "Old Video", "published_at": "2026-01-01T00:00:00Z"}]}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(path)
	posts, err := r.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(posts) != 1 || posts[0].VideoID != "v1" {
		t.Errorf("legacy wrapper not read: %+v", posts)
	}

	// The first write migrates the document to the bare-array shape.
	if err := r.Append(testRecord("v2", "new-video")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	var arr []PostRecord
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Errorf("document did not migrate to a JSON array: %v", err)
	}
}

func TestContains(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "blog_posts.json"))
	record := testRecord("v1", "old-video")
	record.YouTubeURL = "https://www.youtube.com/watch?v=v1legacyURL"
	if err := r.Append(record); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		videoID string
		want    bool
	}{
		{"by video id", "v1", true},
		{"by youtube url", "v1legacyURL", true},
		{"absent", "v2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Contains(tt.videoID)
			if err != nil {
				t.Fatalf("Contains() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.videoID, got, tt.want)
			}
		})
	}
}

func TestSlugs(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "blog_posts.json"))
	r.Append(testRecord("v1", "old-video"))
	r.Append(testRecord("v2", "new-video"))

	slugs, err := r.Slugs()
	if err != nil {
		t.Fatalf("Slugs() error = %v", err)
	}
	if !slugs["old-video"] || !slugs["new-video"] {
		t.Errorf("Slugs() = %v, missing expected slugs", slugs)
	}
}
