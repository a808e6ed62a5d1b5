package main

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrNoTranscript means a provider reached the video but it has no
// captions or transcript. This is a normal outcome for many uploads.
var ErrNoTranscript = errors.New("no transcript available")

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// TranscriptSource is one provider in the fallback chain. Try returns the
// transcript text, ErrNoTranscript when the video has none, or another
// error for transport failures.
type TranscriptSource interface {
	Name() TranscriptProvider
	Try(videoID string) (string, error)
}

// VideoMetadataSource can look up a video's title and publish date.
// Lookup is best effort; callers keep their fallbacks on error.
type VideoMetadataSource interface {
	VideoMetadata(videoID string) (VideoEntry, error)
}

// TranscriptFetcher tries providers in preference order and returns the
// first non-empty transcript.
type TranscriptFetcher struct {
	sources  []TranscriptSource
	metadata VideoMetadataSource
}

// NewTranscriptFetcher builds the default chain: the external transcript
// API when a key is configured, then YouTube's own caption tracks.
func NewTranscriptFetcher(apiURL, apiKey string, client *http.Client) *TranscriptFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	f := &TranscriptFetcher{}
	if apiKey != "" {
		ext := &ExternalTranscriptSource{apiURL: apiURL, apiKey: apiKey, client: client}
		f.AddSource(ext)
		f.metadata = ext
	}
	f.AddSource(&CaptionTrackSource{client: client})
	return f
}

// MetadataSource returns the provider able to look up video metadata, or
// nil when none is configured.
func (f *TranscriptFetcher) MetadataSource() VideoMetadataSource {
	return f.metadata
}

// AddSource appends a provider to the end of the chain.
func (f *TranscriptFetcher) AddSource(source TranscriptSource) {
	f.sources = append(f.sources, source)
}

// Fetch runs the chain for one video. A fully exhausted chain yields a
// result with ProviderNone, never an error: missing transcripts are
// expected and the pipeline decides the policy.
func (f *TranscriptFetcher) Fetch(videoID string) TranscriptResult {
	for _, source := range f.sources {
		text, err := tryWithRetry(source, videoID)
		if err != nil {
			if !errors.Is(err, ErrNoTranscript) {
				log.Printf("transcript provider %s failed for %s: %v", source.Name(), videoID, err)
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		return TranscriptResult{VideoID: videoID, Text: strings.TrimSpace(text), Provider: source.Name()}
	}
	return TranscriptResult{VideoID: videoID, Provider: ProviderNone}
}

// tryWithRetry retries a provider once on transport errors. The run is
// hourly via cron, so no backoff is needed.
func tryWithRetry(source TranscriptSource, videoID string) (string, error) {
	text, err := source.Try(videoID)
	if err == nil || errors.Is(err, ErrNoTranscript) {
		return text, err
	}
	return source.Try(videoID)
}

// ExternalTranscriptSource calls a hosted transcript API keyed by a
// secret token (Supadata-compatible query contract).
type ExternalTranscriptSource struct {
	apiURL string
	apiKey string
	client *http.Client
}

func (s *ExternalTranscriptSource) Name() TranscriptProvider {
	return ProviderExternalService
}

func (s *ExternalTranscriptSource) Try(videoID string) (string, error) {
	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	req, err := http.NewRequest(http.MethodGet, s.apiURL, nil)
	if err != nil {
		return "", err
	}

	q := req.URL.Query()
	q.Add("url", videoURL)
	q.Add("api_key", s.apiKey)
	q.Add("text", "true")
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	debugLog("transcript API response for %s: status=%d", videoID, resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoTranscript
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: videoURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", ErrNoTranscript
	}
	return string(body), nil
}

// videoMetadata is the subset of the metadata endpoint response the
// pipeline reads.
type videoMetadata struct {
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}

// VideoMetadata looks up the title and publish date for one video from
// the API's sibling video endpoint.
func (s *ExternalTranscriptSource) VideoMetadata(videoID string) (VideoEntry, error) {
	metaURL := strings.TrimSuffix(s.apiURL, "/transcript") + "/video"

	req, err := http.NewRequest(http.MethodGet, metaURL, nil)
	if err != nil {
		return VideoEntry{}, err
	}

	q := req.URL.Query()
	q.Add("id", videoID)
	q.Add("api_key", s.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return VideoEntry{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VideoEntry{}, &HTTPError{StatusCode: resp.StatusCode, URL: metaURL}
	}

	var meta videoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return VideoEntry{}, fmt.Errorf("parsing video metadata: %w", err)
	}

	entry := VideoEntry{
		ID:    videoID,
		Title: strings.TrimSpace(meta.Title),
		URL:   fmt.Sprintf("https://youtu.be/%s", videoID),
	}
	if raw := strings.TrimSpace(meta.PublishedAt); raw != "" {
		entry.PublishedAt = parsePublished(raw)
		entry.Published = humanDate(entry.PublishedAt)
	}
	return entry, nil
}

// CaptionTrackSource reads the platform's own caption track, preferring
// English variants the way the site always has.
type CaptionTrackSource struct {
	baseURL string
	client  *http.Client
}

var captionLanguages = []string{"en", "en-US", "en-GB"}

func (s *CaptionTrackSource) Name() TranscriptProvider {
	return ProviderCaptions
}

type captionTrack struct {
	Lines []string `xml:"text"`
}

func (s *CaptionTrackSource) Try(videoID string) (string, error) {
	base := s.baseURL
	if base == "" {
		base = "https://video.google.com/timedtext"
	}

	var lastErr error = ErrNoTranscript
	for _, lang := range captionLanguages {
		trackURL := fmt.Sprintf("%s?lang=%s&v=%s", base, lang, videoID)

		resp, err := s.client.Get(trackURL)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = &HTTPError{StatusCode: resp.StatusCode, URL: trackURL}
			continue
		}
		if strings.TrimSpace(string(body)) == "" {
			continue // no track for this language
		}

		var track captionTrack
		if err := xml.Unmarshal(body, &track); err != nil {
			lastErr = fmt.Errorf("parsing caption track: %w", err)
			continue
		}

		parts := make([]string, 0, len(track.Lines))
		for _, line := range track.Lines {
			line = strings.TrimSpace(html.UnescapeString(line))
			if line != "" {
				parts = append(parts, line)
			}
		}
		if len(parts) == 0 {
			continue
		}
		return strings.Join(parts, " "), nil
	}
	return "", lastErr
}
