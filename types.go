package main

import "time"

// VideoEntry is one upload taken from the channel feed.
type VideoEntry struct {
	ID          string
	Title       string
	URL         string
	PublishedAt time.Time
	// Published is the human form shown on the site, e.g. "2 Jan 2026".
	Published string
}

// TranscriptProvider identifies which provider produced a transcript.
type TranscriptProvider string

const (
	ProviderExternalService TranscriptProvider = "external_service"
	ProviderCaptions        TranscriptProvider = "captions"
	ProviderNone            TranscriptProvider = "none"
)

// TranscriptResult is the outcome of the provider chain for one video.
// Text is empty and Provider is ProviderNone when no transcript exists,
// which is a normal outcome, not an error.
type TranscriptResult struct {
	VideoID  string
	Text     string
	Provider TranscriptProvider
}

// Available reports whether a non-empty transcript was found.
func (t TranscriptResult) Available() bool {
	return t.Text != ""
}

// GeneratedArticle is the structured article produced by a writer,
// ready to render into a page template.
type GeneratedArticle struct {
	Title           string
	MetaDescription string
	Category        string
	ReadingTime     string
	PublishedDate   string
	BodyHTML        string
}

// PostRecord is one entry in the post registry. The field names are a
// contract with the web app, which reads the registry for the blog
// listing and sitemap.
type PostRecord struct {
	VideoID       string `json:"video_id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	PublishedAt   string `json:"published_at"`
	PublishedDate string `json:"published_date"`
	UpdatedDate   string `json:"updated_date"`
	ReadingTime   string `json:"reading_time"`
	Category      string `json:"category"`
	Template      string `json:"template"`
	YouTubeURL    string `json:"youtube_url"`
	Source        string `json:"source"`
}

// Outcome is the terminal state of a pipeline run.
type Outcome string

const (
	OutcomePublished  Outcome = "published"
	OutcomeNoNewVideo Outcome = "no_new_video"
	OutcomeSkipped    Outcome = "skipped"
)

// RunResult describes how a pipeline run ended.
type RunResult struct {
	Outcome Outcome
	Post    *PostRecord
	// Reason is set for skips, e.g. "no transcript" or a score report.
	Reason string
}
