package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"
	feedUserAgent      = "SparksmetricsBlogBot/1.0"
)

// FeedUnavailableError means the channel feed could not be fetched or
// parsed. The pipeline treats it as fatal for the run; cron retries later.
type FeedUnavailableError struct {
	URL string
	Err error
}

func (e *FeedUnavailableError) Error() string {
	return fmt.Sprintf("feed unavailable: %s: %v", e.URL, e.Err)
}

func (e *FeedUnavailableError) Unwrap() error {
	return e.Err
}

// FeedReader fetches a channel's public upload feed. No API key needed.
type FeedReader struct {
	baseURL string
	client  *http.Client
}

// NewFeedReader creates a reader against the public YouTube feed endpoint.
func NewFeedReader(client *http.Client) *FeedReader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FeedReader{
		baseURL: defaultFeedBaseURL,
		client:  client,
	}
}

// atomFeed mirrors the subset of the Atom envelope the pipeline reads.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string   `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string   `xml:"title"`
	Link      atomLink `xml:"link"`
	Published string   `xml:"published"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

// Latest returns up to max entries from the channel feed, newest first.
// The feed's native window is ~15 entries; there is no pagination.
func (r *FeedReader) Latest(channelID string, max int) ([]VideoEntry, error) {
	feedURL := fmt.Sprintf("%s?channel_id=%s", r.baseURL, url.QueryEscape(strings.TrimSpace(channelID)))

	req, err := http.NewRequest(http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FeedUnavailableError{URL: feedURL, Err: err}
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FeedUnavailableError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FeedUnavailableError{URL: feedURL, Err: fmt.Errorf("bad status code: %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FeedUnavailableError{URL: feedURL, Err: err}
	}

	var feed atomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, &FeedUnavailableError{URL: feedURL, Err: fmt.Errorf("parsing feed XML: %w", err)}
	}

	debugLog("feed returned %d entries for channel %s", len(feed.Entries), channelID)

	if max < 1 {
		max = 1
	}

	videos := make([]VideoEntry, 0, max)
	for _, entry := range feed.Entries {
		if len(videos) >= max {
			break
		}
		videoID := strings.TrimSpace(entry.VideoID)
		if videoID == "" {
			continue
		}

		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = videoID
		}

		href := strings.TrimSpace(entry.Link.Href)
		if href == "" {
			href = fmt.Sprintf("https://youtu.be/%s", videoID)
		}

		videos = append(videos, VideoEntry{
			ID:          videoID,
			Title:       title,
			URL:         href,
			PublishedAt: parsePublished(entry.Published),
			Published:   humanDate(parsePublished(entry.Published)),
		})
	}

	return videos, nil
}

func parsePublished(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now().UTC()
}

// humanDate formats a timestamp the way the site shows it, e.g. "2 Jan 2026".
func humanDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}
