package main

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Narrow views of the collaborators so tests can swap in fakes.

type feedSource interface {
	Latest(channelID string, max int) ([]VideoEntry, error)
}

type transcriptResolver interface {
	Fetch(videoID string) TranscriptResult
}

type postPublisher interface {
	CheckConsistency(prune bool) error
	Publish(article *GeneratedArticle, entry VideoEntry) (*PostRecord, error)
}

type runNotifier interface {
	Notify(text string)
	NotifyNewPost(post *PostRecord, siteBaseURL string)
}

// Pipeline sequences one run: feed → candidate → transcript → article →
// SEO gate → publish → notify. At most one new post per run.
type Pipeline struct {
	feed        feedSource
	registry    *Registry
	transcripts transcriptResolver
	// generated-mode writer; nil when no generation credential is set.
	llm      ArticleWriter
	fallback ArticleWriter
	scorer   *SEOScorer
	publisher postPublisher
	notifier  runNotifier
	// best-effort title/date lookup for --video; nil without an API key.
	metadata VideoMetadataSource
	env      *Env
	settings *Settings

	Force        bool
	PruneOrphans bool
}

func NewPipeline(cfg *Config, feed feedSource, registry *Registry, transcripts transcriptResolver,
	llm, fallback ArticleWriter, publisher postPublisher, notifier runNotifier) *Pipeline {
	return &Pipeline{
		feed:        feed,
		registry:    registry,
		transcripts: transcripts,
		llm:         llm,
		fallback:    fallback,
		scorer:      NewSEOScorer(),
		publisher:   publisher,
		notifier:    notifier,
		env:         cfg.Env,
		settings:    cfg.Settings,
	}
}

// SetMetadataSource enables title and date lookup for videos named with
// --video instead of labeling the post with the raw id.
func (p *Pipeline) SetMetadataSource(source VideoMetadataSource) {
	p.metadata = source
}

var videoIDRe = regexp.MustCompile(`(?:v=|youtu\.be/|/embed/)([A-Za-z0-9_-]{11})`)
var bareVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoArg extracts a video id from a raw id or a YouTube URL.
func ParseVideoArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if m := videoIDRe.FindStringSubmatch(arg); m != nil {
		return m[1], nil
	}
	if bareVideoIDRe.MatchString(arg) {
		return arg, nil
	}
	return "", fmt.Errorf("invalid video id or URL: %q", arg)
}

// Run executes the pipeline once. channelID drives the feed scan; a
// non-empty videoArg bypasses the feed and processes that one video.
func (p *Pipeline) Run(channelID, videoArg string) (*RunResult, error) {
	// A run that died between the page write and the registry append
	// leaves an orphaned page; refuse to continue past it silently.
	if err := p.publisher.CheckConsistency(p.PruneOrphans); err != nil {
		return nil, err
	}

	entries, err := p.candidates(channelID, videoArg)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		log.Printf("no videos found in feed")
		return &RunResult{Outcome: OutcomeNoNewVideo}, nil
	}

	entry, found, err := p.selectCandidate(entries)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Printf("no new videos to post")
		return &RunResult{Outcome: OutcomeNoNewVideo}, nil
	}

	log.Printf("→ Candidate: %s (%s)", entry.Title, entry.ID)

	transcript := p.transcripts.Fetch(entry.ID)
	if !transcript.Available() {
		// Policy: never publish a contentless post. Skip and report.
		reason := fmt.Sprintf("Auto-blog skipped %s (%s): no transcript available", entry.Title, entry.ID)
		log.Printf("✗ %s", reason)
		p.notifier.Notify(reason)
		return &RunResult{Outcome: OutcomeSkipped, Reason: "no transcript"}, nil
	}
	log.Printf("→ Transcript resolved via %s (%d words)", transcript.Provider, countWords(transcript.Text))

	article, templated, err := p.generate(entry, transcript.Text)
	if err != nil {
		return nil, err
	}

	article, ok, report := p.seoGate(entry, transcript.Text, article, templated)
	if !ok {
		log.Printf("✗ %s", report)
		p.notifier.Notify(report)
		return &RunResult{Outcome: OutcomeSkipped, Reason: report}, nil
	}

	post, err := p.publisher.Publish(article, entry)
	if err != nil {
		return nil, err
	}

	p.notifier.NotifyNewPost(post, strings.TrimRight(p.env.SiteBaseURL, "/"))
	return &RunResult{Outcome: OutcomePublished, Post: post}, nil
}

// candidates resolves the entry window: the feed scan, or the single
// video named on the command line.
func (p *Pipeline) candidates(channelID, videoArg string) ([]VideoEntry, error) {
	if videoArg != "" {
		videoID, err := ParseVideoArg(videoArg)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		entry := VideoEntry{
			ID:          videoID,
			Title:       videoID,
			URL:         fmt.Sprintf("https://youtu.be/%s", videoID),
			PublishedAt: now,
			Published:   humanDate(now),
		}
		if p.metadata != nil {
			// Best effort: the raw id stands in when the lookup fails.
			meta, err := p.metadata.VideoMetadata(videoID)
			if err != nil {
				log.Printf("video metadata lookup failed for %s: %v", videoID, err)
			} else {
				if meta.Title != "" {
					entry.Title = meta.Title
				}
				if !meta.PublishedAt.IsZero() {
					entry.PublishedAt = meta.PublishedAt
					entry.Published = meta.Published
				}
			}
		}
		return []VideoEntry{entry}, nil
	}
	return p.feed.Latest(channelID, p.settings.FeedMaxResults)
}

// selectCandidate scans entries newest-first and picks the first with no
// registry record.
func (p *Pipeline) selectCandidate(entries []VideoEntry) (VideoEntry, bool, error) {
	for _, entry := range entries {
		exists, err := p.registry.Contains(entry.ID)
		if err != nil {
			return VideoEntry{}, false, err
		}
		if !exists {
			return entry, true, nil
		}
	}
	return VideoEntry{}, false, nil
}

// generate prefers the LLM writer and degrades to the templated writer on
// any generation failure: an outage or a malformed response reduces
// quality, it never stops the run. The fallback never fails. The second
// result reports whether the templated writer produced the article.
func (p *Pipeline) generate(entry VideoEntry, transcript string) (*GeneratedArticle, bool, error) {
	if p.llm != nil {
		article, err := p.llm.Write(entry, transcript)
		if err == nil {
			return article, false, nil
		}
		log.Printf("generation failed, falling back to templated draft: %v", err)
	}
	article, err := p.fallback.Write(entry, transcript)
	return article, true, err
}

// seoGate scores the draft and retries generation when it falls short.
// Returns the article to publish, whether to publish, and the skip report
// otherwise. Templated drafts are never gated: the deterministic path
// must stay functional without paid services.
func (p *Pipeline) seoGate(entry VideoEntry, transcript string, article *GeneratedArticle, templated bool) (*GeneratedArticle, bool, string) {
	keyword := primaryKeyword(entry.Title)
	score, breakdown := p.scorer.Score(article.BodyHTML, article.Title, article.MetaDescription, keyword)

	if templated {
		log.Printf("→ SEO score %d (templated draft, not gated)", score)
		if words := countWords(p.scorer.plainText(article.BodyHTML)); words < p.env.MinWords {
			p.notifier.Notify(fmt.Sprintf("Auto-blog draft for %s is %d words (<%d) and needs human expansion.", entry.ID, words, p.env.MinWords))
		}
		return article, true, ""
	}

	for attempts := 0; score < p.env.PublishThreshold && attempts < 2; attempts++ {
		log.Printf("SEO score %d below threshold %d; regenerating (attempt %d)", score, p.env.PublishThreshold, attempts+1)
		regenerated, err := p.llm.Write(entry, transcript)
		if err != nil {
			log.Printf("regeneration failed: %v", err)
			break
		}
		article = regenerated
		score, breakdown = p.scorer.Score(article.BodyHTML, article.Title, article.MetaDescription, keyword)
	}

	if p.Force || score >= p.env.PublishThreshold {
		log.Printf("→ SEO score %d/%d", score, p.env.PublishThreshold)
		return article, true, ""
	}

	lines := []string{
		fmt.Sprintf("Auto-blog DID NOT publish: %s (%s)", entry.Title, entry.ID),
		fmt.Sprintf("Score: %d/%d", score, p.env.PublishThreshold),
		"Breakdown:",
	}
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %d", k, breakdown[k]))
	}
	return article, false, strings.Join(lines, "\n")
}
