package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/yuin/goldmark"
)

// GenerationFormatError means the model response could not be parsed into
// the required article structure. The pipeline recovers by falling back to
// the templated writer; a malformed response never blocks publishing.
type GenerationFormatError struct {
	Err error
}

func (e *GenerationFormatError) Error() string {
	return fmt.Sprintf("generation format error: %v", e.Err)
}

func (e *GenerationFormatError) Unwrap() error {
	return e.Err
}

// ArticleWriter turns a video and its transcript into an article.
type ArticleWriter interface {
	Write(entry VideoEntry, transcript string) (*GeneratedArticle, error)
}

// articleSpec is the structured output contract with the writer agent.
type articleSpec struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Sections    []struct {
		Heading string `json:"heading"`
		BodyMD  string `json:"body_md"`
	} `json:"sections"`
	Checklist []string `json:"checklist"`
	ClosingMD string   `json:"closing_md"`
}

var wordRe = regexp.MustCompile(`\w+`)

func countWords(text string) int {
	return len(wordRe.FindAllString(text, -1))
}

// estimateReadingTime returns the site's reading-time label, e.g. "5 min read".
func estimateReadingTime(text string, wpm int) string {
	if wpm < 1 {
		wpm = 200
	}
	minutes := int(float64(countWords(text))/float64(wpm) + 0.5)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// markdownToHTML renders a markdown fragment for the blog template.
func markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// LLMWriter generates articles with the Anthropic writer agent using
// schema-constrained output.
type LLMWriter struct {
	apiKey string
	config *Config
}

// NewLLMWriter creates the generated-mode writer. Requires an API key.
func NewLLMWriter(apiKey string, config *Config) (*LLMWriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("writer requires an API key")
	}
	return &LLMWriter{apiKey: apiKey, config: config}, nil
}

func (w *LLMWriter) Write(entry VideoEntry, transcript string) (*GeneratedArticle, error) {
	limited := limitContentTokens(transcript, w.config.Settings.Writer.ContentMaxTokens)

	prompt := fmt.Sprintf(`Video title: %s
Video URL: %s

Transcript:
%s`, entry.Title, entry.URL, limited)

	settings := types.RequestSettings{
		Model:       w.config.Settings.Writer.Model,
		MaxTokens:   w.config.Settings.Writer.MaxTokens,
		Temperature: w.config.Settings.Writer.Temperature,
	}
	response, err := anthropic.PromptWithSettings(w.config.GetWriterSystemPrompt(), prompt,
		w.config.GetArticleSchema(), w.apiKey, settings)
	if err != nil {
		return nil, fmt.Errorf("writer agent failed: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, &GenerationFormatError{Err: fmt.Errorf("no content in writer response")}
	}

	spec, err := parseArticleSpec(response.Content[0].Text)
	if err != nil {
		return nil, err
	}

	if spec.Title == "" {
		spec.Title = entry.Title
	}
	if spec.Category == "" {
		spec.Category = w.config.Settings.DefaultCategory
	}

	bodyHTML, err := markdownToHTML(specToMarkdown(spec))
	if err != nil {
		return nil, err
	}

	log.Printf("✓ Generated: %s | Category: %s | %d sections", spec.Title, spec.Category, len(spec.Sections))

	return &GeneratedArticle{
		Title:           spec.Title,
		MetaDescription: spec.Description,
		Category:        spec.Category,
		ReadingTime:     estimateReadingTime(readingSource(transcript, bodyHTML), w.config.Settings.WordsPerMinute),
		PublishedDate:   entry.Published,
		BodyHTML:        bodyHTML,
	}, nil
}

// parseArticleSpec decodes and validates the model's structured output.
// Any shape problem surfaces as GenerationFormatError so the caller can
// fall back to the templated writer.
func parseArticleSpec(raw string) (*articleSpec, error) {
	var spec articleSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, &GenerationFormatError{Err: fmt.Errorf("parsing article JSON: %w", err)}
	}
	if err := validateSpec(&spec); err != nil {
		return nil, &GenerationFormatError{Err: err}
	}
	return &spec, nil
}

// validateSpec enforces the structural contract before anything renders.
func validateSpec(spec *articleSpec) error {
	if strings.TrimSpace(spec.Description) == "" {
		return fmt.Errorf("missing description")
	}
	if len(spec.Sections) < 3 || len(spec.Sections) > 8 {
		return fmt.Errorf("expected 3-8 sections, got %d", len(spec.Sections))
	}
	for i, s := range spec.Sections {
		if strings.TrimSpace(s.Heading) == "" || strings.TrimSpace(s.BodyMD) == "" {
			return fmt.Errorf("section %d is incomplete", i+1)
		}
	}
	if len(spec.Checklist) == 0 {
		return fmt.Errorf("missing implementation checklist")
	}
	return nil
}

// specToMarkdown flattens the structured article into one markdown body.
func specToMarkdown(spec *articleSpec) string {
	var b strings.Builder
	for _, s := range spec.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", strings.TrimSpace(s.Heading), strings.TrimSpace(s.BodyMD))
	}
	if len(spec.Checklist) > 0 {
		b.WriteString("## Implementation checklist\n\n")
		for _, item := range spec.Checklist {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	if closing := strings.TrimSpace(spec.ClosingMD); closing != "" {
		b.WriteString(closing)
		b.WriteString("\n")
	}
	return b.String()
}

// limitContentTokens limits content to approximately N tokens (4 chars ≈ 1 token).
func limitContentTokens(content string, maxTokens int) string {
	if maxTokens < 1 {
		return content
	}
	maxChars := maxTokens * 4
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars] + "..."
}

// readingSource picks the text the reading-time estimate is based on: the
// transcript when available, otherwise the rendered body.
func readingSource(transcript, bodyHTML string) string {
	if strings.TrimSpace(transcript) != "" {
		return transcript
	}
	return bodyHTML
}

// TemplateWriter builds a deterministic draft from the video title and
// transcript with no external calls. It always succeeds, so the pipeline
// stays functional without paid services.
type TemplateWriter struct {
	config *Config
}

func NewTemplateWriter(config *Config) *TemplateWriter {
	return &TemplateWriter{config: config}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func (w *TemplateWriter) Write(entry VideoEntry, transcript string) (*GeneratedArticle, error) {
	description := deriveDescription(transcript, entry.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", description)
	b.WriteString(`## Key points

- Run qualitative research (surveys, recordings, user tests) before you ship ideas.
- Use funnel + segmentation to find where the leak is (device, region, channel).
- Prioritize objectively and keep tests continuously running.
- Write copy that answers objections and differentiates.
- Choose big swings vs small iterations based on site maturity.

## Implementation checklist

- Run qualitative research: surveys and session recordings
- Segment funnels by device and channel
- Prioritize tests using ICE or RICE
- Optimize copy for clarity and trust
- Measure impact and learn iteratively

Want help implementing? We can audit your funnel and build a prioritized
roadmap. [Hire Sparksmetrics](/schedule-a-call/) or claim a free CRO audit.
`)

	bodyHTML, err := markdownToHTML(b.String())
	if err != nil {
		return nil, err
	}

	return &GeneratedArticle{
		Title:           strings.TrimSpace(entry.Title),
		MetaDescription: description,
		Category:        w.config.Settings.DefaultCategory,
		ReadingTime:     estimateReadingTime(readingSource(transcript, bodyHTML), w.config.Settings.WordsPerMinute),
		PublishedDate:   entry.Published,
		BodyHTML:        bodyHTML,
	}, nil
}

// deriveDescription builds a meta description from the transcript opening,
// clamped to 160 chars the way the site always has. Clamps count runes so
// a multi-byte character is never split.
func deriveDescription(transcript, title string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(transcript, " "))
	if cleaned == "" {
		return fmt.Sprintf("Insights from: %s", strings.TrimSpace(title))
	}
	short := []rune(cleaned)
	if len(short) > 700 {
		short = []rune(strings.TrimSpace(string(short[:700])))
	}
	if len(short) > 160 {
		return string(short[:157]) + "..."
	}
	return string(short)
}
