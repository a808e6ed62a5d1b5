package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
)

// PublishInconsistentError means the page resource and the registry
// disagree: either a registry append failed after the page was written, or
// a previous run left orphaned pages behind. This is surfaced loudly
// because reconciliation is manual.
type PublishInconsistentError struct {
	Pages []string
	Err   error
}

func (e *PublishInconsistentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish inconsistent: page(s) %v written without registry record: %v", e.Pages, e.Err)
	}
	return fmt.Sprintf("publish inconsistent: orphaned page(s) with no registry record: %v", e.Pages)
}

func (e *PublishInconsistentError) Unwrap() error {
	return e.Err
}

// Publisher renders articles into page templates and commits them to the
// post registry.
type Publisher struct {
	registry *Registry
	pagesDir string
	pageTmpl string
	dryRun   bool
}

func NewPublisher(registry *Registry, pagesDir, pageTmpl string) *Publisher {
	return &Publisher{
		registry: registry,
		pagesDir: pagesDir,
		pageTmpl: pageTmpl,
	}
}

// SetDryRun makes Publish render and log without writing anything.
func (p *Publisher) SetDryRun(dryRun bool) {
	p.dryRun = dryRun
}

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)
)

// Slugify normalizes a title into a URL-safe slug, capped at 80 chars.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, "&", " and ")
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugSpaceRe.ReplaceAllString(strings.TrimSpace(slug), "-")
	slug = slugCollapseRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		return fmt.Sprintf("post-%d", time.Now().Unix())
	}
	return slug
}

// uniqueSlug disambiguates a colliding slug with a deterministic numeric
// suffix: slug, slug-2, slug-3, ...
func uniqueSlug(slug string, taken map[string]bool) string {
	if !taken[slug] {
		return slug
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", slug, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// pageFilename returns the template file name a slug publishes under.
func pageFilename(slug string) string {
	return fmt.Sprintf("blog_%s.html", slug)
}

// CheckConsistency scans the pages directory for blog pages that have no
// registry record, the footprint of a run that died between the page write
// and the registry append. With prune set the orphans are deleted (the
// page regenerates on the next publish); otherwise the run fails loudly.
func (p *Publisher) CheckConsistency(prune bool) error {
	slugs, err := p.registry.Slugs()
	if err != nil {
		return err
	}

	pages, err := filepath.Glob(filepath.Join(p.pagesDir, "blog_*.html"))
	if err != nil {
		return fmt.Errorf("scanning pages directory: %w", err)
	}

	var orphans []string
	for _, page := range pages {
		name := filepath.Base(page)
		slug := strings.TrimSuffix(strings.TrimPrefix(name, "blog_"), ".html")
		if !slugs[slug] {
			orphans = append(orphans, page)
		}
	}

	if len(orphans) == 0 {
		return nil
	}

	if prune {
		for _, page := range orphans {
			log.Printf("pruning orphaned page: %s", page)
			if err := os.Remove(page); err != nil {
				return fmt.Errorf("pruning orphaned page %s: %w", page, err)
			}
		}
		return nil
	}

	return &PublishInconsistentError{Pages: orphans}
}

// Publish renders the article into a page template and appends the record
// to the registry. Uniqueness is checked before the page is written so a
// duplicate never leaves an orphaned page behind.
func (p *Publisher) Publish(article *GeneratedArticle, entry VideoEntry) (*PostRecord, error) {
	if exists, err := p.registry.Contains(entry.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, &DuplicateKeyError{Field: "video_id", Value: entry.ID}
	}

	taken, err := p.registry.Slugs()
	if err != nil {
		return nil, err
	}
	slug := uniqueSlug(Slugify(article.Title), taken)

	record := PostRecord{
		VideoID:       entry.ID,
		Slug:          slug,
		Title:         article.Title,
		Description:   article.MetaDescription,
		PublishedAt:   entry.PublishedAt.UTC().Format(time.RFC3339),
		PublishedDate: article.PublishedDate,
		UpdatedDate:   article.PublishedDate,
		ReadingTime:   article.ReadingTime,
		Category:      article.Category,
		Template:      pageFilename(slug),
		YouTubeURL:    entry.URL,
		Source:        "youtube",
	}

	page, err := p.renderPage(&record, article, entry)
	if err != nil {
		return nil, err
	}

	pagePath := filepath.Join(p.pagesDir, record.Template)
	if p.dryRun {
		log.Printf("[dry-run] would write %s and append %s to %s", pagePath, slug, p.registry.Path())
		return &record, nil
	}

	if err := os.MkdirAll(p.pagesDir, 0755); err != nil {
		return nil, fmt.Errorf("creating pages directory: %w", err)
	}
	if err := os.WriteFile(pagePath, []byte(page), 0644); err != nil {
		return nil, fmt.Errorf("writing page %s: %w", pagePath, err)
	}

	if err := p.registry.Append(record); err != nil {
		// The page exists but the registry does not know it. Cleanup is
		// manual, so this must not look like an ordinary failure.
		return nil, &PublishInconsistentError{Pages: []string{pagePath}, Err: err}
	}

	log.Printf("✓ Published: %s (%s)", record.Title, pagePath)
	return &record, nil
}

// renderPage executes the page template. The output is itself a Jinja
// template for the web app, so the Go template uses [[ ]] delimiters.
func (p *Publisher) renderPage(record *PostRecord, article *GeneratedArticle, entry VideoEntry) (string, error) {
	tmpl, err := template.New("post").Delims("[[", "]]").Parse(p.pageTmpl)
	if err != nil {
		return "", fmt.Errorf("parsing page template: %w", err)
	}

	data := struct {
		VideoID     string
		ArticleHTML string
	}{
		VideoID:     entry.ID,
		ArticleHTML: indentHTML(article.BodyHTML, "      "),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing page template: %w", err)
	}
	return buf.String(), nil
}

// indentHTML indents non-empty lines so the fragment sits nicely inside
// the <article> block.
func indentHTML(html, prefix string) string {
	lines := strings.Split(strings.TrimRight(html, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}
