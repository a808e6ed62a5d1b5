package main

import (
	"strings"
	"testing"
)

func TestScoreWordCount(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name  string
		words int
		want  int
	}{
		{"empty", 0, 0},
		{"half credit", 350, 7},
		{"full credit", 700, 15},
		{"capped", 2000, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := "<p>" + strings.TrimSpace(strings.Repeat("word ", tt.words)) + "</p>"
			_, breakdown := s.Score(html, "", "", "")
			if breakdown["word_count"] != tt.want {
				t.Errorf("word_count = %d, want %d", breakdown["word_count"], tt.want)
			}
		})
	}
}

func TestScoreTitleLength(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name string
		tlen int
		want int
	}{
		{"too short", 20, 0},
		{"near miss", 35, 5},
		{"ideal", 55, 10},
		{"slightly long", 75, 5},
		{"too long", 90, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, breakdown := s.Score("", strings.Repeat("t", tt.tlen), "", "")
			if breakdown["title_length"] != tt.want {
				t.Errorf("title_length = %d, want %d", breakdown["title_length"], tt.want)
			}
		})
	}
}

func TestScoreMetaDescription(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name string
		dlen int
		want int
	}{
		{"missing", 0, 0},
		{"short", 80, 0},
		{"near miss low", 110, 5},
		{"ideal", 150, 10},
		{"near miss high", 170, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, breakdown := s.Score("", "", strings.Repeat("d", tt.dlen), "")
			if breakdown["meta_description"] != tt.want {
				t.Errorf("meta_description = %d, want %d", breakdown["meta_description"], tt.want)
			}
		})
	}
}

func TestScoreH2Count(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name string
		h2s  int
		want int
	}{
		{"none", 0, 0},
		{"two", 2, 5},
		{"three", 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := strings.Repeat("<h2>Heading</h2>", tt.h2s)
			_, breakdown := s.Score(html, "", "", "")
			if breakdown["h2_count"] != tt.want {
				t.Errorf("h2_count = %d, want %d", breakdown["h2_count"], tt.want)
			}
		})
	}
}

func TestScoreKeywordPresence(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name    string
		html    string
		title   string
		keyword string
		want    int
	}{
		{"title and first paragraph", "<p>Improve conversion now.</p>", "Conversion Tips", "conversion", 10},
		{"title only", "<p>Something else entirely.</p>", "Conversion Tips", "conversion", 5},
		{"neither", "<p>Something else.</p>", "Other Title", "conversion", 0},
		{"no keyword with title", "<p>x</p>", "A Title", "", 5},
		{"no keyword no title", "<p>x</p>", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, breakdown := s.Score(tt.html, tt.title, "", tt.keyword)
			if breakdown["keyword_presence"] != tt.want {
				t.Errorf("keyword_presence = %d, want %d", breakdown["keyword_presence"], tt.want)
			}
		})
	}
}

func TestScoreLinks(t *testing.T) {
	s := NewSEOScorer()

	html := `<p>See <a href="/schedule-a-call/">us</a> and <a href="https://baymard.com/research">Baymard</a> and <a href="https://sparksmetrics.com/blog/x">our post</a>.</p>`
	_, breakdown := s.Score(html, "", "", "")

	if breakdown["internal_links"] != 10 {
		t.Errorf("internal_links = %d, want 10", breakdown["internal_links"])
	}
	if breakdown["external_links"] != 5 {
		t.Errorf("external_links = %d, want 5", breakdown["external_links"])
	}

	// Own-domain links do not count as external.
	own := `<a href="https://sparksmetrics.com/blog/x">post</a>`
	_, breakdown = s.Score(own, "", "", "")
	if breakdown["external_links"] != 0 {
		t.Errorf("external_links for own domain = %d, want 0", breakdown["external_links"])
	}
}

func TestScoreImagesAlt(t *testing.T) {
	s := NewSEOScorer()

	tests := []struct {
		name string
		html string
		want int
	}{
		{"no images", "<p>text</p>", 0},
		{"all with alt", `<img src="a.png" alt="chart">`, 5},
		{"some missing alt", `<img src="a.png" alt="chart"><img src="b.png">`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, breakdown := s.Score(tt.html, "", "", "")
			if breakdown["images_alt"] != tt.want {
				t.Errorf("images_alt = %d, want %d", breakdown["images_alt"], tt.want)
			}
		})
	}
}

func TestScoreAIPhrases(t *testing.T) {
	s := NewSEOScorer()

	_, clean := s.Score("<p>Practical advice.</p>", "", "", "")
	if clean["ai_phrases"] != 5 {
		t.Errorf("ai_phrases = %d, want 5 for clean copy", clean["ai_phrases"])
	}

	_, flagged := s.Score("<p>As an AI language model, I suggest...</p>", "", "", "")
	if flagged["ai_phrases"] != 0 {
		t.Errorf("ai_phrases = %d, want 0 when boilerplate found", flagged["ai_phrases"])
	}
}

func TestScoreBaseline(t *testing.T) {
	// Even an empty article earns the template's responsive-layout and
	// clean-copy points, nothing more.
	s := NewSEOScorer()
	total, breakdown := s.Score("", "", "", "")
	if total != breakdown["mobile"]+breakdown["ai_phrases"] {
		t.Errorf("baseline total = %d, want mobile+ai_phrases only (%v)", total, breakdown)
	}
}

func TestScoreCap(t *testing.T) {
	s := NewSEOScorer()

	words := strings.TrimSpace(strings.Repeat("conversion ", 800))
	html := `<h2>One</h2><h2>Two</h2><h2>Three</h2>` +
		`<p>conversion advice from the author, with references.</p>` +
		`<p>` + words + `</p>` +
		`<a href="/schedule-a-call/">call</a>` +
		`<a href="https://baymard.com/">research</a>` +
		`<img src="a.png" alt="chart">` +
		`<nav id="toc">Table of contents</nav>` +
		`<script type="application/ld+json">{}</script>`

	title := strings.Repeat("c", 40) + " conversion"
	description := strings.Repeat("d", 150)
	total, _ := s.Score(html, title, description, "conversion")
	if total > 100 {
		t.Errorf("total = %d, want capped at 100", total)
	}
	if total < 90 {
		t.Errorf("total = %d, want a near-perfect score for a complete article", total)
	}
}

func TestPrimaryKeyword(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Conversion Research: 5 Methods", "conversion"},
		{"  ", ""},
		{"!!!", ""},
		{"A/B testing guide", "ab"},
	}

	for _, tt := range tests {
		if got := primaryKeyword(tt.title); got != tt.want {
			t.Errorf("primaryKeyword(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
