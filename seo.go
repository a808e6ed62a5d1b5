package main

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// SEOScorer grades an article 0-100 before it is allowed to publish.
// The rubric mirrors the editorial checklist the agency reviews posts
// against; the pipeline publishes only at or above the threshold.
type SEOScorer struct {
	converter *md.Converter
}

func NewSEOScorer() *SEOScorer {
	return &SEOScorer{converter: md.NewConverter("", true, nil)}
}

var (
	h2Re           = regexp.MustCompile(`(?i)<h2\b`)
	firstParaRe    = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p>`)
	tagRe          = regexp.MustCompile(`<[^>]+>`)
	internalLinkRe = regexp.MustCompile(`href=["'](/[^"']+)["']`)
	externalLinkRe = regexp.MustCompile(`href=["']https?://([^"']+)["']`)
	imgTagRe       = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	imgAltRe       = regexp.MustCompile(`(?i)\balt=["'].*?["']`)
	tocRe          = regexp.MustCompile(`(?i)(Table of contents|<nav[^>]+toc|id=["']toc["'])`)
	jsonLDRe       = regexp.MustCompile(`(?i)application/ld\+json`)
	trustAuthorRe  = regexp.MustCompile(`(?i)author|byline|class=["']author`)
	trustRefRe     = regexp.MustCompile(`(?i)references|sources|cite`)
)

var aiPhrases = []string{
	"as an ai",
	"as an ai language model",
	"in this article we will",
	"in this post i",
}

// plainText strips an HTML fragment to readable text for word counts.
func (s *SEOScorer) plainText(html string) string {
	if text, err := s.converter.ConvertString(html); err == nil {
		return text
	}
	return tagRe.ReplaceAllString(html, " ")
}

// Score returns the total and a per-check breakdown. keyword is the
// primary keyword derived from the video title (may be empty).
func (s *SEOScorer) Score(html, title, description, keyword string) (int, map[string]int) {
	breakdown := make(map[string]int)
	total := 0

	// Word count: full points at 700+ words.
	words := countWords(s.plainText(html))
	wcPts := 15 * words / 700
	if wcPts > 15 {
		wcPts = 15
	}
	breakdown["word_count"] = wcPts
	total += wcPts

	tlen := len(title)
	titlePts := 0
	switch {
	case tlen >= 40 && tlen <= 70:
		titlePts = 10
	case (tlen >= 30 && tlen < 40) || (tlen > 70 && tlen <= 80):
		titlePts = 5
	}
	breakdown["title_length"] = titlePts
	total += titlePts

	dlen := len(description)
	metaPts := 0
	switch {
	case dlen >= 120 && dlen <= 160:
		metaPts = 10
	case (dlen >= 100 && dlen < 120) || (dlen > 160 && dlen <= 180):
		metaPts = 5
	}
	breakdown["meta_description"] = metaPts
	total += metaPts

	h2Count := len(h2Re.FindAllString(html, -1))
	h2Pts := 0
	if h2Count >= 3 {
		h2Pts = 10
	} else if h2Count == 2 {
		h2Pts = 5
	}
	breakdown["h2_count"] = h2Pts
	total += h2Pts

	kwPts := s.keywordPoints(html, title, keyword)
	breakdown["keyword_presence"] = kwPts
	total += kwPts

	intPts := 0
	if len(internalLinkRe.FindAllString(html, -1)) >= 1 {
		intPts = 10
	}
	breakdown["internal_links"] = intPts
	total += intPts

	extPts := 0
	for _, m := range externalLinkRe.FindAllStringSubmatch(html, -1) {
		if !strings.Contains(strings.ToLower(m[1]), "sparksmetrics") {
			extPts = 5
			break
		}
	}
	breakdown["external_links"] = extPts
	total += extPts

	imgTags := imgTagRe.FindAllString(html, -1)
	imgPts := 0
	if len(imgTags) > 0 {
		imgPts = 2
		withAlt := 0
		for _, tag := range imgTags {
			if imgAltRe.MatchString(tag) {
				withAlt++
			}
		}
		if withAlt == len(imgTags) {
			imgPts = 5
		}
	}
	breakdown["images_alt"] = imgPts
	total += imgPts

	tocPts := 0
	if tocRe.MatchString(html) {
		tocPts = 5
	}
	breakdown["toc"] = tocPts
	total += tocPts

	aiPts := 5
	lower := strings.ToLower(html)
	for _, phrase := range aiPhrases {
		if strings.Contains(lower, phrase) {
			aiPts = 0
			break
		}
	}
	breakdown["ai_phrases"] = aiPts
	total += aiPts

	schemaPts := 0
	if jsonLDRe.MatchString(html) {
		schemaPts = 5
	}
	breakdown["schema"] = schemaPts
	total += schemaPts

	// Responsive layout comes from the site template.
	breakdown["mobile"] = 5
	total += 5

	authorFound := trustAuthorRe.MatchString(html)
	refsFound := trustRefRe.MatchString(html)
	trustPts := 0
	if authorFound && refsFound {
		trustPts = 10
	} else if authorFound || refsFound {
		trustPts = 5
	}
	breakdown["trust_signals"] = trustPts
	total += trustPts

	if total > 100 {
		total = 100
	}
	return total, breakdown
}

func (s *SEOScorer) keywordPoints(html, title, keyword string) int {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		if title != "" {
			return 5
		}
		return 0
	}

	firstPara := ""
	if m := firstParaRe.FindStringSubmatch(html); m != nil {
		firstPara = strings.ToLower(strings.TrimSpace(tagRe.ReplaceAllString(m[1], "")))
	}

	titleHas := strings.Contains(strings.ToLower(title), kw)
	paraHas := strings.Contains(firstPara, kw)
	switch {
	case titleHas && paraHas:
		return 10
	case titleHas || paraHas:
		return 5
	}
	return 0
}

var keywordCleanRe = regexp.MustCompile(`[^a-z0-9\s]`)

// primaryKeyword derives the naive primary keyword from a video title:
// the first word after lowercasing and stripping punctuation.
func primaryKeyword(title string) string {
	cleaned := keywordCleanRe.ReplaceAllString(strings.ToLower(title), "")
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
