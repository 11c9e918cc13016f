package resolve

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Noise filters shared by all step-extraction strategies. Cookie banners and
// site chrome leak into innerText dumps and list items on this site.
var cookieNoise = []string{
	"cookies", "ciasteczka", "zgoda", "preferencje", "prywatności", "privacy", "rodo",
	"personalized ads", "spersonalizowane reklamy", "pomiar reklam", "badanie odbiorców", "ulepszanie usług",
}

var noiseWords = []string{
	"informacje", "wywiady", "ludzie", "badania rynku", "wydarzenia branżowe",
	"multimedia", "ogłoszenia o pracę", "zdobywcy eteru", "kontakt", "czytaj także",
	"reklama", "tagi", "udostępnij",
}

var actionKeywords = []string{
	"analiza", "projekt", "architekt", "wdrożenie", "implementacja", "konfiguracja",
	"test", "testy", "plan", "przygotowanie", "publikacja", "prototyp", "makiet",
	"badanie", "weryfikacja", "monitoring", "rollback", "release", "deploy",
}

var (
	stepPrefixRe   = regexp.MustCompile(`(?i)^(Krok|Etap|Step)\s*\d+[:\-.\) ]\s*`)
	numberPrefixRe = regexp.MustCompile(`^\d+[.)]\s+`)
	bulletPrefixRe = regexp.MustCompile(`^(\d+[.)]\s+|[-•—]\s+)`)
	stepSweepRe    = regexp.MustCompile(`(?i)(?:Krok|Etap)\s*\d+[:\-.\) ]\s*(.+)`)
	processHeadRe  = regexp.MustCompile(`(?i)(proces|etap|krok|test|wdrażanie|publikacja)`)
)

var anchorKeywords = []string{
	"proces projektowania", "krok", "etap", "step", "jak wygląda proces",
	"proces testowania", "proces wdrażania", "publikacja",
}

func textIsNoise(t string) bool {
	low := strings.ToLower(t)
	for _, w := range cookieNoise {
		if strings.Contains(low, w) {
			return true
		}
	}
	return len(strings.TrimSpace(t)) < 5
}

func hasNoiseWord(t string) bool {
	low := strings.ToLower(t)
	for _, w := range noiseWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

func hasActionKeyword(t string) bool {
	low := strings.ToLower(t)
	for _, w := range actionKeywords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

// ExtractSteps pulls up to maxItems process steps out of an article's HTML.
// Strategies run in order until enough items are collected: ordered lists,
// filtered unordered lists, numbered paragraphs, paragraphs near process
// headings, a keyword-anchored window over the main text, and finally a
// "Krok N:" regex sweep. Fewer than maxItems may be returned.
func ExtractSteps(html, pageURL string, maxItems int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var steps []string
	add := func(t string) bool {
		t = strings.TrimSpace(t)
		if t == "" || textIsNoise(t) {
			return false
		}
		steps = append(steps, t)
		return len(steps) >= maxItems
	}

	// 1. Ordered list items.
	doc.Find("ol li").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxItems {
			return false
		}
		t := strings.TrimSpace(s.Text())
		if len(t) > 4 && !textIsNoise(t) {
			if add(t) {
				return false
			}
		}
		return true
	})
	if len(steps) >= maxItems {
		return steps[:maxItems]
	}

	// 2. Unordered list items, noise-filtered and keyword-gated.
	doc.Find("ul li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if len(t) > 4 && !hasNoiseWord(t) && !textIsNoise(t) && hasActionKeyword(t) {
			if add(t) {
				return false
			}
		}
		return true
	})
	if len(steps) >= maxItems {
		return steps[:maxItems]
	}

	// 3. Explicitly numbered paragraphs and blocks.
	doc.Find("p, li, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if textIsNoise(t) {
			return true
		}
		if stepPrefixRe.MatchString(t) {
			if add(t) {
				return false
			}
		} else if numberPrefixRe.MatchString(t) && !hasNoiseWord(t) {
			if add(t) {
				return false
			}
		}
		return true
	})
	if len(steps) >= maxItems {
		return steps[:maxItems]
	}

	// 4. Paragraphs following process-related headings.
	headingMatched := false
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if processHeadRe.MatchString(strings.TrimSpace(s.Text())) {
			headingMatched = true
			return false
		}
		return true
	})
	if headingMatched {
		doc.Find("p, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if len(t) > 4 && !hasNoiseWord(t) && !textIsNoise(t) {
				if add(t) {
					return false
				}
			}
			return true
		})
	}
	if len(steps) >= maxItems {
		return steps[:maxItems]
	}

	// 5. Keyword-anchored window over the main text.
	if near := stepsNearKeywords(MainText(html, pageURL), maxItems); len(near) > 0 {
		return near
	}

	// 6. Regex sweep across the whole main text.
	body := MainText(html, pageURL)
	for _, m := range stepSweepRe.FindAllStringSubmatch(body, -1) {
		t := strings.TrimSpace(m[1])
		if t != "" && !hasNoiseWord(t) && !textIsNoise(t) {
			if add(t) {
				break
			}
		}
	}

	if len(steps) > maxItems {
		steps = steps[:maxItems]
	}
	return steps
}

// stepsNearKeywords scans a 30-line window after the first line mentioning a
// process keyword, accepting action-keyword lines of plausible length.
func stepsNearKeywords(body string, maxItems int) []string {
	var lines []string
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || hasNoiseWord(l) || textIsNoise(l) {
			continue
		}
		lines = append(lines, l)
	}

	anchor := -1
	for i, l := range lines {
		low := strings.ToLower(l)
		for _, kw := range anchorKeywords {
			if strings.Contains(low, kw) {
				anchor = i
				break
			}
		}
		if anchor >= 0 {
			break
		}
	}
	if anchor < 0 {
		return nil
	}

	var steps []string
	end := anchor + 30
	if end > len(lines) {
		end = len(lines)
	}
	for _, l := range lines[anchor:end] {
		candidate := bulletPrefixRe.ReplaceAllString(l, "")
		candidate = strings.TrimSpace(candidate)
		if hasNoiseWord(candidate) || textIsNoise(candidate) {
			continue
		}
		if !hasActionKeyword(candidate) {
			continue
		}
		if len(candidate) >= 5 && len(candidate) <= 180 {
			steps = append(steps, candidate)
		}
		if len(steps) >= maxItems {
			break
		}
	}
	return steps
}

// MainText extracts the readable article text from an HTML snapshot,
// preferring readability extraction and falling back to known content
// containers, then the whole body.
func MainText(html, pageURL string) string {
	base, _ := url.Parse(pageURL)
	if base == nil {
		base = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err == nil {
		text := strings.TrimSpace(article.TextContent)
		if len(text) > 50 {
			return text
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"article", ".article", "main", ".entry-content", ".content", ".post", ".single-article", ".news-entry"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); len(t) > 50 {
			return t
		}
	}
	return strings.TrimSpace(doc.Find("body").Text())
}

// FormatSteps serializes step answers as "1) a; 2) b; 3) c".
func FormatSteps(steps []string) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("%d) %s", i+1, s)
	}
	return strings.Join(parts, "; ")
}

func trimAnswer(s string) string {
	return strings.TrimSpace(s)
}
