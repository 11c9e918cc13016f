// Package collect discovers contest entry candidates on the portal: it
// paginates the contest listing, pairs article pages with their entry forms
// and falls back to configured seed URLs when discovery comes up empty.
package collect

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/config"
)

// Candidate is one contest entry form, paired with the article page it was
// found on. SourceArticleURL is empty for seeds and listing-direct forms.
type Candidate struct {
	FormURL          string
	SourceArticleURL string
}

var (
	articleURLRe = regexp.MustCompile(`/art/\d+/.+\.html/?$`)
	formURLRe    = regexp.MustCompile(`/konkursy/\d+/.+\.html/?$`)
)

const participationPhrase = "biorę udział w konkursie"

// link is one anchor harvested from the page.
type link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

const harvestLinksJS = `() => Array.from(document.querySelectorAll('a[href]'))
	.map(a => ({href: a.href, text: (a.innerText || '').trim().toLowerCase()}))`

// Collector walks the portal through a browser page.
type Collector struct {
	page  browser.Page
	urls  config.URLs
	pages int
	retry browser.RetryPolicy
}

// New creates a collector capped at maxListingPages listing pages.
func New(page browser.Page, urls config.URLs, maxListingPages int) *Collector {
	return &Collector{page: page, urls: urls, pages: maxListingPages, retry: browser.DefaultRetry}
}

// Collect returns discovered candidates, deduplicated by form URL with the
// first occurrence kept. A failing listing or article page is logged and
// skipped rather than aborting the run.
func (c *Collector) Collect(ctx context.Context) ([]Candidate, error) {
	articles, err := c.listingArticles(ctx)
	if err != nil {
		log.Printf("listing pagination failed: %v", err)
	}
	if c.urls.FeedURL != "" {
		articles = append(articles, discoverFromFeed(c.urls.FeedURL)...)
	}
	articles = dedupStrings(articles)

	var candidates []Candidate
	for _, art := range articles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := c.formsOnArticle(ctx, art)
		if err != nil {
			log.Printf("skipping article %s: %v", art, err)
			continue
		}
		candidates = append(candidates, found...)
	}

	if len(candidates) == 0 && len(c.urls.SeedForms) > 0 {
		log.Printf("no candidates discovered, falling back to %d seed forms", len(c.urls.SeedForms))
		for _, u := range c.urls.SeedForms {
			candidates = append(candidates, Candidate{FormURL: u})
		}
	}

	candidates = Dedup(candidates)
	log.Printf("collected %d candidates from %d article pages", len(candidates), len(articles))
	return candidates, nil
}

// listingArticles paginates the contest listing and harvests article links.
// Pagination follows the "następna" control until it disappears or the page
// cap is reached.
func (c *Collector) listingArticles(ctx context.Context) ([]string, error) {
	var articles []string
	visited := make(map[string]bool)

	url := c.urls.ListURL
	for page := 0; page < c.pages && url != "" && !visited[url]; page++ {
		visited[url] = true
		if err := c.page.Navigate(ctx, url, c.retry); err != nil {
			return articles, err
		}
		links, err := c.harvestLinks(ctx)
		if err != nil {
			return articles, err
		}
		found := articleLinks(links)
		articles = append(articles, found...)
		log.Printf("listing page %d: %d article links", page+1, len(found))

		url = nextPageURL(links)
	}
	return articles, nil
}

// formsOnArticle finds the entry form reachable from one article page.
func (c *Collector) formsOnArticle(ctx context.Context, articleURL string) ([]Candidate, error) {
	// A feed or listing can hand us the form page directly.
	if formURLRe.MatchString(articleURL) {
		return []Candidate{{FormURL: articleURL}}, nil
	}

	if err := c.page.Navigate(ctx, articleURL, c.retry); err != nil {
		return nil, err
	}
	links, err := c.harvestLinks(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, u := range formLinks(links) {
		candidates = append(candidates, Candidate{FormURL: u, SourceArticleURL: articleURL})
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	// Some contests embed the form in the article page itself.
	hasForm, err := c.page.Has(ctx, "form")
	if err != nil || !hasForm {
		return nil, err
	}
	current, err := c.page.URL(ctx)
	if err != nil || current == "" {
		current = articleURL
	}
	return []Candidate{{FormURL: current, SourceArticleURL: articleURL}}, nil
}

func (c *Collector) harvestLinks(ctx context.Context) ([]link, error) {
	var links []link
	if err := c.page.Eval(ctx, harvestLinksJS, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func articleLinks(links []link) []string {
	var out []string
	for _, l := range links {
		if articleURLRe.MatchString(l.Href) {
			out = append(out, l.Href)
		}
	}
	return out
}

// formLinks returns hrefs shaped like a contest form plus any link labeled
// with the participation phrase.
func formLinks(links []link) []string {
	var out []string
	for _, l := range links {
		if formURLRe.MatchString(l.Href) || strings.Contains(l.Text, participationPhrase) {
			out = append(out, l.Href)
		}
	}
	return dedupStrings(out)
}

func nextPageURL(links []link) string {
	for _, l := range links {
		if strings.HasPrefix(l.Text, "następna") {
			return l.Href
		}
	}
	return ""
}

// Dedup keeps the first candidate per form URL, preserving order.
func Dedup(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		if c.FormURL == "" || seen[c.FormURL] {
			continue
		}
		seen[c.FormURL] = true
		out = append(out, c)
	}
	return out
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
