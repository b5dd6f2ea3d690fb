// Package reference turns a URL into reference material: the page's
// readable main text plus source metadata (title, authors, site name,
// publication date). Metadata comes from the page's meta tags first; a
// language model fills whatever the tags leave blank.
package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/inklings/inklings/internal/graph"
	"github.com/inklings/inklings/internal/metadata"
)

// fetchTimeout caps one page download.
const fetchTimeout = 30 * time.Second

// maxBodyBytes caps how much of a page is read. Pages larger than this
// are truncated, not rejected.
const maxBodyBytes = 4 << 20

// gapFillBytes is how much raw HTML the model sees when meta tags left
// gaps.
const gapFillBytes = 3000

// Fetched is the extracted material for one URL. Title becomes the
// reference node's title; Source its clipping metadata.
type Fetched struct {
	Title   string
	Content string
	Source  graph.SourceInfo
}

// Fetcher downloads and extracts reference pages.
type Fetcher struct {
	client    *http.Client
	completer metadata.Completer
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher. completer may be nil, in which case
// missing metadata stays missing.
func NewFetcher(client *http.Client, completer metadata.Completer, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, completer: completer, logger: logger}
}

// Fetch downloads rawURL and extracts its readable text and source
// metadata. The URL itself is always recorded; every other source field
// is best-effort.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	pageURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid reference url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(html)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract main text from %s: %w", pageURL, err)
	}

	fetched := &Fetched{
		Content: strings.TrimSpace(article.TextContent),
		Source:  graph.SourceInfo{URL: pageURL.String()},
	}
	extractMeta(string(html), &fetched.Source)
	if fetched.Source.Name == "" {
		fetched.Source.Name = article.SiteName
	}

	fetched.Title = article.Title
	if t := strings.TrimSpace(titleFromHTML(string(html))); t != "" {
		fetched.Title = t
	}

	f.fillGaps(ctx, string(html), fetched)
	return fetched, nil
}

// titleFromHTML returns the <title> text, if any.
func titleFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return doc.Find("title").First().Text()
}

// extractMeta reads the common meta tags into src.
func extractMeta(html string, src *graph.SourceInfo) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	meta := func(selector string) string {
		content, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(content)
	}

	src.Authors = meta(`meta[name="author"]`)
	src.Name = meta(`meta[property="og:site_name"]`)

	date := meta(`meta[name="date"]`)
	if date == "" {
		date = meta(`meta[property="article:published_time"]`)
	}
	if t, ok := parsePublicationDate(date); ok {
		src.PublicationDate = &t
	}
}

// parsePublicationDate accepts the date formats pages commonly put in
// meta tags.
func parsePublicationDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type gapFillOutput struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	SourceName      string `json:"source_name"`
	PublicationDate string `json:"publication_date" jsonschema_description:"YYYY-MM-DD"`
}

const gapFillPrompt = `Extract the title, authors, source name and
publication date (YYYY-MM-DD) of the page from this HTML. Leave fields
you cannot determine empty.

%s`

// fillGaps asks the model for whatever the meta tags did not provide.
// Failures leave the fields blank.
func (f *Fetcher) fillGaps(ctx context.Context, html string, fetched *Fetched) {
	src := &fetched.Source
	complete := fetched.Title != "" && src.Authors != "" && src.Name != "" && src.PublicationDate != nil
	if complete || f.completer == nil {
		return
	}

	if len(html) > gapFillBytes {
		html = html[:gapFillBytes]
	}
	var out gapFillOutput
	if err := f.completer.Complete(ctx, fmt.Sprintf(gapFillPrompt, html), &out); err != nil {
		f.logger.Warn("metadata gap fill failed", "url", src.URL, "error", err)
		return
	}

	if fetched.Title == "" {
		fetched.Title = strings.TrimSpace(out.Title)
	}
	if src.Authors == "" {
		src.Authors = strings.TrimSpace(out.Authors)
	}
	if src.Name == "" {
		src.Name = strings.TrimSpace(out.SourceName)
	}
	if src.PublicationDate == nil {
		if t, ok := parsePublicationDate(strings.TrimSpace(out.PublicationDate)); ok {
			src.PublicationDate = &t
		}
	}
}
