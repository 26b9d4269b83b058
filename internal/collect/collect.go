// Package collect crawls web sites for reference text and stores the visible text of
// each page as a .txt file, ready to be read back as a corpus.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/happyhackingspace/cryptohmm/internal/htmlutil"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
)

// Options bounds a crawl.
type Options struct {
	MaxTotal   int           // pages over all sites, 0 for unlimited
	MaxPerSite int           // pages per site
	MinLetters int           // pages with fewer letters are not saved
	Delay      time.Duration // minimum time between requests
	UserAgent  string
}

// DefaultOptions returns polite crawl settings.
func DefaultOptions() Options {
	return Options{
		MaxPerSite: 20,
		MinLetters: 500,
		Delay:      800 * time.Millisecond,
		UserAgent:  "Mozilla/5.0 (compatible; cryptohmm-collect/1.0)",
	}
}

// Entry describes one saved page in the index.
type Entry struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Letters int    `json:"letters"`
}

// Crawler fetches pages breadth-first within each site.
type Crawler struct {
	client  httpClient
	opts    Options
	limiter *rate.Limiter
	total   int
}

// NewCrawler creates a crawler that issues requests through client.
func NewCrawler(client httpClient, opts Options) *Crawler {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Crawler{client: client, opts: opts, limiter: rate.NewLimiter(limit, 1)}
}

// Crawl visits every site and writes the collected pages and index.json to outputDir.
// Sites that fail are logged and skipped. It returns the number of pages saved.
func (c *Crawler) Crawl(ctx context.Context, sites []string, outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("collect: %w", err)
	}
	index, err := loadIndex(outputDir)
	if err != nil {
		return 0, fmt.Errorf("collect: load index: %w", err)
	}

	for _, site := range sites {
		if c.done() {
			break
		}
		site = strings.TrimSpace(site)
		if site == "" {
			continue
		}
		if !strings.HasPrefix(site, "http") {
			site = "https://" + site
		}
		n, err := c.crawlSite(ctx, site, outputDir, index)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			slog.Warn("Failed to crawl site", "site", site, "error", err)
			continue
		}
		slog.Info("Finished site", "site", site, "collected", n, "total", c.total)
	}

	if err := saveIndex(outputDir, index); err != nil {
		return c.total, fmt.Errorf("collect: save index: %w", err)
	}
	slog.Info("Crawl complete", "total", c.total, "index_entries", len(index))
	return c.total, ctx.Err()
}

func (c *Crawler) done() bool {
	return c.opts.MaxTotal > 0 && c.total >= c.opts.MaxTotal
}

func (c *Crawler) crawlSite(ctx context.Context, siteURL, outputDir string, index map[string]Entry) (int, error) {
	siteU, err := url.Parse(siteURL)
	if err != nil {
		return 0, err
	}
	siteHost := siteU.Hostname()

	queue := []string{siteURL}
	visited := map[string]bool{normalizeURL(siteURL): true}
	collected := 0

	for len(queue) > 0 && collected < c.opts.MaxPerSite && !c.done() {
		link := queue[0]
		queue = queue[1:]

		if err := c.limiter.Wait(ctx); err != nil {
			return collected, err
		}
		page, status, err := fetchHTML(ctx, c.client, link, c.opts.UserAgent)
		if err != nil {
			if link == siteURL {
				return 0, fmt.Errorf("homepage: %w", err)
			}
			slog.Debug("Failed to fetch link", "url", link, "error", err)
			continue
		}
		if status != 200 {
			if link == siteURL {
				return 0, fmt.Errorf("homepage HTTP %d", status)
			}
			continue
		}

		doc, err := htmlutil.LoadHTMLString(page)
		if err != nil {
			continue
		}
		text := htmlutil.VisibleText(doc)
		letters := len(textutil.Sanitize(text, false))
		if letters >= c.opts.MinLetters {
			filename, err := saveTextFile(text, link, outputDir)
			if err != nil {
				return collected, err
			}
			index[filename] = Entry{URL: link, Title: htmlutil.Title(doc), Letters: letters}
			collected++
			c.total++
			slog.Debug("Collected page", "url", link, "letters", letters)
		}

		for _, next := range extractLinks(doc, siteU) {
			nextU, err := url.Parse(next)
			if err != nil || nextU.Hostname() != siteHost || skipURL(nextU) {
				continue
			}
			key := normalizeURL(next)
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, next)
		}
	}
	return collected, nil
}
