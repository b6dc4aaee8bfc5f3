// Package scrape provides a small Open Graph scraper used as a
// metadata fallback when the extractor reports a download without a
// usable title or thumbnail.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// PageMeta holds the descriptive metadata scraped from a source page.
type PageMeta struct {
	Title string
	Image string
}

type Scraper struct {
	client *http.Client
}

func New() *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// ScrapeOpenGraph fetches the page at the provided URL and extracts its
// og:title and og:image meta tags, falling back to the document title
// element when the former is absent.
func (scraper *Scraper) ScrapeOpenGraph(ctx context.Context, pageURL string) (*PageMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := scraper.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	meta := &PageMeta{}
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		meta.Title = strings.TrimSpace(title)
	} else {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if image, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		meta.Image = strings.TrimSpace(image)
	}

	return meta, nil
}
