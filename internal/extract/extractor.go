// Package extract parses fetched HTML into the item fields the pipeline
// persists: readable content, metadata, and image references.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
)

// ExtractionError indicates the document could not be parsed into readable
// content.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract content from %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Result holds everything extracted from one HTML document.
type Result struct {
	Title       string
	Author      string
	PublishedAt *time.Time
	TextContent string
	HTMLContent string
	// ImageRefs are raw src attribute values in document order. Duplicates
	// are preserved; each reference is harvested independently.
	ImageRefs []string
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs readability over the document and pulls metadata and image
// references from the raw markup. Extraction is a pure function of its
// input: the same bytes always produce the same result.
func (e *Extractor) Extract(pageURL string, html []byte) (*Result, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	result := &Result{
		Title:       article.Title,
		TextContent: article.TextContent,
		HTMLContent: article.Content,
		Author:      metaContent(doc, `meta[name="author"]`, `meta[property="article:author"]`),
	}

	if raw := metaContent(doc, `meta[property="article:published_time"]`, `meta[name="date"]`); raw != "" {
		// Publication dates in the wild come in many formats; an
		// unparseable one is dropped rather than failing the item.
		if ts, err := dateparse.ParseAny(raw); err == nil {
			ts = ts.UTC()
			result.PublishedAt = &ts
		}
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			result.ImageRefs = append(result.ImageRefs, src)
		}
	})

	return result, nil
}

// metaContent returns the content attribute of the first selector that
// matches, in preference order.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// ResolveImageURL turns a raw image reference into a fetchable URL.
// Absolute references pass through untouched; anything else is joined to
// the page's scheme and host.
func ResolveImageURL(pageURL, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	return parsed.Scheme + "://" + parsed.Host + ref
}
