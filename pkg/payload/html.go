package payload

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// PageMeta is the data value produced for HTML responses.
type PageMeta struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	CanonicalURL string `json:"canonical_url"`
}

// ParsePageMeta extracts OG/standard metadata from an HTML document.
func ParsePageMeta(body []byte) (PageMeta, error) {
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel, attr string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr(attr); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return PageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`, "content"),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`, "content"),
			extract(`meta[name="description"]`, "content"),
		),
		ImageURL: extract(`meta[property="og:image"]`, "content"),
		CanonicalURL: firstNonEmpty(
			extract(`link[rel="canonical"]`, "href"),
			extract(`meta[property="og:url"]`, "content"),
		),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
