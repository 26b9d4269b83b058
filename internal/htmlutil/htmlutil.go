// Package htmlutil extracts corpus text from HTML documents.
package htmlutil

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoadHTML parses HTML bytes into a goquery Document.
func LoadHTML(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LoadHTMLString parses HTML string into a goquery Document.
func LoadHTMLString(htmlStr string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
}

// IsHTML reports whether data looks like an HTML document.
func IsHTML(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "text/html") ||
		bytes.Contains(bytes.ToLower(data[:min(len(data), 512)]), []byte("<html"))
}

// Title returns the trimmed document title.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
