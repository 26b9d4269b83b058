package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/happyhackingspace/cryptohmm/internal/htmlutil"
)

var paragraph = strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><head><title>Home</title></head><body><p>%s</p>
<a href="/a">a</a> <a href="/b#top">b</a> <a href="/style.css">css</a>
<a href="https://elsewhere.example/">away</a> <a href="mailto:x@example.com">mail</a></body></html>`, paragraph)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><p>%s</p><a href="/">home</a></body></html>`, paragraph)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>too short</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawl(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Delay = 0

	n, err := NewCrawler(srv.Client(), opts).Crawl(context.Background(), []string{srv.URL}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("collected %d pages, want 2", n)
	}
	index, err := loadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != 2 {
		t.Fatalf("index has %d entries, want 2", len(index))
	}
	for name, e := range index {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "quick brown fox") {
			t.Errorf("%s (%s) does not contain the page text", name, e.URL)
		}
		if e.Letters < opts.MinLetters {
			t.Errorf("%s: %d letters", e.URL, e.Letters)
		}
	}
}

func TestCrawlMaxTotal(t *testing.T) {
	srv := newSite(t)
	opts := DefaultOptions()
	opts.Delay = 0
	opts.MaxTotal = 1

	n, err := NewCrawler(srv.Client(), opts).Crawl(context.Background(), []string{srv.URL, srv.URL}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("collected %d pages, want 1", n)
	}
}

func TestCrawlSkipsBrokenSite(t *testing.T) {
	srv := newSite(t)
	opts := DefaultOptions()
	opts.Delay = 0

	n, err := NewCrawler(srv.Client(), opts).Crawl(context.Background(), []string{srv.URL + "/missing", srv.URL}, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("collected %d pages, want 2", n)
	}
}

func TestExtractLinks(t *testing.T) {
	doc, err := htmlutil.LoadHTMLString(`<a href="/x">x</a><a href="#frag">f</a><a href="y">y</a><a href="/x">again</a><a href="javascript:void(0)">js</a>`)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse("https://example.com/dir/")
	got := extractLinks(doc, base)
	want := []string{"https://example.com/x", "https://example.com/dir/y"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("extractLinks = %v, want %v", got, want)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://example.com/a/#top", "https://example.com/a"},
		{"https://example.com/", "https://example.com"},
		{"https://example.com/b?q=1", "https://example.com/b?q=1"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSkipURL(t *testing.T) {
	for path, want := range map[string]bool{"/a.css": true, "/book.epub": true, "/chapter-1": false} {
		u, _ := url.Parse("https://example.com" + path)
		if got := skipURL(u); got != want {
			t.Errorf("skipURL(%s) = %v, want %v", path, got, want)
		}
	}
}
