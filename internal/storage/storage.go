// Package storage loads plaintext and ciphertext corpora and persists run results.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/happyhackingspace/cryptohmm/internal/htmlutil"
)

// maxDocumentSize caps a single fetched or read document.
const maxDocumentSize = 64 << 20

// Storage reads corpora from files, directories, URLs or stdin and writes results
// under Folder.
type Storage struct {
	Folder string
	Client *http.Client
	Stdin  io.Reader
}

// NewStorage creates a Storage that writes results to folder.
func NewStorage(folder string) *Storage {
	return &Storage{
		Folder: folder,
		Client: &http.Client{Timeout: 30 * time.Second},
		Stdin:  os.Stdin,
	}
}

// Document is one source of corpus text.
type Document struct {
	Source string `json:"source"`
	Domain string `json:"domain,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"-"`
}

// Corpus is an ordered collection of documents.
type Corpus struct {
	Documents []Document `json:"documents"`
}

// Text joins the text of every document.
func (c *Corpus) Text() string {
	parts := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		parts[i] = d.Text
	}
	return strings.Join(parts, "\n")
}

// ReadCorpus loads src, which is "-" for stdin, an http(s) URL, a directory or a file.
// HTML input is reduced to its visible text. Directories contribute every .txt, .htm
// and .html file in lexical order; identical files are read once.
func (s *Storage) ReadCorpus(ctx context.Context, src string) (*Corpus, error) {
	switch {
	case src == "-":
		data, err := io.ReadAll(io.LimitReader(s.Stdin, maxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("storage: read stdin: %w", err)
		}
		doc, err := newDocument("stdin", data, false)
		if err != nil {
			return nil, err
		}
		return &Corpus{Documents: []Document{doc}}, nil
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		doc, err := s.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		return &Corpus{Documents: []Document{doc}}, nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if !info.IsDir() {
		doc, err := readFile(src)
		if err != nil {
			return nil, err
		}
		return &Corpus{Documents: []Document{doc}}, nil
	}
	return readDir(src)
}

func readDir(dir string) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".htm", ".html":
			names = append(names, e.Name())
		default:
			slog.Debug("Skipping corpus file", "path", filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	corpus := &Corpus{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Cannot read corpus file", "path", path, "error", err)
			continue
		}
		hash := fmt.Sprintf("%x", md5.Sum(data))
		if seen[hash] {
			slog.Debug("Skipping duplicate corpus file", "path", path)
			continue
		}
		seen[hash] = true
		doc, err := newDocument(path, data, isHTMLName(name))
		if err != nil {
			slog.Warn("Cannot parse corpus file", "path", path, "error", err)
			continue
		}
		corpus.Documents = append(corpus.Documents, doc)
	}
	if len(corpus.Documents) == 0 {
		return nil, fmt.Errorf("storage: no .txt or .html files in %s", dir)
	}
	return corpus, nil
}

func readFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("storage: %w", err)
	}
	return newDocument(path, data, isHTMLName(path))
}

func (s *Storage) fetch(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("storage: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("storage: fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("storage: fetch %s: %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Document{}, fmt.Errorf("storage: read %s: %w", rawURL, err)
	}
	html := strings.Contains(resp.Header.Get("Content-Type"), "html")
	doc, err := newDocument(rawURL, data, html)
	if err != nil {
		return Document{}, err
	}
	doc.Domain = GetDomain(rawURL)
	slog.Debug("Fetched corpus", "url", rawURL, "domain", doc.Domain, "bytes", len(data))
	return doc, nil
}

func isHTMLName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func newDocument(source string, data []byte, html bool) (Document, error) {
	if !html && !htmlutil.IsHTML(data) {
		return Document{Source: source, Text: string(data)}, nil
	}
	doc, err := htmlutil.LoadHTML(strings.NewReader(string(data)))
	if err != nil {
		return Document{}, fmt.Errorf("storage: parse %s: %w", source, err)
	}
	return Document{
		Source: source,
		Title:  htmlutil.Title(doc),
		Text:   htmlutil.VisibleText(doc),
	}, nil
}

// SaveJSON writes v as indented JSON. Relative names resolve against Folder.
func (s *Storage) SaveJSON(name string, v any) (string, error) {
	path := name
	if !filepath.IsAbs(path) && s.Folder != "" {
		if err := os.MkdirAll(s.Folder, 0755); err != nil {
			return "", fmt.Errorf("storage: %w", err)
		}
		path = filepath.Join(s.Folder, name)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return path, nil
}

// LoadJSON decodes the JSON file at path into v.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return nil
}

// GetDomain extracts the registrable domain name from a URL, without its public suffix.
func GetDomain(rawURL string) string {
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	// "example.co.uk" -> "example"
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
