package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/happyhackingspace/cryptohmm/internal/textutil"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hidden elements never contribute text.
var hidden = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

// VisibleText returns the text a reader would see in the document body, with text
// nodes separated by single spaces.
func VisibleText(doc *goquery.Document) string {
	var parts []string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, textutil.NormalizeWhitespaces(s))
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if hidden[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range doc.Nodes {
		visit(n)
	}
	return strings.Join(parts, " ")
}

// ExtractText parses htmlStr and returns its visible text.
func ExtractText(htmlStr string) (string, error) {
	doc, err := LoadHTMLString(htmlStr)
	if err != nil {
		return "", err
	}
	return VisibleText(doc), nil
}
