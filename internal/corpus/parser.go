package corpus

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and anchor links of an HTML document.
type Parser struct {
	// baseURL is the location of the document, used to resolve relative links.
	baseURL *url.URL
}

// ParseResult holds what Parse found in one document.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// Links contains every resolved href of an <a> element, in document order.
	Links []string

	// Hrefs holds the unresolved href of each entry of Links.
	Hrefs []string

	// InternalLinks are the links that stay on the document's host.
	InternalLinks []string

	// ExternalLinks are the links that point to another host.
	ExternalLinks []string
}

// NewParser creates a parser for a document located at baseURL.
// A base of "/" resolves links the way a flat directory of files would.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse reads an HTML document and collects its title and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		Hrefs:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}
	case "a":
		href := strings.TrimSpace(getAttr(n, "href"))
		resolved := p.resolveURL(href)
		if resolved == nil {
			return
		}
		link := resolved.String()
		result.Links = append(result.Links, link)
		result.Hrefs = append(result.Hrefs, href)
		if p.isInternal(resolved) {
			result.InternalLinks = append(result.InternalLinks, link)
		} else {
			result.ExternalLinks = append(result.ExternalLinks, link)
		}
	}
}

// resolveURL resolves href against the base URL. It returns nil for empty
// hrefs, bare fragments and non-navigational schemes.
func (p *Parser) resolveURL(href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return nil
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := p.baseURL.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved
}

func (p *Parser) isInternal(u *url.URL) bool {
	if !strings.EqualFold(u.Scheme, p.baseURL.Scheme) {
		return false
	}
	return strings.EqualFold(u.Host, p.baseURL.Host)
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
