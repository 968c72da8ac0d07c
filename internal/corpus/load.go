package corpus

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/nao1215/pagerank/internal/rank"
)

// HTMLExtension is the file suffix that marks a document in a directory corpus.
const HTMLExtension = ".html"

// LoadDir loads the HTML files directly inside dir as a link graph.
// An empty directory yields an empty graph, which the estimators reject.
func LoadDir(dir string) (*rank.Graph, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return Load(os.DirFS(dir))
}

// Load builds a link graph from the top level of fsys.
//
// Each file named "*.html" is a page identified by its file name.
// Its links are the href targets of its <a> elements, resolved relative to
// the corpus root; only targets naming another page of the corpus are kept.
func Load(fsys fs.FS) (*rank.Graph, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}

	raw := make(map[rank.Page][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), HTMLExtension) {
			continue
		}

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		links, err := fileLinks(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		raw[rank.Page(entry.Name())] = links
	}

	return closeGraph(raw)
}

// fileLinks returns the names of the files a document links to, relative to
// the corpus root. Links to other hosts and relative links that climb above
// the root are dropped.
func fileLinks(content []byte) ([]string, error) {
	parser, err := NewParser("/")
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Hrefs))
	for _, href := range result.Hrefs {
		if name, ok := corpusFile(href); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// corpusFile maps an href to a file name of the corpus root.
func corpusFile(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}

	// An absolute path names a file of the root itself.
	if strings.HasPrefix(u.Path, "/") {
		name := strings.TrimPrefix(path.Clean(u.Path), "/")
		return name, name != ""
	}

	name := path.Clean(u.Path)
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}

// closeGraph keeps only links between known pages, drops self-links and
// builds the graph.
func closeGraph(raw map[rank.Page][]string) (*rank.Graph, error) {
	links := make(map[rank.Page][]rank.Page, len(raw))
	for page, targets := range raw {
		kept := make([]rank.Page, 0, len(targets))
		for _, target := range targets {
			t := rank.Page(target)
			if t == page {
				continue
			}
			if _, ok := raw[t]; !ok {
				continue
			}
			kept = append(kept, t)
		}
		links[page] = kept
	}
	return rank.NewGraph(links)
}
