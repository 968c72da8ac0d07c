// Package corpus turns a collection of hyperlinked documents into a link
// graph that the rank package can score.
//
// Two sources are supported:
//
//   - A local directory of HTML files, loaded with LoadDir or Load. Every
//     file whose name ends in ".html" directly inside the directory is a
//     page named after the file; sub-directories are not visited.
//   - A website, crawled breadth-first within a single host by a Spider.
//     Pages are named by their normalized URL path.
//
// In both cases the links of a page are the href targets of its <a>
// elements. Links to the page itself and links to documents outside the
// corpus are dropped, so the resulting graph is always closed.
//
// # Usage
//
//	g, err := corpus.LoadDir("corpus0")
//
//	spider := corpus.NewSpider(client, corpus.WithMaxDepth(3))
//	g, err := spider.Crawl(ctx, "https://example.com/")
package corpus
