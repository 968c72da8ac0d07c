// Package main provides the entry point for the pagerank CLI.
//
// pagerank estimates the PageRank of every page in a corpus: a directory of
// HTML files or a website it crawls. Two estimators are available, a random
// surfer that samples the link graph and an iterative fixed-point
// computation.
//
// Usage:
//
//	pagerank rank <corpus>...
//	pagerank history [corpus]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
