// Package fetch builds the HTTP clients used to crawl web corpora.
//
// A Client either connects directly or routes every connection through a
// SOCKS5 proxy. Clients created with HTTPClientWithConfig add a fixed cookie
// and set of headers to each request, which lets a crawl reach pages behind a
// login.
package fetch
