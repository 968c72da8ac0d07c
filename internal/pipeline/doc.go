// Package pipeline runs the stages of ranking a corpus in sequence.
//
// A run loads the link graph of one corpus (from a directory or by crawling
// a website), then applies the selected estimators to it. Each stage is a
// Step that receives the report and fills in its part. BatchProcessor ranks
// several corpora concurrently, one pipeline per corpus.
package pipeline
