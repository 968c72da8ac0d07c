// Package config holds the options of a ranking run and loads per-corpus
// overrides from the .pagerank YAML file.
package config
