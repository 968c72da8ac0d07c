package config

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/pagerank/internal/rank"
)

// CorpusConfig holds the settings of one corpus in the configuration file.
// Zero values mean "not set".
type CorpusConfig struct {
	// Damping overrides the damping factor.
	Damping float64 `yaml:"damping,omitempty"`

	// Samples overrides the number of random surfer steps.
	Samples int `yaml:"samples,omitempty"`

	// Dangling overrides the dangling page policy ("ignore" or "uniform").
	Dangling string `yaml:"dangling,omitempty"`

	// Depth overrides the crawl depth of a web corpus.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page limit of a web corpus.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Cookie is sent with every crawl request, e.g. "session=abc".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are sent with every crawl request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path globs the crawler skips.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict the crawl to matching paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

func (cc CorpusConfig) validate() error {
	if cc.Damping != 0 {
		if err := validateDamping(cc.Damping); err != nil {
			return err
		}
	}
	if cc.Samples < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSamples, cc.Samples)
	}
	if cc.Depth < 0 {
		return ErrInvalidCrawlDepth
	}
	if cc.MaxPages < 0 {
		return fmt.Errorf("max pages must be non-negative, got %d", cc.MaxPages)
	}
	if cc.Dangling != "" {
		if _, err := rank.ParseDanglingPolicy(cc.Dangling); err != nil {
			return err
		}
	}
	return nil
}

// File is the structure of the .pagerank configuration file.
type File struct {
	// Defaults apply to every corpus unless overridden below.
	Defaults CorpusConfig `yaml:"defaults,omitempty"`

	// Corpora maps a corpus (directory path, URL or host name) to its settings.
	Corpora map[string]CorpusConfig `yaml:"corpora,omitempty"`
}

// GetCorpusConfig returns the settings for target, merged over the defaults.
//
// target is matched against the keys of Corpora as given, then as a cleaned
// file path, then, for URLs, by host name.
func (cf *File) GetCorpusConfig(target string) CorpusConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	cc, ok := cf.lookup(target)
	if !ok {
		return result
	}

	if cc.Damping != 0 {
		result.Damping = cc.Damping
	}
	if cc.Samples != 0 {
		result.Samples = cc.Samples
	}
	if cc.Dangling != "" {
		result.Dangling = cc.Dangling
	}
	if cc.Depth != 0 {
		result.Depth = cc.Depth
	}
	if cc.MaxPages != 0 {
		result.MaxPages = cc.MaxPages
	}
	if cc.Cookie != "" {
		result.Cookie = cc.Cookie
	}
	if len(cc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(cc.Headers))
		}
		maps.Copy(result.Headers, cc.Headers)
	}
	if len(cc.IgnorePatterns) > 0 {
		result.IgnorePatterns = cc.IgnorePatterns
	}
	if len(cc.FollowPatterns) > 0 {
		result.FollowPatterns = cc.FollowPatterns
	}
	return result
}

func (cf *File) lookup(target string) (CorpusConfig, bool) {
	if cc, ok := cf.Corpora[target]; ok {
		return cc, true
	}
	if IsURL(target) {
		if u, err := url.Parse(target); err == nil {
			if cc, ok := cf.Corpora[u.Host]; ok {
				return cc, true
			}
			if cc, ok := cf.Corpora[u.Hostname()]; ok {
				return cc, true
			}
		}
		return CorpusConfig{}, false
	}
	cc, ok := cf.Corpora[filepath.Clean(target)]
	return cc, ok
}

// IsURL reports whether target names a website rather than a directory.
func IsURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
