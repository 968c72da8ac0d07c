package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/pagerank/internal/rank"
)

// TestNewConfig pins the defaults so that changing one is a deliberate act.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Damping != 0.85 {
		t.Errorf("expected Damping 0.85, got %v", cfg.Damping)
	}
	if cfg.Samples != 10000 {
		t.Errorf("expected Samples 10000, got %d", cfg.Samples)
	}
	if cfg.Workers != 1 {
		t.Errorf("expected Workers 1, got %d", cfg.Workers)
	}
	if cfg.Threshold != 0.001 {
		t.Errorf("expected Threshold 0.001, got %v", cfg.Threshold)
	}
	if cfg.MaxIterations != 0 {
		t.Errorf("expected no iteration cap, got %d", cfg.MaxIterations)
	}
	if cfg.DanglingPolicy != rank.DanglingIgnore {
		t.Errorf("expected DanglingIgnore, got %v", cfg.DanglingPolicy)
	}
	if cfg.Method != MethodBoth {
		t.Errorf("expected MethodBoth, got %q", cfg.Method)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.CrawlDelay != 500*time.Millisecond {
		t.Errorf("expected CrawlDelay 500ms, got %v", cfg.CrawlDelay)
	}
	if !cfg.SaveToDB {
		t.Error("expected SaveToDB to be true")
	}
	if cfg.DBDir != XDGDataDir() {
		t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
	}
	if cfg.UseSeed {
		t.Error("expected sampling to be unseeded by default")
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("XDGDataDir() = %q, expected it to end in %q", XDGDataDir(), AppName)
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("XDGConfigDir() = %q, expected it to end in %q", XDGConfigDir(), AppName)
	}
}

func TestMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method   Method
		samples  bool
		iterates bool
	}{
		{MethodSample, true, false},
		{MethodIterate, false, true},
		{MethodBoth, true, true},
		{Method("other"), false, false},
	}
	for _, tt := range tests {
		if got := tt.method.Samples(); got != tt.samples {
			t.Errorf("%q.Samples() = %v, expected %v", tt.method, got, tt.samples)
		}
		if got := tt.method.Iterates(); got != tt.iterates {
			t.Errorf("%q.Iterates() = %v, expected %v", tt.method, got, tt.iterates)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"corpus0"}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected defaults with a target to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"no target", func(c *Config) { c.Targets = nil }, ErrNoTarget},
		{"zero damping", func(c *Config) { c.Damping = 0 }, ErrInvalidDamping},
		{"damping of one", func(c *Config) { c.Damping = 1 }, ErrInvalidDamping},
		{"negative damping", func(c *Config) { c.Damping = -0.5 }, ErrInvalidDamping},
		{"NaN damping", func(c *Config) { c.Damping = math.NaN() }, ErrInvalidDamping},
		{"zero samples", func(c *Config) { c.Samples = 0 }, ErrInvalidSamples},
		{"negative samples", func(c *Config) { c.Samples = -3 }, ErrInvalidSamples},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }, ErrInvalidThreshold},
		{"infinite threshold", func(c *Config) { c.Threshold = math.Inf(1) }, ErrInvalidThreshold},
		{"negative iteration cap", func(c *Config) { c.MaxIterations = -1 }, ErrInvalidMaxIterations},
		{"unknown method", func(c *Config) { c.Method = "guess" }, ErrInvalidMethod},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative depth", func(c *Config) { c.CrawlDepth = -1 }, ErrInvalidCrawlDepth},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }, ErrInvalidCrawlDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("parses defaults and corpora", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
defaults:
  damping: 0.9
  headers:
    Accept-Language: en
corpora:
  corpus0:
    samples: 50000
    dangling: uniform
  docs.example.com:
    depth: 2
    cookie: "session=abc"
    headers:
      X-Corpus: docs
    ignorePatterns:
      - "/admin/*"
`)

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Defaults.Damping != 0.9 {
			t.Errorf("Defaults.Damping = %v", cf.Defaults.Damping)
		}
		if len(cf.Corpora) != 2 {
			t.Fatalf("expected 2 corpora, got %d", len(cf.Corpora))
		}
		if cf.Corpora["corpus0"].Samples != 50000 {
			t.Errorf("corpus0 samples = %d", cf.Corpora["corpus0"].Samples)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Corpora == nil {
			t.Error("expected Corpora to be initialized")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(writeConfig(t, "corpora: [unclosed")); err == nil {
			t.Error("expected a parse error")
		}
	})

	invalid := map[string]string{
		"damping out of range": "corpora:\n  c:\n    damping: 1.5\n",
		"negative samples":     "corpora:\n  c:\n    samples: -1\n",
		"unknown dangling":     "defaults:\n  dangling: redistribute\n",
		"negative depth":       "corpora:\n  c:\n    depth: -2\n",
		"negative max pages":   "corpora:\n  c:\n    maxPages: -2\n",
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfigFile(writeConfig(t, content))
			if !errors.Is(err, ErrInvalidCorpusConfig) {
				t.Errorf("expected ErrInvalidCorpusConfig, got %v", err)
			}
		})
	}
}

func TestGetCorpusConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: CorpusConfig{
			Damping: 0.9,
			Cookie:  "default=1",
			Headers: map[string]string{"Accept-Language": "en"},
		},
		Corpora: map[string]CorpusConfig{
			"corpus0": {Samples: 500, Dangling: "uniform"},
			"docs.example.com": {
				Depth:          2,
				Cookie:         "session=abc",
				Headers:        map[string]string{"X-Corpus": "docs"},
				FollowPatterns: []string{"*.html"},
			},
			"localhost:8080": {MaxPages: 7},
		},
	}

	t.Run("unknown target gets defaults", func(t *testing.T) {
		t.Parallel()

		cc := cf.GetCorpusConfig("elsewhere")
		if cc.Damping != 0.9 || cc.Cookie != "default=1" || cc.Samples != 0 {
			t.Errorf("unexpected config: %+v", cc)
		}
	})

	t.Run("directory target matches cleaned path", func(t *testing.T) {
		t.Parallel()

		cc := cf.GetCorpusConfig("./corpus0/")
		if cc.Samples != 500 || cc.Dangling != "uniform" || cc.Damping != 0.9 {
			t.Errorf("unexpected config: %+v", cc)
		}
	})

	t.Run("URL target matches host", func(t *testing.T) {
		t.Parallel()

		cc := cf.GetCorpusConfig("https://docs.example.com/start")
		if cc.Depth != 2 || cc.Cookie != "session=abc" {
			t.Errorf("unexpected config: %+v", cc)
		}
		if cc.Headers["X-Corpus"] != "docs" || cc.Headers["Accept-Language"] != "en" {
			t.Errorf("expected merged headers, got %v", cc.Headers)
		}
		if len(cc.FollowPatterns) != 1 {
			t.Errorf("FollowPatterns = %v", cc.FollowPatterns)
		}
	})

	t.Run("URL target matches host and port", func(t *testing.T) {
		t.Parallel()

		if cc := cf.GetCorpusConfig("http://localhost:8080/"); cc.MaxPages != 7 {
			t.Errorf("MaxPages = %d, expected 7", cc.MaxPages)
		}
	})

	t.Run("merging leaves the defaults untouched", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetCorpusConfig("http://docs.example.com/")
		if _, ok := cf.Defaults.Headers["X-Corpus"]; ok {
			t.Error("defaults were modified by a merge")
		}
	})
}

func TestForCorpus(t *testing.T) {
	t.Parallel()

	base := NewConfig()
	base.Targets = []string{"corpus0", "corpus1"}
	base.CorpusConfigs = &File{
		Corpora: map[string]CorpusConfig{
			"corpus0": {Damping: 0.5, Samples: 20, Dangling: "uniform", Depth: 1, MaxPages: 3},
		},
	}

	cfg, cc := base.ForCorpus("corpus0")
	if cfg.Damping != 0.5 || cfg.Samples != 20 || cfg.CrawlDepth != 1 || cfg.MaxPages != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.DanglingPolicy != rank.DanglingUniform {
		t.Errorf("DanglingPolicy = %v, expected uniform", cfg.DanglingPolicy)
	}
	if cc.Samples != 20 {
		t.Errorf("returned corpus config = %+v", cc)
	}
	if base.Damping != DefaultDamping {
		t.Error("ForCorpus modified the receiver")
	}

	other, _ := base.ForCorpus("corpus1")
	if other.Damping != DefaultDamping || other.Samples != DefaultSamples {
		t.Errorf("unexpected overrides for corpus1: %+v", other)
	}

	t.Run("explicit settings win over the file", func(t *testing.T) {
		t.Parallel()

		explicit := *base
		explicit.Damping = 0.6
		explicit.Samples = 50
		explicit.DanglingPolicy = rank.DanglingIgnore
		explicit.Explicit = ExplicitSettings{Damping: true, Samples: true, Dangling: true}

		got, _ := explicit.ForCorpus("corpus0")
		if got.Damping != 0.6 || got.Samples != 50 || got.DanglingPolicy != rank.DanglingIgnore {
			t.Errorf("explicit settings replaced by the file: %+v", got)
		}
		if got.CrawlDepth != 1 || got.MaxPages != 3 {
			t.Errorf("settings not given explicitly should still come from the file: %+v", got)
		}
	})

	noFile := NewConfig()
	plain, cc := noFile.ForCorpus("x")
	if plain.Damping != DefaultDamping || cc.Cookie != "" {
		t.Error("expected an unchanged copy without a configuration file")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "")
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile(%q) = %q", path, got)
		}
	})

	t.Run("explicit path that does not exist", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
			t.Errorf("expected empty result, got %q", got)
		}
	})
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"http://example.com":  true,
		"HTTPS://example.com": true,
		"corpus0":             false,
		"./http/corpus":       false,
		"ftp://example.com":   false,
	}
	for target, want := range tests {
		if got := IsURL(target); got != want {
			t.Errorf("IsURL(%q) = %v, expected %v", target, got, want)
		}
	}
}
