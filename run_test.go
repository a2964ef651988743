package tarantula_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarantula"
)

func intp(v int) *int { return &v }

func TestRunConfig_defaults_apply_only_when_unset(t *testing.T) {
	t.Parallel()

	cfg := tarantula.RunConfig{URL: "https://example.com"}

	assert.Equal(t, tarantula.DefaultMaximumRedirects, cfg.MaxRedirects())
	assert.Equal(t, tarantula.DefaultMaximumDepth, cfg.MaxDepth())
	assert.Equal(t, tarantula.DefaultCrawlDelay, cfg.CrawlDelay())

	norm := cfg.Normalize()
	assert.Equal(t, tarantula.DefaultUserAgent, norm.UserAgent)
	assert.Equal(t, tarantula.DefaultMaximumRedirects, norm.MaxRedirects())
	assert.Equal(t, tarantula.DefaultMaximumDepth, norm.MaxDepth())
	assert.Equal(t, tarantula.DefaultCrawlDelay, norm.CrawlDelay())
}

func TestRunConfig_explicit_zero_is_not_unset(t *testing.T) {
	t.Parallel()

	cfg := tarantula.RunConfig{
		URL:              "https://example.com",
		MaximumDepth:     intp(0),
		MaximumRedirects: intp(0),
		CrawlDelayMS:     intp(0),
	}

	assert.Equal(t, 0, cfg.MaxDepth(), "depth 0 crawls only the seed")
	assert.Equal(t, 0, cfg.MaxRedirects())
	assert.Zero(t, cfg.CrawlDelay())

	norm := cfg.Normalize()
	assert.Equal(t, 0, norm.MaxDepth())
	assert.Equal(t, 0, norm.MaxRedirects())
	assert.Zero(t, norm.CrawlDelay())
}

func TestRunConfig_explicit_values_survive_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantDepth int
		wantDelay time.Duration
	}{
		{
			name:      "absent fields default",
			body:      `{"url": "https://example.com"}`,
			wantDepth: tarantula.DefaultMaximumDepth,
			wantDelay: tarantula.DefaultCrawlDelay,
		},
		{
			name:      "explicit zero stays zero",
			body:      `{"url": "https://example.com", "maximum_depth": 0, "crawl_delay_ms": 0}`,
			wantDepth: 0,
			wantDelay: 0,
		},
		{
			name:      "explicit values pass through",
			body:      `{"url": "https://example.com", "maximum_depth": 3, "crawl_delay_ms": 250}`,
			wantDepth: 3,
			wantDelay: 250 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var cfg tarantula.RunConfig
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cfg))
			assert.Equal(t, tt.wantDepth, cfg.MaxDepth())
			assert.Equal(t, tt.wantDelay, cfg.CrawlDelay())
		})
	}
}

func TestRunConfig_keeps_explicit_values(t *testing.T) {
	t.Parallel()

	cfg := tarantula.RunConfig{
		URL:              "https://example.com",
		UserAgent:        "custombot",
		MaximumRedirects: intp(3),
		MaximumDepth:     intp(2),
		CrawlDelayMS:     intp(250),
	}.Normalize()

	assert.Equal(t, "custombot", cfg.UserAgent)
	assert.Equal(t, 3, cfg.MaxRedirects())
	assert.Equal(t, 2, cfg.MaxDepth())
	assert.Equal(t, 250*time.Millisecond, cfg.CrawlDelay())
}

func TestRunConfig_redirect_cap_when_redirects_disabled(t *testing.T) {
	t.Parallel()

	cfg := tarantula.RunConfig{URL: "https://example.com", IgnoreRedirects: true}
	assert.Zero(t, cfg.MaxRedirects())
	assert.Zero(t, cfg.Normalize().MaxRedirects())
}

func TestRunConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     tarantula.RunConfig
		wantErr bool
	}{
		{name: "valid minimal", cfg: tarantula.RunConfig{URL: "https://example.com"}},
		{name: "valid with callback", cfg: tarantula.RunConfig{URL: "https://example.com", CallbackURL: "https://sink.example.com/hook"}},
		{name: "valid explicit zeros", cfg: tarantula.RunConfig{URL: "https://example.com", MaximumDepth: intp(0), MaximumRedirects: intp(0), CrawlDelayMS: intp(0)}},
		{name: "missing URL", cfg: tarantula.RunConfig{}, wantErr: true},
		{name: "unsupported scheme", cfg: tarantula.RunConfig{URL: "ftp://example.com"}, wantErr: true},
		{name: "no host", cfg: tarantula.RunConfig{URL: "https://"}, wantErr: true},
		{name: "negative redirects", cfg: tarantula.RunConfig{URL: "https://example.com", MaximumRedirects: intp(-1)}, wantErr: true},
		{name: "negative depth", cfg: tarantula.RunConfig{URL: "https://example.com", MaximumDepth: intp(-1)}, wantErr: true},
		{name: "negative delay", cfg: tarantula.RunConfig{URL: "https://example.com", CrawlDelayMS: intp(-1)}, wantErr: true},
		{name: "non-http callback", cfg: tarantula.RunConfig{URL: "https://example.com", CallbackURL: "ftp://sink.example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Equal(t, tarantula.EINVALID, tarantula.ErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunState_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, tarantula.RunStarting.Terminal())
	assert.False(t, tarantula.RunRunning.Terminal())
	assert.False(t, tarantula.RunDraining.Terminal())
	assert.True(t, tarantula.RunCompleted.Terminal())
	assert.True(t, tarantula.RunCancelled.Terminal())
}

func TestPageResult_Failed(t *testing.T) {
	t.Parallel()

	assert.False(t, (&tarantula.PageResult{Status: tarantula.StatusOK}).Failed())
	for _, s := range []tarantula.PageStatus{
		tarantula.StatusHTTPError,
		tarantula.StatusTimeout,
		tarantula.StatusConnectionError,
		tarantula.StatusRedirectLimit,
	} {
		assert.True(t, (&tarantula.PageResult{Status: s}).Failed())
	}
}
