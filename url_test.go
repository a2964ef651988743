package tarantula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarantula"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases scheme and host", in: "HTTPS://Example.COM/Path", want: "https://example.com/Path"},
		{name: "strips default https port", in: "https://example.com:443/page", want: "https://example.com/page"},
		{name: "strips default http port", in: "http://example.com:80/page", want: "http://example.com/page"},
		{name: "keeps non-default port", in: "https://example.com:8443/page", want: "https://example.com:8443/page"},
		{name: "keeps http port 443", in: "http://example.com:443/page", want: "http://example.com:443/page"},
		{name: "drops fragment", in: "https://example.com/page#section-2", want: "https://example.com/page"},
		{name: "empty path becomes root", in: "https://example.com", want: "https://example.com/"},
		{name: "preserves query", in: "https://example.com/search?q=go&page=2", want: "https://example.com/search?q=go&page=2"},
		{name: "preserves path case", in: "https://example.com/Docs/API", want: "https://example.com/Docs/API"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u, err := tarantula.ParseURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestParseURL_trims_surrounding_whitespace(t *testing.T) {
	t.Parallel()

	u, err := tarantula.ParseURL("  https://example.com/page \n")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", u.String())
}

func TestParseURL_rejects_unparseable_input(t *testing.T) {
	t.Parallel()

	_, err := tarantula.ParseURL("http://%zz")
	require.Error(t, err)
	assert.Equal(t, tarantula.EINVALID, tarantula.ErrorCode(err))
}
