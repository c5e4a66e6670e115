package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandPattern(t *testing.T) {
	vars := PatternVars{
		Hash:        "0123456789abcdef",
		ContentHash: "fedcba9876543210",
		Name:        "main",
		ID:          "2",
		Ext:         "css",
	}

	tests := []struct {
		pattern  string
		expected string
	}{
		{"bundle-[hash].js", "bundle-0123456789abcdef.js"},
		{"styles-[hash:8].css", "styles-01234567.css"},
		{"[name].[contenthash].[ext]", "main.fedcba9876543210.css"},
		{"[id].css", "2.css"},
		{"[hash:64].js", "0123456789abcdef.js"},
		{"plain.js", "plain.js"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			require.Equal(t, tt.expected, ExpandPattern(tt.pattern, vars))
		})
	}
}

func TestCheckPattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
		unique  bool
	}{
		{pattern: "bundle-[hash].js", unique: true},
		{pattern: "[contenthash:10].css", unique: true},
		{pattern: "[id].css"},
		{pattern: "", wantErr: true},
		{pattern: "js/bundle-[hash].js", wantErr: true, unique: true},
		{pattern: "bundle-[chunkhash].js", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := CheckPattern(tt.pattern)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadPattern)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.unique, HasUniqueToken(tt.pattern))
		})
	}
}

func TestParseUse(t *testing.T) {
	u, err := ParseUse("file-loader?&name=media/[hash].[ext]")
	require.NoError(t, err)
	require.Equal(t, ProcessorFile, u.Loader)
	require.Equal(t, "media/[hash].[ext]", u.Options["name"])

	u, err = ParseUse("CSS-Loader")
	require.NoError(t, err)
	require.Equal(t, ProcessorCSS, u.Loader)
	require.Nil(t, u.Options)

	_, err = ParseUse("file?name=%zz")
	require.ErrorIs(t, err, ErrBadRule)
}
