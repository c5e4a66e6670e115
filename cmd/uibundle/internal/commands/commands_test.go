package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/uibundle/internal/config"
)

func TestConfigFlags_load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("console.log(1);\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uibundle.yaml"), []byte(`
mode: production
entry: ./index.js
output:
  path: dist
  filename: app-[hash].js
`), 0o600))

	tests := []struct {
		name string
		mode string
		want config.Mode
	}{
		{name: "configured mode", want: config.ModeProduction},
		{name: "override", mode: "development", want: config.ModeDevelopment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := ConfigFlags{Config: filepath.Join(dir, "uibundle.yaml"), Mode: tt.mode}

			cfg, err := flags.load()
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.Mode())
			require.Equal(t, filepath.Join(dir, "dist"), cfg.OutputPath())
		})
	}
}

func TestConfigFlags_loadBadMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uibundle.yaml"), []byte(`
entry: ./index.js
output:
  path: dist
  filename: app-[hash].js
`), 0o600))

	flags := ConfigFlags{Config: filepath.Join(dir, "uibundle.yaml"), Mode: "staging"}

	_, err := flags.load()
	require.ErrorIs(t, err, config.ErrInvalidMode)
}

func TestNonEmpty(t *testing.T) {
	require.Nil(t, nonEmpty([]string{""}))
	require.Equal(t, []string{"https://a.example.com"}, nonEmpty([]string{"", "https://a.example.com"}))
}
