package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Client, cfg.Client)
	assert.Equal(t, def.Render, cfg.Render)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomboard.toml")
	data := `
[server]
addr = ":9000"
redis_addr = "localhost:6379"
redis_db = 2

[client]
workspace = "team"
user = "alice"
width = 640

[render]
stroke = "#ff8000"
padding = 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvRedis, "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "localhost:6379", cfg.Server.RedisAddr)
	assert.Equal(t, 2, cfg.Server.RedisDB)
	assert.Equal(t, "team", cfg.Client.Workspace)
	assert.Equal(t, "alice", cfg.Client.User)
	assert.Equal(t, 640, cfg.Client.Width)
	assert.Equal(t, 700, cfg.Client.Height)

	style, err := cfg.Render.Style()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}, style.Stroke)
	assert.Equal(t, colornames.Black, style.Background)
	assert.Equal(t, 4.0, style.Padding)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr = "), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	env := map[string]string{EnvAddr: ":7000", EnvOrigin: "https://board.example", EnvRedis: "redis:6379"}
	cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "https://board.example", cfg.Server.Origin)
	assert.Equal(t, "redis:6379", cfg.Server.RedisAddr)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("DodgerBlue")
	require.NoError(t, err)
	assert.Equal(t, colornames.Dodgerblue, c)

	_, err = ParseColor("#12345")
	assert.Error(t, err)
	_, err = ParseColor("notacolor")
	assert.Error(t, err)
}
