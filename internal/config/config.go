// Package config loads roomboard settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/image/colornames"

	"RoomBoard/internal/render"
)

// Environment overrides.
const (
	EnvAddr   = "ROOMBOARD_ADDR"
	EnvRedis  = "ROOMBOARD_REDIS"
	EnvOrigin = "ROOMBOARD_ORIGIN"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Render RenderConfig `toml:"render"`
}

type ServerConfig struct {
	Addr   string `toml:"addr"`
	Origin string `toml:"origin"`
	// RedisAddr selects the redis backend; empty keeps shapes in memory.
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	Advertise bool   `toml:"advertise"`
}

type ClientConfig struct {
	// ServerURL empty means discover a server on the LAN.
	ServerURL    string `toml:"server_url"`
	Workspace    string `toml:"workspace"`
	User         string `toml:"user"`
	Conversation string `toml:"conversation"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
}

type RenderConfig struct {
	Background  string  `toml:"background"`
	Stroke      string  `toml:"stroke"`
	Accent      string  `toml:"accent"`
	StrokeWidth int     `toml:"stroke_width"`
	Padding     float64 `toml:"padding"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8888",
			Origin:    "http://localhost:8080",
			Advertise: true,
		},
		Client: ClientConfig{
			Workspace: "default",
			Width:     1000,
			Height:    700,
		},
		Render: RenderConfig{
			Background:  "black",
			Stroke:      "white",
			Accent:      "dodgerblue",
			StrokeWidth: 2,
			Padding:     10,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("[CONFIG] %s not found, using defaults", path)
		case err != nil:
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				log.Printf("[CONFIG] Ignoring unknown keys in %s: %v", path, undecoded)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvOrigin); ok && v != "" {
		c.Server.Origin = v
	}
	if v, ok := lookup(EnvRedis); ok {
		c.Server.RedisAddr = v
	}
}

// Style resolves the configured colors into a render style.
func (r RenderConfig) Style() (render.Style, error) {
	style := render.DefaultStyle()
	for _, c := range []struct {
		name string
		dst  *color.Color
	}{
		{r.Background, &style.Background},
		{r.Stroke, &style.Stroke},
		{r.Accent, &style.Accent},
	} {
		if c.name == "" {
			continue
		}
		col, err := ParseColor(c.name)
		if err != nil {
			return render.Style{}, err
		}
		*c.dst = col
	}
	if r.Padding > 0 {
		style.Padding = r.Padding
	}
	return style, nil
}

// ParseColor accepts an SVG color name or #rrggbb.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
		}
	}
	return nil, fmt.Errorf("unknown color %q", s)
}
