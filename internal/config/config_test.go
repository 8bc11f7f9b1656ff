package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/signroll/internal/artifact"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	baseDir := t.TempDir()
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	r, err := c.Roster()
	if err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}
	if r.Len() != 15 || r[0] != "Ahsan" || r[14] != "Arza" {
		t.Fatalf("unexpected default roster: %v", r)
	}
	if c.SlotKey() != "spreadsheetData" {
		t.Fatalf("expected default slot key, got %q", c.SlotKey())
	}
	want := filepath.Join(baseDir, ".signroll", "state", "slots.db")
	if c.StorePath() != want {
		t.Fatalf("store path = %s, want %s", c.StorePath(), want)
	}
	if c.RefreshInterval() != 2*time.Second {
		t.Fatalf("refresh interval = %s", c.RefreshInterval())
	}
	enc := c.Encoder()
	if enc.Format != artifact.FormatPNG || enc.Quality != artifact.DefaultQuality {
		t.Fatalf("unexpected encoder %+v", enc)
	}
}

func TestInitWritesDefaultConfigThatLoads(t *testing.T) {
	baseDir := t.TempDir()
	if err := InitSignrollDir(baseDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, sub := range []string{"logs", "state", "exports"} {
		if info, err := os.Stat(filepath.Join(baseDir, ".signroll", sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", sub, err)
		}
	}
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if got := c.Encoder().Quality; got != 0.9 {
		t.Fatalf("expected quality 0.9 from default file, got %v", got)
	}
	opts := c.CanvasOptions()
	if opts.Width != 300 || opts.Height != 150 || opts.LineWidth != 2 {
		t.Fatalf("unexpected canvas options %+v", opts)
	}
	if opts.Color.R != 0x33 || opts.Color.A != 0xff {
		t.Fatalf("unexpected pen color %+v", opts.Color)
	}

	// A second init must not clobber edits.
	path := c.ProjectConfigPath()
	if err := os.WriteFile(path, []byte("version: 1\nroster: [A, B]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitSignrollDir(baseDir); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "roster: [A, B]") {
		t.Fatalf("config overwritten: %s", data)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	baseDir := t.TempDir()
	dir := filepath.Join(baseDir, ".signroll")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
roster:
  - " A "
  - B
slot_key: roll-call
store:
  path: data/roll.db
canvas:
  width: 120
  height: 60
  line_width: 3
  color: "#f00"
artifact:
  format: jpg
  quality: 0.5
refresh_interval: 500ms
bridge:
  enabled: true
  port: 9100
  peers:
    - http://127.0.0.1:9101/
    - "  "
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	r, err := c.Roster()
	if err != nil || len(r) != 2 || r[0] != "A" {
		t.Fatalf("roster = %v, err = %v", r, err)
	}
	if c.SlotKey() != "roll-call" {
		t.Fatalf("slot key = %q", c.SlotKey())
	}
	if !strings.HasPrefix(c.StorePath(), baseDir) {
		t.Fatalf("expected store path to be resolved, got %s", c.StorePath())
	}
	if c.RefreshInterval() != 500*time.Millisecond {
		t.Fatalf("refresh interval = %s", c.RefreshInterval())
	}
	enc := c.Encoder()
	if enc.Format != artifact.FormatJPEG || enc.Quality != 0.5 {
		t.Fatalf("encoder = %+v", enc)
	}
	if opts := c.CanvasOptions(); opts.Color.R != 0xff || opts.Color.G != 0 {
		t.Fatalf("short hex color not expanded: %+v", opts.Color)
	}
	if got := c.Project.Bridge.Peers; len(got) != 1 || got[0] != "http://127.0.0.1:9101" {
		t.Fatalf("peers not normalized: %v", got)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	cases := map[string]string{
		"duplicate names": "roster: [A, A]",
		"bad format":      "artifact:\n  format: webp",
		"bad quality":     "artifact:\n  quality: 1.5",
		"bad color":       "canvas:\n  color: blue",
		"bad interval":    "refresh_interval: soon",
		"negative canvas": "canvas:\n  width: -1",
		"bad peer":        "bridge:\n  peers: [127.0.0.1:9000]",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			baseDir := t.TempDir()
			dir := filepath.Join(baseDir, ".signroll")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("version: 1\n"+body+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewConfig(baseDir); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestHomeHonorsEnv(t *testing.T) {
	t.Setenv("SIGNROLL_HOME", "")
	if got := Home("/work"); got != "/work" {
		t.Fatalf("Home = %s", got)
	}
	t.Setenv("SIGNROLL_HOME", "/srv/kiosk/")
	if got := Home("/work"); got != "/srv/kiosk" {
		t.Fatalf("Home = %s", got)
	}
}

func TestParseColor(t *testing.T) {
	rgb, err := ParseColor("#333333")
	if err != nil || rgb != [3]uint8{0x33, 0x33, 0x33} {
		t.Fatalf("ParseColor = %v, %v", rgb, err)
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("expected error for 5-digit color")
	}
	if _, err := ParseColor("#gggggg"); err == nil {
		t.Fatalf("expected error for non-hex color")
	}
}
