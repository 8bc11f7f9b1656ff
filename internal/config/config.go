// internal/config/config.go
//
// This package handles configuration and the .signroll directory structure.
// Every directory signroll runs from gets a .signroll/ folder holding the
// config file, the shared slot database, and the logs.

package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/signroll/internal/artifact"
	"github.com/kingrea/signroll/internal/canvas"
	"github.com/kingrea/signroll/internal/roster"
)

const (
	// SignrollDir is the name of the directory we create in each working directory
	SignrollDir = ".signroll"

	defaultStoreFile       = "slots.db"
	defaultRefreshInterval = 2 * time.Second
	minRefreshInterval     = 100 * time.Millisecond
)

// DefaultRoster is the participant list used when config.yaml names none.
var DefaultRoster = []string{
	"Ahsan", "Nasa", "Alif", "Alifah", "Hanin", "Rijal", "Hasna",
	"Fathir", "Tsabita", "Yusuf", "Fafa", "Umar", "Aisyah", "Ridho", "Arza",
}

const defaultProjectConfigYAML = `# signroll configuration
version: 1

# Participants, in order. Position is identity: reordering names after
# signatures were collected reassigns them.
roster:
  - Ahsan
  - Nasa
  - Alif
  - Alifah
  - Hanin
  - Rijal
  - Hasna
  - Fathir
  - Tsabita
  - Yusuf
  - Fafa
  - Umar
  - Aisyah
  - Ridho
  - Arza

# Slot the signature table is stored under.
slot_key: spreadsheetData

store:
  # Relative paths resolve against the directory signroll runs from.
  path: .signroll/state/slots.db

canvas:
  width: 300
  height: 150
  line_width: 2
  color: "#333333"

artifact:
  format: image/png
  quality: 0.9

# How often to check the slot for changes made by other instances.
refresh_interval: 2s

bridge:
  enabled: false
  host: 127.0.0.1
  port: 8765
  # Other instances to notify after a signature is saved.
  # peers:
  #   - http://127.0.0.1:8766
`

// StoreConfig locates the slot database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CanvasConfig sizes the raster and configures the pen.
type CanvasConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	LineWidth float64 `yaml:"line_width"`
	Color     string  `yaml:"color"`
}

// ArtifactConfig picks the artifact encoding.
type ArtifactConfig struct {
	Format  string   `yaml:"format"`
	Quality *float64 `yaml:"quality,omitempty"`
}

// BridgeConfig configures the loopback change-notification bridge.
type BridgeConfig struct {
	Enabled *bool    `yaml:"enabled,omitempty"`
	Host    string   `yaml:"host,omitempty"`
	Port    int      `yaml:"port,omitempty"`
	Peers   []string `yaml:"peers,omitempty"`
}

// ProjectConfig models .signroll/config.yaml.
type ProjectConfig struct {
	Version         int            `yaml:"version"`
	Roster          []string       `yaml:"roster"`
	SlotKey         string         `yaml:"slot_key"`
	Store           StoreConfig    `yaml:"store"`
	Canvas          CanvasConfig   `yaml:"canvas"`
	Artifact        ArtifactConfig `yaml:"artifact"`
	RefreshInterval string         `yaml:"refresh_interval"`
	Bridge          BridgeConfig   `yaml:"bridge"`
}

// Config holds the runtime configuration for signroll.
type Config struct {
	// BaseDir is the directory signroll was started from
	BaseDir string

	// SignrollProjectDir is BaseDir/.signroll
	SignrollProjectDir string

	Project ProjectConfig
}

// Home resolves the base directory: SIGNROLL_HOME when set, else cwd.
func Home(cwd string) string {
	if home := strings.TrimSpace(os.Getenv("SIGNROLL_HOME")); home != "" {
		return filepath.Clean(home)
	}
	return cwd
}

// InitSignrollDir creates the .signroll directory structure in baseDir.
//
// Structure created:
// .signroll/
// ├── config.yaml
// ├── logs/      <- journey.log (activity) and signroll.log (diagnostics)
// ├── state/     <- slots.db, the shared slot database
// └── exports/   <- default target for `signroll export`
func InitSignrollDir(baseDir string) error {
	dir := filepath.Join(baseDir, SignrollDir)
	dirs := []string{
		filepath.Join(dir, "logs"),
		filepath.Join(dir, "state"),
		filepath.Join(dir, "exports"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// NewConfig loads .signroll/config.yaml from baseDir, falling back to
// defaults when the file does not exist.
func NewConfig(baseDir string) (*Config, error) {
	cfg := &Config{
		BaseDir:            baseDir,
		SignrollProjectDir: filepath.Join(baseDir, SignrollDir),
		Project:            defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.SignrollProjectDir, "logs")
}

// JourneyLogPath returns the activity log shown in the form.
func (c *Config) JourneyLogPath() string {
	return filepath.Join(c.LogsDir(), "journey.log")
}

// ExportsDir returns the default export directory
func (c *Config) ExportsDir() string {
	return filepath.Join(c.SignrollProjectDir, "exports")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.SignrollProjectDir, "config.yaml")
}

// StorePath returns the absolute slot database path.
func (c *Config) StorePath() string {
	return c.Project.Store.Path
}

// SlotKey returns the slot the table is stored under.
func (c *Config) SlotKey() string {
	return c.Project.SlotKey
}

// Roster returns the configured participant roster.
func (c *Config) Roster() (roster.Roster, error) {
	return roster.New(c.Project.Roster)
}

// RefreshInterval returns how often other instances' writes are polled for.
func (c *Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Project.RefreshInterval)
	if err != nil || d < minRefreshInterval {
		return defaultRefreshInterval
	}
	return d
}

// Encoder returns the artifact encoder described by the config.
func (c *Config) Encoder() artifact.Encoder {
	format, err := artifact.ParseFormat(c.Project.Artifact.Format)
	if err != nil {
		format = artifact.FormatPNG
	}
	quality := artifact.DefaultQuality
	if q := c.Project.Artifact.Quality; q != nil {
		quality = *q
	}
	return artifact.Encoder{Format: format, Quality: quality}
}

// CanvasOptions returns the raster and pen settings.
func (c *Config) CanvasOptions() canvas.Options {
	opts := canvas.Options{
		Width:     c.Project.Canvas.Width,
		Height:    c.Project.Canvas.Height,
		LineWidth: c.Project.Canvas.LineWidth,
	}
	if rgb, err := ParseColor(c.Project.Canvas.Color); err == nil {
		opts.Color = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}
	}
	return opts
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.BaseDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.BaseDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if len(pc.Roster) == 0 {
		pc.Roster = append([]string(nil), DefaultRoster...)
	}
	if strings.TrimSpace(pc.SlotKey) == "" {
		pc.SlotKey = roster.DefaultSlotKey
	}
	if strings.TrimSpace(pc.Store.Path) == "" {
		pc.Store.Path = filepath.Join(SignrollDir, "state", defaultStoreFile)
	}
	if pc.Canvas.Width == 0 {
		pc.Canvas.Width = 300
	}
	if pc.Canvas.Height == 0 {
		pc.Canvas.Height = 150
	}
	if pc.Canvas.LineWidth == 0 {
		pc.Canvas.LineWidth = 2
	}
	if strings.TrimSpace(pc.Canvas.Color) == "" {
		pc.Canvas.Color = "#333333"
	}
	if strings.TrimSpace(pc.Artifact.Format) == "" {
		pc.Artifact.Format = string(artifact.FormatPNG)
	}
	if strings.TrimSpace(pc.RefreshInterval) == "" {
		pc.RefreshInterval = defaultRefreshInterval.String()
	}
}

func (pc *ProjectConfig) normalize(base string) {
	for i := range pc.Roster {
		pc.Roster[i] = strings.TrimSpace(pc.Roster[i])
	}
	pc.SlotKey = strings.TrimSpace(pc.SlotKey)
	pc.Store.Path = resolvePath(base, pc.Store.Path)
	pc.Canvas.Color = strings.TrimSpace(pc.Canvas.Color)
	if format, err := artifact.ParseFormat(pc.Artifact.Format); err == nil {
		pc.Artifact.Format = string(format)
	}
	pc.RefreshInterval = strings.TrimSpace(pc.RefreshInterval)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	peers := pc.Bridge.Peers[:0]
	for _, peer := range pc.Bridge.Peers {
		if peer = strings.TrimRight(strings.TrimSpace(peer), "/"); peer != "" {
			peers = append(peers, peer)
		}
	}
	pc.Bridge.Peers = peers
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if _, err := roster.New(pc.Roster); err != nil {
		return err
	}
	if pc.SlotKey == "" {
		return fmt.Errorf("slot_key is required")
	}
	if pc.Canvas.Width <= 0 || pc.Canvas.Height <= 0 {
		return fmt.Errorf("canvas width and height must be positive")
	}
	if pc.Canvas.LineWidth <= 0 {
		return fmt.Errorf("canvas line_width must be positive")
	}
	if _, err := ParseColor(pc.Canvas.Color); err != nil {
		return fmt.Errorf("canvas color: %w", err)
	}
	if _, err := artifact.ParseFormat(pc.Artifact.Format); err != nil {
		return fmt.Errorf("artifact format: %w", err)
	}
	if q := pc.Artifact.Quality; q != nil && (*q < 0 || *q > 1) {
		return fmt.Errorf("artifact quality must be between 0 and 1")
	}
	if _, err := time.ParseDuration(pc.RefreshInterval); err != nil {
		return fmt.Errorf("refresh_interval: %w", err)
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge port must be between 0 and 65535")
	}
	for i, peer := range pc.Bridge.Peers {
		if !strings.HasPrefix(peer, "http://") && !strings.HasPrefix(peer, "https://") {
			return fmt.Errorf("bridge peers[%d]: must be an http(s) URL", i)
		}
	}
	return nil
}

// ParseColor parses "#rgb" or "#rrggbb" into its components.
func ParseColor(value string) ([3]uint8, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return [3]uint8{}, fmt.Errorf("%q is not #rgb or #rrggbb", value)
	}
	var out [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return [3]uint8{}, fmt.Errorf("%q is not #rgb or #rrggbb", value)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if trimmed == ":memory:" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
