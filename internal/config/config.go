// Package config parses the alarm-clock.toml board and daemon configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/alarm-clock/internal/display"
	"github.com/sweeney/alarm-clock/internal/gpio"
	"github.com/sweeney/alarm-clock/internal/keypad"
	"github.com/sweeney/alarm-clock/internal/logic"
)

// FileName is the default config file name.
const FileName = "alarm-clock.toml"

// Config is the top-level alarm-clock.toml configuration.
type Config struct {
	GPIO    GPIOConfig    `toml:"gpio"`
	Keypad  KeypadConfig  `toml:"keypad"`
	Display DisplayConfig `toml:"display"`
	Timing  TimingConfig  `toml:"timing"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	HTTP    HTTPConfig    `toml:"http"`
}

// GPIOConfig selects the chip and line offsets.
type GPIOConfig struct {
	Chip      string `toml:"chip"`
	Rows      [4]int `toml:"rows"`
	Columns   [4]int `toml:"columns"`
	Segments  [8]int `toml:"segments"`
	Positions [4]int `toml:"positions"`
	Lamps     [4]int `toml:"lamps"`
}

// KeypadConfig holds the key map, row by row.
type KeypadConfig struct {
	Map [4][4]int `toml:"map"`
}

// DisplayConfig holds the segment patterns for 0-9, A-F and blank.
type DisplayConfig struct {
	Glyphs [17]int `toml:"glyphs"`
}

// TimingConfig controls the periodic sources and the main loop.
type TimingConfig struct {
	TickMs     int `toml:"tick_ms"`
	RefreshUs  int `toml:"refresh_us"`
	PollMs     int `toml:"poll_ms"`
	SettleUs   int `toml:"settle_us"`
	HeartbeatS int `toml:"heartbeat_s"` // 0 = no MQTT heartbeat
}

// MQTTConfig controls event publishing.
type MQTTConfig struct {
	Broker   string `toml:"broker"` // empty = publishing disabled
	ClientID string `toml:"client_id"`
	Buffer   int    `toml:"buffer"`
}

// HTTPConfig controls the status server.
type HTTPConfig struct {
	Addr string `toml:"addr"` // empty = disabled
}

// Defaults returns a Config matching the reference board.
func Defaults() Config {
	var keys [4][4]int
	for r, row := range keypad.DefaultKeyMap {
		for c, k := range row {
			keys[r][c] = int(k)
		}
	}
	var glyphs [17]int
	for i, g := range display.DefaultGlyphs {
		glyphs[i] = int(g)
	}
	return Config{
		GPIO: GPIOConfig{
			Chip:      gpio.DefaultChip,
			Rows:      gpio.DefaultPins.Rows,
			Columns:   gpio.DefaultPins.Columns,
			Segments:  gpio.DefaultPins.Segments,
			Positions: gpio.DefaultPins.Positions,
			Lamps:     gpio.DefaultPins.Lamps,
		},
		Keypad:  KeypadConfig{Map: keys},
		Display: DisplayConfig{Glyphs: glyphs},
		Timing: TimingConfig{
			TickMs:     1000,
			RefreshUs:  1000,
			PollMs:     10,
			SettleUs:   1000,
			HeartbeatS: 900,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "alarm-clock",
			Buffer:   100,
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.GPIO.Chip == "" {
		errs = append(errs, fmt.Errorf("gpio.chip must not be empty"))
	}
	seen := make(map[int]string)
	for _, group := range []struct {
		name    string
		offsets []int
	}{
		{"rows", c.GPIO.Rows[:]},
		{"columns", c.GPIO.Columns[:]},
		{"segments", c.GPIO.Segments[:]},
		{"positions", c.GPIO.Positions[:]},
		{"lamps", c.GPIO.Lamps[:]},
	} {
		for _, o := range group.offsets {
			if o < 0 {
				errs = append(errs, fmt.Errorf("gpio.%s: offset %d must be >= 0", group.name, o))
				continue
			}
			if prev, ok := seen[o]; ok {
				errs = append(errs, fmt.Errorf("gpio.%s: offset %d already used by gpio.%s", group.name, o, prev))
				continue
			}
			seen[o] = group.name
		}
	}

	for r, row := range c.Keypad.Map {
		for col, k := range row {
			if k < 0 || k > 15 {
				errs = append(errs, fmt.Errorf("keypad.map[%d][%d] must be 0-15, got %d", r, col, k))
			}
		}
	}
	for i, g := range c.Display.Glyphs {
		if g < 0 || g > 0xFF {
			errs = append(errs, fmt.Errorf("display.glyphs[%d] must be 0-255, got %d", i, g))
		}
	}

	if c.Timing.TickMs <= 0 {
		errs = append(errs, fmt.Errorf("timing.tick_ms must be > 0"))
	}
	if c.Timing.RefreshUs <= 0 {
		errs = append(errs, fmt.Errorf("timing.refresh_us must be > 0"))
	}
	if c.Timing.PollMs <= 0 {
		errs = append(errs, fmt.Errorf("timing.poll_ms must be > 0"))
	}
	if c.Timing.SettleUs < 0 {
		errs = append(errs, fmt.Errorf("timing.settle_us must be >= 0"))
	}
	if c.Timing.HeartbeatS < 0 {
		errs = append(errs, fmt.Errorf("timing.heartbeat_s must be >= 0 (0 = disabled)"))
	}

	if c.MQTT.Broker != "" {
		u, err := url.Parse(c.MQTT.Broker)
		if err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("mqtt.broker must be a URL like tcp://host:1883"))
		}
		if c.MQTT.ClientID == "" {
			errs = append(errs, fmt.Errorf("mqtt.client_id must not be empty when mqtt.broker is set"))
		}
	}
	if c.MQTT.Buffer < 0 {
		errs = append(errs, fmt.Errorf("mqtt.buffer must be >= 0"))
	}

	return errors.Join(errs...)
}

// Load reads the config from path. If path is empty the defaults are returned.
// Returns an error if the file contains unknown keys (likely typos).
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return &cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// InitFile writes the default config to dir. It refuses to overwrite an
// existing file.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("config: %s already exists", path)
		}
		return "", fmt.Errorf("config: create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(Defaults()); err != nil {
		f.Close()
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("config: close %s: %w", path, err)
	}
	return path, nil
}

// Pins returns the line offsets.
func (c *Config) Pins() gpio.Pins {
	return gpio.Pins{
		Rows:      c.GPIO.Rows,
		Columns:   c.GPIO.Columns,
		Segments:  c.GPIO.Segments,
		Positions: c.GPIO.Positions,
		Lamps:     c.GPIO.Lamps,
	}
}

// KeyMap converts the configured key map. Call Validate first.
func (c *Config) KeyMap() keypad.KeyMap {
	var m keypad.KeyMap
	for r, row := range c.Keypad.Map {
		for col, k := range row {
			m[r][col] = logic.Key(k)
		}
	}
	return m
}

// Glyphs converts the configured glyph table. Call Validate first.
func (c *Config) Glyphs() display.GlyphTable {
	var g display.GlyphTable
	for i, v := range c.Display.Glyphs {
		g[i] = uint8(v)
	}
	return g
}

// Tick returns the time base period.
func (c *Config) Tick() time.Duration { return time.Duration(c.Timing.TickMs) * time.Millisecond }

// Refresh returns the display refresh period.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.Timing.RefreshUs) * time.Microsecond
}

// Poll returns the main loop period.
func (c *Config) Poll() time.Duration { return time.Duration(c.Timing.PollMs) * time.Millisecond }

// Settle returns the keypad settle delay.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Timing.SettleUs) * time.Microsecond
}

// Heartbeat returns the MQTT heartbeat interval.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.Timing.HeartbeatS) * time.Second
}
