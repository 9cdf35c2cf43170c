package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. GRIDMATCH_DIMENSION.
const EnvPrefix = "GRIDMATCH_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the runtime configuration.
type Config struct {
	Addr           string   `mapstructure:"addr"`
	Dimension      int      `mapstructure:"dimension"`
	StartingPlayer int      `mapstructure:"starting_player"`
	PlayerOneIcon  int      `mapstructure:"player_one_icon"`
	PlayerTwoIcon  int      `mapstructure:"player_two_icon"`
	Glyphs         []string `mapstructure:"glyphs"`
	LogLevel       string   `mapstructure:"log_level"`
	Development    bool     `mapstructure:"development"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		Dimension:      3,
		StartingPlayer: 1,
		PlayerOneIcon:  0,
		PlayerTwoIcon:  1,
		Glyphs:         []string{"X", "O", "+", "*"},
		LogLevel:       "info",
	}
}

// Load reads path (optional) as YAML, applies environment overrides and validates.
func Load(path string) (Config, error) {
	raw := map[string]interface{}{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if raw, err = Parse(data); err != nil {
			return Config{}, err
		}
	}
	applyEnv(raw, os.LookupEnv)
	return decode(raw)
}

// Parse unmarshals a YAML document into a flat key map.
func Parse(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return doc, nil
}

func applyEnv(raw map[string]interface{}, lookup func(string) (string, bool)) {
	for _, key := range []string{"addr", "dimension", "starting_player", "player_one_icon",
		"player_two_icon", "glyphs", "log_level", "development"} {
		v, ok := lookup(EnvPrefix + strings.ToUpper(key))
		if !ok {
			continue
		}
		if key == "glyphs" {
			raw[key] = strings.Split(v, ",")
			continue
		}
		raw[key] = v
	}
}

func decode(raw map[string]interface{}) (Config, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges. An out-of-range dimension is rejected, never clamped.
func (c Config) Validate() error {
	if !domain.ValidDimension(c.Dimension) {
		return fmt.Errorf("%w: dimension %d not in [%d,%d]", ErrInvalid, c.Dimension, domain.MinDimension, domain.MaxDimension)
	}
	if c.StartingPlayer != int(domain.Player1) && c.StartingPlayer != int(domain.Player2) {
		return fmt.Errorf("%w: starting_player must be 1 or 2", ErrInvalid)
	}
	if len(c.Glyphs) < 2 {
		return fmt.Errorf("%w: need at least two glyphs", ErrInvalid)
	}
	for _, icon := range []int{c.PlayerOneIcon, c.PlayerTwoIcon} {
		if icon < 0 || icon >= len(c.Glyphs) {
			return fmt.Errorf("%w: icon %d has no glyph", ErrInvalid, icon)
		}
	}
	if c.PlayerOneIcon == c.PlayerTwoIcon {
		return fmt.Errorf("%w: players need different icons", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl, err
}

// Glyph returns the display glyph for an icon.
func (c Config) Glyph(icon int) string {
	if icon < 0 || icon >= len(c.Glyphs) {
		return "?"
	}
	return c.Glyphs[icon]
}

// Settings returns the match settings described by c.
func (c Config) Settings() app.Settings {
	return app.Settings{
		Dimension:      c.Dimension,
		PlayerOneIcon:  c.PlayerOneIcon,
		PlayerTwoIcon:  c.PlayerTwoIcon,
		StartingPlayer: domain.Cell(c.StartingPlayer),
	}
}
