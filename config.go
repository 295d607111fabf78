package marketwatch

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration makes time.Duration readable from YAML ("24h", "15m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// CacheConfig selects and parameterizes the snapshot store backend: the
// file store by default, or Redis when an address is set.
type CacheConfig struct {
	Dir            string   `yaml:"dir"`
	RedisAddr      string   `yaml:"redis_addr"`
	RedisNamespace string   `yaml:"redis_namespace"`
	TTL            Duration `yaml:"ttl"`
}

// Config is the static portfolio configuration: what is held, how each
// instrument is classified, and how to fetch and cache market data. The
// engine treats it as a read-only input.
type Config struct {
	// ReportingCurrency is the currency in which all aggregates are
	// expressed, e.g. "EUR".
	ReportingCurrency string `yaml:"reporting_currency"`
	// FXInstrument is the instrument carrying the conversion rate between
	// the reporting currency and the foreign currency, e.g. "EURUSD=X".
	FXInstrument string `yaml:"fx_instrument"`

	Interval string `yaml:"interval"`
	Period   string `yaml:"period"`

	// Inception is the reference start date for since-inception
	// performance.
	Inception time.Time `yaml:"inception"`

	// Holdings maps instrument to quantity held. Quantities may be
	// fractional.
	Holdings map[string]Quantity `yaml:"holdings"`
	// Categories maps instrument to a grouping label such as "equity",
	// "crypto" or "forex".
	Categories map[string]string `yaml:"categories"`
	// Quotes maps every instrument to its quote mode. An instrument
	// missing from this map is unsupported: new instruments must be
	// classified explicitly, they never default to the reporting currency.
	Quotes map[string]QuoteMode `yaml:"quotes"`
	// Precision maps instrument to its display precision in decimal
	// digits (default 2).
	Precision map[string]int32 `yaml:"precision"`

	Cache CacheConfig `yaml:"cache"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (*Config, error) {
	input, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %q: %w", filename, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %q: %w", filename, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval == "" {
		c.Interval = "1d"
	}
	if c.Period == "" {
		c.Period = "2y"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(24 * time.Hour)
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".marketwatch"
	}
}

// Validate fails closed: every held instrument must carry an explicit
// quote mode, and every non-reporting mode needs the FX instrument.
func (c *Config) Validate() error {
	if c.ReportingCurrency == "" {
		return fmt.Errorf("reporting_currency is required")
	}
	if len(c.Holdings) == 0 {
		return fmt.Errorf("holdings is empty")
	}
	needsFX := false
	for _, instrument := range sortedKeys(c.Holdings) {
		mode, ok := c.Quotes[instrument]
		if !ok {
			return fmt.Errorf("%s: %w", instrument, ErrUnsupportedInstrument)
		}
		if _, err := ParseQuoteMode(string(mode)); err != nil {
			return fmt.Errorf("%s: %w", instrument, err)
		}
		if mode != QuoteReporting {
			needsFX = true
		}
	}
	if needsFX && c.FXInstrument == "" {
		return fmt.Errorf("fx_instrument is required to convert foreign-quoted holdings")
	}
	for instrument, precision := range c.Precision {
		if precision < 0 {
			return fmt.Errorf("%s: negative precision %d", instrument, precision)
		}
	}
	return nil
}

// Instruments returns the full instrument set to fetch: every holding
// plus the FX instrument, sorted.
func (c *Config) Instruments() []string {
	list := sortedKeys(c.Holdings)
	if c.FXInstrument != "" && !slices.Contains(list, c.FXInstrument) {
		list = append(list, c.FXInstrument)
		slices.Sort(list)
	}
	return list
}

// DisplayPrecision returns the configured display precision for an
// instrument, defaulting to 2 digits.
func (c *Config) DisplayPrecision(instrument string) int32 {
	if p, ok := c.Precision[instrument]; ok {
		return p
	}
	return 2
}

func sortedKeys[V any](m map[string]V) []string {
	list := make([]string, 0, len(m))
	for k := range m {
		list = append(list, k)
	}
	slices.Sort(list)
	return list
}
