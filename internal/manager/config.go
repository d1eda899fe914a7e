package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/backtest/commission_fee"
	"github.com/rxtech-lab/turtle-trading/internal/performance"
	"github.com/rxtech-lab/turtle-trading/internal/strategy"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mode selects what the binary does with a config.
type Mode string

const (
	ModeCollectData Mode = "collect-data"
	ModeBacktest    Mode = "backtest"
	ModeLiveTrade   Mode = "live-trade"
	ModeViewHistory Mode = "view-history"
)

var AllModes = []any{
	ModeCollectData,
	ModeBacktest,
	ModeLiveTrade,
	ModeViewHistory,
}

// Config is the YAML configuration of a manager and the commands built on it.
type Config struct {
	Mode     Mode     `yaml:"mode" json:"mode" jsonschema:"title=Mode,description=What to run"`
	Symbols  []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Instruments to trade (e.g. BTCUSDT),required" validate:"required,min=1,dive,required"`
	Interval string   `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Bar interval,default=1h,enum=1m,enum=3m,enum=5m,enum=15m,enum=30m,enum=1h,enum=2h,enum=4h,enum=6h,enum=8h,enum=12h,enum=1d,enum=3d,enum=1w" validate:"required,oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w"`
	// InitialCapital is the starting equity of every instrument's ledger.
	InitialCapital float64               `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital per instrument in quote currency,default=10000,exclusiveMinimum=0"`
	Params         types.TurtleParams    `yaml:"params" json:"params" jsonschema:"title=Turtle Parameters"`
	Broker         commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	SlippageBps    float64               `yaml:"slippage_bps" json:"slippage_bps" jsonschema:"title=Slippage,description=Adverse price move applied to every fill in basis points,default=0,minimum=0" validate:"gte=0"`
	LotSize        float64               `yaml:"lot_size" json:"lot_size" jsonschema:"title=Lot Size,description=Smallest tradable size,default=1,minimum=0" validate:"gte=0"`
	// MaxNotionalFraction caps what the open position may cost as a share of equity.
	MaxNotionalFraction float64 `yaml:"max_notional_fraction" json:"max_notional_fraction" jsonschema:"title=Max Notional Fraction,description=Largest share of equity the open position may cost,default=0.95,exclusiveMinimum=0" validate:"gt=0"`
	// AnnualizationFactor scales the Sharpe ratio. Zero derives it from Interval.
	AnnualizationFactor float64                    `yaml:"annualization_factor" json:"annualization_factor" jsonschema:"title=Annualization Factor,description=Bars per year for the Sharpe ratio. 0 derives it from the interval,default=0,minimum=0" validate:"gte=0"`
	DatabasePath        string                     `yaml:"database_path" json:"database_path" jsonschema:"title=Database Path,description=DuckDB file holding bars and signals,default=turtle.duckdb"`
	StartTime           optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the data range"`
	EndTime             optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the data range"`
	// EventsAddr is where live mode serves the WebSocket event feed, disabled when empty.
	EventsAddr string `yaml:"events_addr" json:"events_addr" jsonschema:"title=Events Address,description=Listen address of the live event feed (e.g. :8080)"`
}

// DefaultConfig returns a backtest config for BTCUSDT on hourly bars.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeBacktest,
		Symbols:             []string{"BTCUSDT"},
		Interval:            "1h",
		InitialCapital:      10000,
		Params:              types.DefaultTurtleParams(),
		Broker:              commission_fee.BrokerZero,
		SlippageBps:         0,
		LotSize:             0,
		MaxNotionalFraction: strategy.DefaultMaxNotionalFraction,
		AnnualizationFactor: 0,
		DatabasePath:        "turtle.duckdb",
		StartTime:           optional.None[time.Time](),
		EndTime:             optional.None[time.Time](),
		EventsAddr:          "",
	}
}

// UnmarshalYAML fills unset fields from DefaultConfig and maps the optional times.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Mode                *Mode                  `yaml:"mode"`
		Symbols             []string               `yaml:"symbols"`
		Interval            *string                `yaml:"interval"`
		InitialCapital      *float64               `yaml:"initial_capital"`
		Params              *yaml.Node             `yaml:"params"`
		Broker              *commission_fee.Broker `yaml:"broker"`
		SlippageBps         *float64               `yaml:"slippage_bps"`
		LotSize             *float64               `yaml:"lot_size"`
		MaxNotionalFraction *float64               `yaml:"max_notional_fraction"`
		AnnualizationFactor *float64               `yaml:"annualization_factor"`
		DatabasePath        *string                `yaml:"database_path"`
		StartTime           *time.Time             `yaml:"start_time"`
		EndTime             *time.Time             `yaml:"end_time"`
		EventsAddr          *string                `yaml:"events_addr"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	config := DefaultConfig()

	if raw.Mode != nil {
		config.Mode = *raw.Mode
	}

	if raw.Symbols != nil {
		config.Symbols = raw.Symbols
	}

	if raw.Interval != nil {
		config.Interval = *raw.Interval
	}

	if raw.InitialCapital != nil {
		config.InitialCapital = *raw.InitialCapital
	}

	if raw.Params != nil {
		// omitted params keep their defaults
		if err := raw.Params.Decode(&config.Params); err != nil {
			return err
		}
	}

	if raw.Broker != nil {
		config.Broker = *raw.Broker
	}

	if raw.SlippageBps != nil {
		config.SlippageBps = *raw.SlippageBps
	}

	if raw.LotSize != nil {
		config.LotSize = *raw.LotSize
	}

	if raw.MaxNotionalFraction != nil {
		config.MaxNotionalFraction = *raw.MaxNotionalFraction
	}

	if raw.AnnualizationFactor != nil {
		config.AnnualizationFactor = *raw.AnnualizationFactor
	}

	if raw.DatabasePath != nil {
		config.DatabasePath = *raw.DatabasePath
	}

	if raw.StartTime != nil {
		config.StartTime = optional.Some(*raw.StartTime)
	}

	if raw.EndTime != nil {
		config.EndTime = optional.Some(*raw.EndTime)
	}

	if raw.EventsAddr != nil {
		config.EventsAddr = *raw.EventsAddr
	}

	*c = config

	return nil
}

// ParseConfig decodes and validates a YAML config.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return ParseConfig(data)
}

var configValidator = validator.New()

// Validate rejects any configuration that cannot be run. Values are never clamped.
func (c Config) Validate() error {
	if !c.Mode.valid() {
		return errors.Newf(errors.ErrCodeInvalidMode, "unknown mode %q", c.Mode)
	}

	if c.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %.2f", c.InitialCapital)
	}

	if err := c.Params.Validate(); err != nil {
		return err
	}

	if err := configValidator.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if !c.validBroker() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown broker %q", c.Broker)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.StartTime.Unwrap().Before(c.EndTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "start_time must be before end_time")
	}

	return nil
}

func (m Mode) valid() bool {
	for _, mode := range AllModes {
		if mode == m {
			return true
		}
	}

	return false
}

func (c Config) validBroker() bool {
	for _, broker := range commission_fee.AllBrokers {
		if broker == c.Broker {
			return true
		}
	}

	return false
}

// intervalDurations maps the supported bar intervals to their length.
var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// AnnualizationFactorFor returns how many bars of interval fit in a 365-day
// year, the daily factor for unknown intervals.
func AnnualizationFactorFor(interval string) float64 {
	length, ok := intervalDurations[interval]
	if !ok {
		return performance.DefaultAnnualizationFactor
	}

	return float64(365*24*time.Hour) / float64(length)
}

// SharpeFactor is AnnualizationFactor, or the factor of Interval when unset.
func (c Config) SharpeFactor() float64 {
	if c.AnnualizationFactor > 0 {
		return c.AnnualizationFactor
	}

	return AnnualizationFactorFor(c.Interval)
}

// Commission returns the commission model of the configured broker.
func (c Config) Commission() commission_fee.CommissionFee {
	return commission_fee.GetCommissionFeeHandler(c.Broker)
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if strings.Contains(t.String(), "manager.Mode") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllModes,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "turtle-trading-config"
	schema.Description = "Configuration schema for the turtle trading engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(schemaBytes), nil
}
