package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DateLayout is the layout used for date-valued config keys.
const DateLayout = "2006-01-02"

// Source drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverCSV      = "csv"
)

// StoreNone disables run tracking.
const StoreNone = "none"

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	RFM     RFMConfig     `yaml:"rfm" mapstructure:"rfm"`
	LTV     LTVConfig     `yaml:"ltv" mapstructure:"ltv"`
	Cohort  CohortConfig  `yaml:"cohort" mapstructure:"cohort"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig selects where transaction data is read from.
type SourceConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite, mysql, csv
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CustomersPath string `yaml:"customers_path" mapstructure:"customers_path"`
	OrdersPath    string `yaml:"orders_path" mapstructure:"orders_path"`
	Charset       string `yaml:"charset" mapstructure:"charset"` // csv files only
	Sheet         string `yaml:"sheet" mapstructure:"sheet"`     // xlsx files only
}

// RFMConfig configures quantile scoring and segmentation.
type RFMConfig struct {
	NQuantiles    int        `yaml:"n_quantiles" mapstructure:"n_quantiles"`
	Weights       RFMWeights `yaml:"weights" mapstructure:"weights"`
	Partitions    int        `yaml:"partitions" mapstructure:"partitions"`
	ReferenceDate string     `yaml:"reference_date" mapstructure:"reference_date"`
}

// RFMWeights holds the composite score weights. They must sum to 1.
type RFMWeights struct {
	Recency   float64 `yaml:"recency" mapstructure:"recency"`
	Frequency float64 `yaml:"frequency" mapstructure:"frequency"`
	Monetary  float64 `yaml:"monetary" mapstructure:"monetary"`
}

// LTVConfig configures lifetime value estimation.
type LTVConfig struct {
	HorizonDays     int     `yaml:"horizon_days" mapstructure:"horizon_days"`
	MinLifetimeDays int     `yaml:"min_lifetime_days" mapstructure:"min_lifetime_days"`
	VIPTopPct       float64 `yaml:"vip_top_pct" mapstructure:"vip_top_pct"`
	SegmentBy       string  `yaml:"segment_by" mapstructure:"segment_by"`
}

// CohortConfig configures cohort retention analysis.
type CohortConfig struct {
	MaxMonths int    `yaml:"max_months" mapstructure:"max_months"`
	StartDate string `yaml:"start_date" mapstructure:"start_date"`
	EndDate   string `yaml:"end_date" mapstructure:"end_date"`
}

// QualityConfig configures the data-quality check suite.
type QualityConfig struct {
	ChecksPath   string `yaml:"checks_path" mapstructure:"checks_path"`
	MinCustomers int    `yaml:"min_customers" mapstructure:"min_customers"`
	MinOrders    int    `yaml:"min_orders" mapstructure:"min_orders"`
}

// ExportConfig configures result sinks.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"` // csv, json, xlsx
	Table  string `yaml:"table" mapstructure:"table"`
}

// StoreConfig configures the run history ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, none
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MonitorConfig configures run-ledger health alerts.
type MonitorConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleRunMinutes      int     `yaml:"stale_run_minutes" mapstructure:"stale_run_minutes"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CUSTVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so env overrides reach Unmarshal.
	v.SetDefault("source.driver", DriverPostgres)
	v.SetDefault("source.database_url", "")
	v.SetDefault("source.customers_path", "")
	v.SetDefault("source.orders_path", "")
	v.SetDefault("source.charset", "")
	v.SetDefault("source.sheet", "")
	v.SetDefault("rfm.n_quantiles", 5)
	v.SetDefault("rfm.weights.recency", 0.4)
	v.SetDefault("rfm.weights.frequency", 0.3)
	v.SetDefault("rfm.weights.monetary", 0.3)
	v.SetDefault("rfm.partitions", 4)
	v.SetDefault("rfm.reference_date", "")
	v.SetDefault("ltv.horizon_days", 365)
	v.SetDefault("ltv.min_lifetime_days", 30)
	v.SetDefault("ltv.vip_top_pct", 10.0)
	v.SetDefault("ltv.segment_by", "customer_state")
	v.SetDefault("cohort.max_months", 12)
	v.SetDefault("cohort.start_date", "")
	v.SetDefault("cohort.end_date", "")
	v.SetDefault("quality.checks_path", "")
	v.SetDefault("quality.min_customers", 90000)
	v.SetDefault("quality.min_orders", 90000)
	v.SetDefault("export.dir", "data/outputs")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.table", "customer_segments")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "custvalue.db")
	v.SetDefault("monitor.webhook_url", "")
	v.SetDefault("monitor.failure_rate_threshold", 0.25)
	v.SetDefault("monitor.stale_run_minutes", 120)
	v.SetDefault("monitor.lookback_window_hours", 24)
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode:
// rfm, ltv, cohort, validate or runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "rfm":
		errs = append(errs, c.Source.validate(true, false)...)
		errs = append(errs, c.RFM.validate()...)
	case "ltv":
		errs = append(errs, c.Source.validate(false, true)...)
		if c.LTV.HorizonDays <= 0 {
			errs = append(errs, "ltv.horizon_days must be > 0")
		}
		if c.LTV.MinLifetimeDays < 0 {
			errs = append(errs, "ltv.min_lifetime_days must be >= 0")
		}
		if c.LTV.VIPTopPct <= 0 || c.LTV.VIPTopPct >= 100 {
			errs = append(errs, "ltv.vip_top_pct must be between 0 and 100 (exclusive)")
		}
	case "cohort":
		errs = append(errs, c.Source.validate(false, true)...)
		if c.Cohort.MaxMonths < 1 {
			errs = append(errs, "cohort.max_months must be >= 1")
		}
		start, err1 := ParseDate(c.Cohort.StartDate)
		if err1 != nil {
			errs = append(errs, "cohort.start_date must be YYYY-MM-DD")
		}
		end, err2 := ParseDate(c.Cohort.EndDate)
		if err2 != nil {
			errs = append(errs, "cohort.end_date must be YYYY-MM-DD")
		}
		if start != nil && end != nil && end.Before(*start) {
			errs = append(errs, "cohort.end_date must not be before cohort.start_date")
		}
	case "validate":
		if c.Source.Driver != DriverPostgres {
			errs = append(errs, "validate requires source.driver=postgres")
		}
		if c.Source.DatabaseURL == "" {
			errs = append(errs, "source.database_url is required")
		}
	case "runs":
		if c.Store.Driver == StoreNone {
			errs = append(errs, "runs requires store.driver=sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.Store.validate()...)
	if mode != "runs" {
		switch c.Export.Format {
		case "csv", "json", "xlsx":
		default:
			errs = append(errs, fmt.Sprintf("export.format must be csv, json or xlsx, got %q", c.Export.Format))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s SourceConfig) validate(needCustomers, needOrders bool) []string {
	var errs []string
	switch s.Driver {
	case DriverPostgres, DriverSQLite, DriverMySQL:
		if s.DatabaseURL == "" {
			errs = append(errs, "source.database_url is required")
		}
	case DriverCSV:
		if needCustomers && s.CustomersPath == "" && s.OrdersPath == "" {
			errs = append(errs, "source.customers_path or source.orders_path is required")
		}
		if needOrders && s.OrdersPath == "" {
			errs = append(errs, "source.orders_path is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.driver %q is not supported", s.Driver))
	}
	return errs
}

func (s StoreConfig) validate() []string {
	switch s.Driver {
	case StoreNone, DriverSQLite:
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
	default:
		return []string{fmt.Sprintf("store.driver %q is not supported", s.Driver)}
	}
	return nil
}

func (r RFMConfig) validate() []string {
	var errs []string
	if r.NQuantiles < 3 || r.NQuantiles > 10 {
		errs = append(errs, "rfm.n_quantiles must be between 3 and 10")
	}
	if r.Partitions < 1 {
		errs = append(errs, "rfm.partitions must be >= 1")
	}
	if _, err := ParseDate(r.ReferenceDate); err != nil {
		errs = append(errs, "rfm.reference_date must be YYYY-MM-DD")
	}
	return errs
}

// ParseDate parses an optional YYYY-MM-DD value. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, eris.Wrapf(err, "config: parse date %q", s)
	}
	return &t, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
