package config

import "time"

// Config is the full pipeline configuration. Values come from an optional
// config.yml, an optional .env file and MEDALLION_-prefixed environment
// variables, in that order of precedence (env wins).
type Config struct {
	DataRoot string       `mapstructure:"data_root"`
	Log      LogConfig    `mapstructure:"log"`
	Source   SourceConfig `mapstructure:"source"`
	Rules    RulesConfig  `mapstructure:"rules"`
	SMTP     SMTPConfig   `mapstructure:"smtp"`
	Alert    AlertConfig  `mapstructure:"alert"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SourceConfig describes the external brewery API and the fetch limits.
type SourceConfig struct {
	BaseURLs       []string      `mapstructure:"base_urls"`
	PerPage        int           `mapstructure:"per_page"`
	MaxPages       int           `mapstructure:"max_pages"`
	MaxRecords     int           `mapstructure:"max_records"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// RulesConfig parameterizes the static data-quality rule set.
type RulesConfig struct {
	MinRows             int     `mapstructure:"min_rows"`
	MaxWebsiteNullRatio float64 `mapstructure:"max_website_null_ratio"`
	MinStates           int     `mapstructure:"min_states"`
	RangeTolerance      int     `mapstructure:"range_tolerance"`
}

// SMTPConfig holds the mail transport settings. Credentials normally come
// from the environment, not the config file.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	StartTLS bool   `mapstructure:"starttls"`
}

// AlertConfig controls alert dispatch.
type AlertConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Recipients []string `mapstructure:"recipients"`
}

// ApplyDefaults fills unset values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.DataRoot == "" {
		c.DataRoot = "data"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Source.BaseURLs) == 0 {
		c.Source.BaseURLs = []string{
			"https://api.openbrewerydb.org/v1/breweries",
			"https://api.openbrewerydb.org/breweries",
		}
	}
	if c.Source.PerPage <= 0 {
		c.Source.PerPage = 50
	}
	if c.Source.MaxPages <= 0 {
		c.Source.MaxPages = 5
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = 30 * time.Second
	}
	if c.Source.RetryAttempts <= 0 {
		c.Source.RetryAttempts = 3
	}
	if c.Source.RetryDelay <= 0 {
		c.Source.RetryDelay = time.Second
	}
	if c.Source.RetryMaxDelay <= 0 {
		c.Source.RetryMaxDelay = 30 * time.Second
	}
	if c.Rules.MinRows <= 0 {
		c.Rules.MinRows = 50
	}
	if c.Rules.MaxWebsiteNullRatio <= 0 {
		c.Rules.MaxWebsiteNullRatio = 0.2
	}
	if c.Rules.MinStates <= 0 {
		c.Rules.MinStates = 5
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "medallion@localhost"
	}
}
