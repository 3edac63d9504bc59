package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Azure      AzureConfig      `yaml:"azure" mapstructure:"azure"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Ticketing  TicketingConfig  `yaml:"ticketing" mapstructure:"ticketing"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Intake     IntakeConfig     `yaml:"intake" mapstructure:"intake"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. For sqlite DatabaseURL is
// the file path; for postgres it is the connection URL.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Pool tuning applies to the postgres driver only; zero means pgx defaults.
	PoolMaxConns int32 `yaml:"pool_max_conns" mapstructure:"pool_max_conns"`
	PoolMinConns int32 `yaml:"pool_min_conns" mapstructure:"pool_min_conns"`
}

// ModelConfig selects the completion provider.
type ModelConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	Deployment string `yaml:"deployment" mapstructure:"deployment"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// TicketingConfig selects and configures the ticketing backend.
type TicketingConfig struct {
	Backend    string           `yaml:"backend" mapstructure:"backend"`
	Jira       JiraConfig       `yaml:"jira" mapstructure:"jira"`
	ServiceNow ServiceNowConfig `yaml:"servicenow" mapstructure:"servicenow"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// JiraConfig holds Jira REST API settings.
type JiraConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Username  string `yaml:"username" mapstructure:"username"`
	Token     string `yaml:"token" mapstructure:"token"`
	Project   string `yaml:"project" mapstructure:"project"`
	IssueType string `yaml:"issue_type" mapstructure:"issue_type"`
}

// ServiceNowConfig holds ServiceNow table API settings.
type ServiceNowConfig struct {
	Instance string `yaml:"instance" mapstructure:"instance"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Category string `yaml:"category" mapstructure:"category"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds the Notion API token and the incident database ID
// escalation summaries publish to.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	IncidentDB string `yaml:"incident_db" mapstructure:"incident_db"`
}

// IntakeConfig configures the mail-drop spool watcher.
type IntakeConfig struct {
	Dir            string     `yaml:"dir" mapstructure:"dir"`
	RescanSeconds  int        `yaml:"rescan_seconds" mapstructure:"rescan_seconds"`
	BackoffSeconds int        `yaml:"backoff_seconds" mapstructure:"backoff_seconds"`
	AutoTicket     bool       `yaml:"auto_ticket" mapstructure:"auto_ticket"`
	SMTP           SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
}

// SMTPConfig holds outbound acknowledgement mail settings. An empty Host
// disables SMTP and acknowledgements fall back to sibling .ack files.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// ScoringConfig bounds how much corpus context one analysis receives.
type ScoringConfig struct {
	TrainingLimit  int `yaml:"training_limit" mapstructure:"training_limit"`
	KnowledgeLimit int `yaml:"knowledge_limit" mapstructure:"knowledge_limit"`
}

// MonitoringConfig configures metric collection and alert thresholds.
type MonitoringConfig struct {
	LookbackHours         int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	MinIncidents          int     `yaml:"min_incidents" mapstructure:"min_incidents"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. path names an
// explicit config file; when empty the optional ./triage.yaml is used.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("triage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default to empty so environment-only
	// deployments bind without a config file.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool_max_conns", 0)
	v.SetDefault("store.pool_min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("model.provider", "azure")
	v.SetDefault("azure.api_key", "")
	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.deployment", "")
	v.SetDefault("azure.api_version", "2024-02-15-preview")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("ticketing.backend", "local")
	v.SetDefault("ticketing.jira.base_url", "")
	v.SetDefault("ticketing.jira.username", "")
	v.SetDefault("ticketing.jira.token", "")
	v.SetDefault("ticketing.jira.project", "")
	v.SetDefault("ticketing.jira.issue_type", "")
	v.SetDefault("ticketing.servicenow.instance", "")
	v.SetDefault("ticketing.servicenow.username", "")
	v.SetDefault("ticketing.servicenow.password", "")
	v.SetDefault("ticketing.servicenow.category", "")
	v.SetDefault("ticketing.salesforce.client_id", "")
	v.SetDefault("ticketing.salesforce.username", "")
	v.SetDefault("ticketing.salesforce.key_path", "")
	v.SetDefault("ticketing.salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.incident_db", "")
	v.SetDefault("intake.dir", "")
	v.SetDefault("intake.rescan_seconds", 60)
	v.SetDefault("intake.backoff_seconds", 300)
	v.SetDefault("intake.auto_ticket", false)
	v.SetDefault("intake.smtp.host", "")
	v.SetDefault("intake.smtp.port", 587)
	v.SetDefault("intake.smtp.username", "")
	v.SetDefault("intake.smtp.password", "")
	v.SetDefault("intake.smtp.from", "")
	v.SetDefault("scoring.training_limit", 3)
	v.SetDefault("scoring.knowledge_limit", 5)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.fallback_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_incidents", 10)

	// Read config file (optional unless named explicitly)
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

// Validate checks the configuration a command mode depends on. Common
// checks run for every mode; mode-specific checks only for their command.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Scoring.TrainingLimit < 1 || c.Scoring.KnowledgeLimit < 1 {
		problems = append(problems, "scoring limits must be >= 1")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "watch":
		if c.Intake.Dir == "" {
			problems = append(problems, "intake.dir is required")
		}
		if c.Intake.RescanSeconds <= 0 || c.Intake.BackoffSeconds <= 0 {
			problems = append(problems, "intake intervals must be > 0")
		}
	case "ticket":
		problems = append(problems, c.ticketingProblems()...)
	case "cli":
		// analyze, classify, import, seed, status, migrate need only
		// the common checks
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) ticketingProblems() []string {
	var problems []string
	switch c.Ticketing.Backend {
	case "", "local":
	case "jira":
		if c.Ticketing.Jira.BaseURL == "" || c.Ticketing.Jira.Username == "" || c.Ticketing.Jira.Token == "" {
			problems = append(problems, "ticketing.jira base_url, username and token are required")
		}
		if c.Ticketing.Jira.Project == "" {
			problems = append(problems, "ticketing.jira.project is required")
		}
	case "servicenow":
		if c.Ticketing.ServiceNow.Instance == "" || c.Ticketing.ServiceNow.Username == "" || c.Ticketing.ServiceNow.Password == "" {
			problems = append(problems, "ticketing.servicenow instance, username and password are required")
		}
	case "salesforce":
		if c.Ticketing.Salesforce.ClientID == "" || c.Ticketing.Salesforce.Username == "" || c.Ticketing.Salesforce.KeyPath == "" {
			problems = append(problems, "ticketing.salesforce client_id, username and key_path are required")
		}
	default:
		problems = append(problems, "ticketing.backend must be local, jira, servicenow or salesforce")
	}
	return problems
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
