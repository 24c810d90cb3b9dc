package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
)

const (
	ProviderJira   = "jira"
	ProviderGitHub = "github"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Source    SourceConfig    `mapstructure:"source"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Ownership OwnershipConfig `mapstructure:"ownership"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func (c LogConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SourceConfig describes the catalog database. DSN wins over the individual
// parts; CredentialsFile fills parts that are still empty.
type SourceConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Query           string `mapstructure:"query"`
}

func (s SourceConfig) Database() DatabaseConfig {
	dsn := strings.TrimSpace(s.DSN)
	if dsn == "" && isPostgres(s.Driver) {
		dsn = s.PostgresDSN()
	}
	return DatabaseConfig{Driver: s.Driver, DSN: dsn}
}

// PostgresDSN renders the parts as a libpq keyword/value string.
func (s SourceConfig) PostgresDSN() string {
	if strings.TrimSpace(s.Host) == "" {
		return ""
	}
	parts := []string{"host=" + quoteDSNValue(s.Host)}
	if s.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", s.Port))
	}
	if s.User != "" {
		parts = append(parts, "user="+quoteDSNValue(s.User))
	}
	if s.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(s.Password))
	}
	if s.Name != "" {
		parts = append(parts, "dbname="+quoteDSNValue(s.Name))
	}
	if s.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(s.SSLMode))
	}
	return strings.Join(parts, " ")
}

type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

func (l LedgerConfig) Database() DatabaseConfig {
	return DatabaseConfig{Driver: l.Driver, DSN: l.DSN}
}

type TrackerConfig struct {
	Provider        string            `mapstructure:"provider"`
	ProjectKey      string            `mapstructure:"project_key"`
	ParentKey       string            `mapstructure:"parent_key"`
	IssueType       string            `mapstructure:"issue_type"`
	SentinelSummary string            `mapstructure:"sentinel_summary"`
	ClosedStatuses  []string          `mapstructure:"closed_statuses"`
	Transitions     TransitionsConfig `mapstructure:"transitions"`
	Jira            JiraConfig        `mapstructure:"jira"`
	GitHub          GitHubConfig      `mapstructure:"github"`
}

type TransitionsConfig struct {
	Close  string `mapstructure:"close"`
	Reopen string `mapstructure:"reopen"`
}

type JiraConfig struct {
	Server          string `mapstructure:"server"`
	Username        string `mapstructure:"username"`
	APIKey          string `mapstructure:"api_key"`
	AssignBy        string `mapstructure:"assign_by"`
	PageSize        int    `mapstructure:"page_size"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type GitHubConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
	PageSize       int    `mapstructure:"page_size"`
}

type OwnershipConfig struct {
	File string            `mapstructure:"file"`
	Map  map[string]string `mapstructure:"map"`
}

type FilterConfig struct {
	ExcludeSchemas        []string `mapstructure:"exclude_schemas"`
	ExcludeOwners         []string `mapstructure:"exclude_owners"`
	ExcludeSchemaPrefixes []string `mapstructure:"exclude_schema_prefixes"`
}

type PublishConfig struct {
	Filters FilterConfig `mapstructure:"filters"`
}

type SweepConfig struct {
	Filters   FilterConfig `mapstructure:"filters"`
	MaxCloses int          `mapstructure:"max_closes"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

type NotifyConfig struct {
	NATS NATSConfig `mapstructure:"nats"`
}

type NATSConfig struct {
	URL     string        `mapstructure:"url"`
	Subject string        `mapstructure:"subject"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (n NATSConfig) Enabled() bool {
	return strings.TrimSpace(n.URL) != ""
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("DBDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := applyCredentialFiles(logCtx, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, errs.Wrap(err, "validate config")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("source_driver", cfg.Source.Driver),
		slog.String("tracker", cfg.Tracker.Provider),
		slog.String("project", cfg.Tracker.ProjectKey),
		slog.Bool("ledger", cfg.Ledger.Enabled),
	)

	return cfg, nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "dbdoc")
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.host", "")
	v.SetDefault("source.port", 5432)
	v.SetDefault("source.name", "")
	v.SetDefault("source.user", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.sslmode", "require")
	v.SetDefault("source.credentials_file", "")
	v.SetDefault("source.query", "")

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.dsn", ".dbdoc/ledger.sqlite")

	v.SetDefault("tracker.provider", ProviderJira)
	v.SetDefault("tracker.project_key", "")
	v.SetDefault("tracker.parent_key", "")
	v.SetDefault("tracker.issue_type", "Sub-task")
	v.SetDefault("tracker.sentinel_summary", "DO NOT REMOVE")
	v.SetDefault("tracker.closed_statuses", []string{"done", "resolved", "ended", "closed"})
	v.SetDefault("tracker.transitions.close", "")
	v.SetDefault("tracker.transitions.reopen", "")
	v.SetDefault("tracker.jira.server", "")
	v.SetDefault("tracker.jira.username", "")
	v.SetDefault("tracker.jira.api_key", "")
	v.SetDefault("tracker.jira.assign_by", "account_id")
	v.SetDefault("tracker.jira.page_size", 100)
	v.SetDefault("tracker.jira.credentials_file", "")
	v.SetDefault("tracker.github.base_url", "")
	v.SetDefault("tracker.github.token", "")
	v.SetDefault("tracker.github.app_id", 0)
	v.SetDefault("tracker.github.installation_id", 0)
	v.SetDefault("tracker.github.private_key_file", "")
	v.SetDefault("tracker.github.page_size", 100)

	v.SetDefault("ownership.file", "")

	v.SetDefault("publish.filters.exclude_schemas", []string{"information_schema", "pg_catalog"})
	v.SetDefault("publish.filters.exclude_owners", []string{"rdsadmin"})
	v.SetDefault("publish.filters.exclude_schema_prefixes", []string{"udb_"})
	v.SetDefault("sweep.filters.exclude_schemas", []string{})
	v.SetDefault("sweep.filters.exclude_owners", []string{})
	v.SetDefault("sweep.filters.exclude_schema_prefixes", []string{})
	v.SetDefault("sweep.max_closes", 0)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 10*time.Second)

	v.SetDefault("notify.nats.url", "")
	v.SetDefault("notify.nats.subject", "dbdoc.runs")
	v.SetDefault("notify.nats.timeout", 5*time.Second)
}

func (c *Config) normalize() {
	c.Tracker.Provider = strings.ToLower(strings.TrimSpace(c.Tracker.Provider))
	c.Source.Driver = strings.ToLower(strings.TrimSpace(c.Source.Driver))

	if c.Tracker.Transitions.Close == "" {
		c.Tracker.Transitions.Close = defaultTransition(c.Tracker.Provider, true)
	}
	if c.Tracker.Transitions.Reopen == "" {
		c.Tracker.Transitions.Reopen = defaultTransition(c.Tracker.Provider, false)
	}
}

func defaultTransition(provider string, closing bool) string {
	switch provider {
	case ProviderGitHub:
		if closing {
			return "closed"
		}
		return "open"
	default:
		if closing {
			return "41"
		}
		return "11"
	}
}

func (c Config) Validate() error {
	var problems []string

	if c.Tracker.ProjectKey == "" {
		problems = append(problems, "tracker.project_key is required")
	}
	switch c.Tracker.Provider {
	case ProviderJira:
		if c.Tracker.Jira.Server == "" {
			problems = append(problems, "tracker.jira.server is required")
		}
	case ProviderGitHub:
		gh := c.Tracker.GitHub
		if gh.Token == "" && gh.AppID == 0 {
			problems = append(problems, "tracker.github.token or tracker.github.app_id is required")
		}
		if !strings.Contains(c.Tracker.ProjectKey, "/") {
			problems = append(problems, "tracker.project_key must be owner/repo for github")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported tracker.provider %q", c.Tracker.Provider))
	}

	if c.Source.Database().DSN == "" {
		problems = append(problems, "source.dsn or source.host is required")
	}
	if c.Ledger.Enabled && c.Ledger.DSN == "" {
		problems = append(problems, "ledger.dsn is required when the ledger is enabled")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		problems = append(problems, "retry.delay must not be negative")
	}
	if c.Sweep.MaxCloses < 0 {
		problems = append(problems, "sweep.max_closes must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func isPostgres(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return true
	default:
		return false
	}
}

func quoteDSNValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}
