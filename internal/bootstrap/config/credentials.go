package config

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
)

// applyCredentialFiles fills connection settings from the JSON credential
// files operators already keep for the database and Jira. Values set in the
// config file or environment take precedence.
func applyCredentialFiles(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if path := strings.TrimSpace(cfg.Source.CredentialsFile); path != "" {
		creds, err := readCredentials(path)
		if err != nil {
			return errs.Wrap(err, "read source credentials")
		}
		fillString(&cfg.Source.Host, creds.GetString("DB_HOST"))
		fillString(&cfg.Source.Name, creds.GetString("DB_NAME"))
		fillString(&cfg.Source.User, creds.GetString("DB_USER"))
		fillString(&cfg.Source.Password, creds.GetString("DB_PASS"))
		if port := creds.GetInt("DB_PORT"); port > 0 && (cfg.Source.Port == 0 || cfg.Source.Port == 5432) {
			cfg.Source.Port = port
		}
		logging.Info(ctx, "source credentials loaded", slog.String("path", path))
	}

	if path := strings.TrimSpace(cfg.Tracker.Jira.CredentialsFile); path != "" {
		creds, err := readCredentials(path)
		if err != nil {
			return errs.Wrap(err, "read jira credentials")
		}
		fillString(&cfg.Tracker.Jira.Server, creds.GetString("server"))
		fillString(&cfg.Tracker.Jira.Username, creds.GetString("username"))
		fillString(&cfg.Tracker.Jira.APIKey, creds.GetString("api_key"))
		logging.Info(ctx, "jira credentials loaded", slog.String("path", path))
	}

	return nil
}

func readCredentials(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errs.Wrapf(err, "read %s", path)
	}
	return v, nil
}

func fillString(target *string, value string) {
	if strings.TrimSpace(*target) == "" {
		*target = strings.TrimSpace(value)
	}
}
