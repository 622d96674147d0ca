package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-hed/pkg/api"
	"github.com/mattsolo1/grove-hed/pkg/search"
	"github.com/mattsolo1/grove-hed/pkg/service"
	"github.com/mattsolo1/grove-hed/pkg/viewstate"
)

var (
	cfgFile         string
	ProjectOverride string
)

var settingsValidate = validator.New()

// Settings is the resolved configuration of one invocation.
type Settings struct {
	ServerURL         string        `mapstructure:"server_url" validate:"required,url"`
	Token             string        `mapstructure:"token"`
	Project           string        `mapstructure:"project"`
	View              string        `mapstructure:"view"`
	DataDir           string        `mapstructure:"data_dir" validate:"required"`
	LogLevel          string        `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RateLimit         float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst         int           `mapstructure:"rate_burst" validate:"gte=0"`
	ReloadConcurrency int           `mapstructure:"reload_concurrency" validate:"gte=1"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
}

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "hed")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("HED")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server_url", "http://localhost:5000")
	viper.SetDefault("token", "")
	viper.SetDefault("project", "")
	viper.SetDefault("view", viewstate.DefaultView)
	viper.SetDefault("data_dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "hed"))
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("rate_limit", 20.0)
	viper.SetDefault("rate_burst", 10)
	viper.SetDefault("reload_concurrency", 4)
	viper.SetDefault("metrics_addr", "")

	// A missing config file is fine; everything has a default or an env var.
	_ = viper.ReadInConfig()
}

// Load resolves and validates the settings. The --project flag wins over
// the config file and HED_PROJECT.
func Load() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if ProjectOverride != "" {
		s.Project = ProjectOverride
	}
	if err := settingsValidate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// NewLogger builds the stderr logger at the configured level.
func NewLogger(s *Settings) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

// NewClient builds the API client for the configured server.
func NewClient(s *Settings, logger *logrus.Logger) *api.Client {
	opts := []api.Option{
		api.WithToken(s.Token),
		api.WithLogger(logger),
	}
	if s.Timeout > 0 {
		opts = append(opts, api.WithTimeout(s.Timeout))
	}
	if s.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(s.RateLimit, s.RateBurst))
	}
	return api.New(s.ServerURL, opts...)
}

// InitService creates the editing service of the configured project. The
// returned close function releases the view state database.
func InitService(s *Settings, client *api.Client, logger *logrus.Logger, opts ...service.Option) (*service.Service, func() error, error) {
	if s.Project == "" {
		return nil, nil, fmt.Errorf("no project configured: pass --project or set HED_PROJECT")
	}

	views, err := viewstate.Open(s.DataDir)
	if err != nil {
		return nil, nil, err
	}

	config := &service.Config{
		Project:           s.Project,
		View:              s.View,
		ReloadConcurrency: s.ReloadConcurrency,
	}
	base := []service.Option{
		service.WithLogger(logger),
		service.WithSearchCache(search.NewCache(filepath.Join(s.DataDir, "cache"))),
		service.WithViewState(views),
	}
	svc, err := service.New(config, client, append(base, opts...)...)
	if err != nil {
		views.Close()
		return nil, nil, err
	}
	return svc, views.Close, nil
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hed/config.yaml)")
	cmd.PersistentFlags().StringVarP(&ProjectOverride, "project", "P", "", "Project to edit (overrides HED_PROJECT)")
}
