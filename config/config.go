// Package config loads the bot settings from an optional config file, a .env
// file and STEAMBOT_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zergu1ar/steambot/policy"
	"github.com/zergu1ar/steambot/steam"
)

const envPrefix = "STEAMBOT"

const (
	HandlerSimple     = "simple"
	HandlerTradeOffer = "tradeoffer"
)

type Config struct {
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SharedSecret   string `mapstructure:"shared_secret"`
	IdentitySecret string `mapstructure:"identity_secret"`
	APIKey         string `mapstructure:"api_key"`
	Language       string `mapstructure:"language"`

	Admins          []string `mapstructure:"admins"`
	Handler         string   `mapstructure:"handler"`
	CounterStrategy string   `mapstructure:"counter_strategy"`
	ChatResponse    string   `mapstructure:"chat_response"`

	// TradeTokens maps partner steam ids to their trade offer tokens.
	TradeTokens map[string]string `mapstructure:"trade_tokens"`

	PollInterval         time.Duration `mapstructure:"poll_interval"`
	ConfirmationInterval time.Duration `mapstructure:"confirmation_interval"`
	ConfirmationDelay    time.Duration `mapstructure:"confirmation_delay"`

	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

var defaults = map[string]interface{}{
	"username":              "",
	"password":              "",
	"shared_secret":         "",
	"identity_secret":       "",
	"api_key":               "",
	"language":              steam.LanguageEng,
	"admins":                []string{},
	"handler":               HandlerSimple,
	"counter_strategy":      "empty",
	"chat_response":         "",
	"trade_tokens":          map[string]string{},
	"poll_interval":         30 * time.Second,
	"confirmation_interval": 10 * time.Second,
	"confirmation_delay":    time.Second,
	"log_level":             "info",
	"log_format":            "json",
	"metrics_addr":          ":9090",
}

// Load reads path (if not empty) and the given env files, ".env" when none
// are named. Missing env files are ignored; a missing config file is not.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}
	switch c.Handler {
	case HandlerSimple, HandlerTradeOffer:
	default:
		errs = append(errs, fmt.Errorf("unknown handler %q", c.Handler))
	}
	if _, ok := policy.StrategyByName(c.CounterStrategy, nil); !ok {
		errs = append(errs, fmt.Errorf("unknown counter strategy %q", c.CounterStrategy))
	}
	if c.PollInterval <= 0 || c.ConfirmationInterval <= 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if _, err := c.AdminIDs(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PartnerTradeTokens(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AdminIDs parses the admin list. Both SteamID64 and [U:1:n] forms are accepted.
func (c *Config) AdminIDs() ([]steam.SteamID, error) {
	ids := make([]steam.SteamID, 0, len(c.Admins))
	for _, raw := range c.Admins {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		sid, err := steam.ParseSteamID(raw)
		if err != nil {
			return nil, fmt.Errorf("admin %q: %w", raw, err)
		}
		ids = append(ids, sid)
	}
	return ids, nil
}

func (c *Config) PartnerTradeTokens() (map[steam.SteamID]string, error) {
	tokens := make(map[steam.SteamID]string, len(c.TradeTokens))
	for raw, token := range c.TradeTokens {
		sid, err := steam.ParseSteamID(raw)
		if err != nil {
			return nil, fmt.Errorf("trade token for %q: %w", raw, err)
		}
		if token = strings.TrimSpace(token); token != "" {
			tokens[sid] = token
		}
	}
	return tokens, nil
}

func (c *Config) Credentials() *steam.Credentials {
	return &steam.Credentials{
		Username:       c.Username,
		Password:       c.Password,
		SharedSecret:   c.SharedSecret,
		IdentitySecret: c.IdentitySecret,
	}
}
