package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	configBaseName  = "dispatch_vote_config"
	defaultTTLHours = 168
)

// Environment variables that override values from the config file
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSalt   = "TOKEN_SALT"
	EnvPortalAddr  = "PORTAL_ADDR"
)

// ServerConfig configures the HTTP portal
type ServerConfig struct {
	Addr          string `yaml:"addr" validate:"required"`
	PublicBaseURL string `yaml:"publicBaseURL" validate:"required,url"`
}

// DatabaseConfig configures the postgres connection
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// TokensConfig configures voting token hashing and lifetime
type TokensConfig struct {
	Salt     string `yaml:"salt" validate:"required,min=16"`
	TTLHours int    `yaml:"ttlHours" validate:"min=1"`
}

// VotesConfig configures vote submission rules
type VotesConfig struct {
	RequireReason     bool `yaml:"requireReason"`
	SubmitPauseMillis int  `yaml:"submitPauseMillis" validate:"min=0,max=1000"`
}

// BatchesConfig configures batch creation defaults
type BatchesConfig struct {
	DefaultRRule string `yaml:"defaultRRule,omitempty"`
}

// GmailConfig configures outgoing voting link emails
type GmailConfig struct {
	UserID string `yaml:"userID,omitempty"`
	Sender string `yaml:"sender,omitempty"`
}

// ExportConfig configures the vote summary spreadsheet
type ExportConfig struct {
	SheetID string `yaml:"sheetID,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Tokens   TokensConfig   `yaml:"tokens"`
	Votes    VotesConfig    `yaml:"votes"`
	Batches  BatchesConfig  `yaml:"batches,omitempty"`
	Gmail    GmailConfig    `yaml:"gmail,omitempty"`
	Export   ExportConfig   `yaml:"export,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from dispatch_vote_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads and validates the configuration with an environment suffix
// For example, env="test" will look for "dispatch_vote_config.test.yaml".
// A .env file in the working directory is loaded first, if present, so its values can override the file.
func LoadWithEnv(env string) (*Config, error) {
	if err := loadDotEnv(env); err != nil {
		return nil, err
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Batches.DefaultRRule != "" {
		if _, err := rrule.StrToRRule(cfg.Batches.DefaultRRule); err != nil {
			return fmt.Errorf("invalid rrule in batches.defaultRRule: %w", err)
		}
	}

	return nil
}

// RequireGmail checks the fields needed to email voting links
func (c *Config) RequireGmail() error {
	if c.Gmail.UserID == "" {
		return fmt.Errorf("gmail.userID must be set to send emails")
	}
	return nil
}

// RequireExport checks the fields needed to export votes
func (c *Config) RequireExport() error {
	if c.Export.SheetID == "" {
		return fmt.Errorf("export.sheetID must be set to export votes")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tokens.TTLHours == 0 {
		cfg.Tokens.TTLHours = defaultTTLHours
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvTokenSalt); v != "" {
		cfg.Tokens.Salt = v
	}
	if v := os.Getenv(EnvPortalAddr); v != "" {
		cfg.Server.Addr = v
	}
}

// loadDotEnv loads .env.<env> then .env, ignoring missing files.
// godotenv never overwrites variables that are already set.
func loadDotEnv(env string) error {
	candidates := []string{".env"}
	if env != "" {
		candidates = append([]string{".env." + env}, candidates...)
	}
	for _, name := range candidates {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := configBaseName + ".yaml"
	if env != "" {
		configFileName = configBaseName + "." + env + ".yaml"
	}
	return findFile(configFileName)
}

// findFile returns name if it exists in the current directory, else the same name under the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
