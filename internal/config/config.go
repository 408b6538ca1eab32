package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"dive,url"`
	MaxBodyBytes   int64    `yaml:"maxBodyBytes" validate:"min=1"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// IncidentIQConfig identifies the district tenant on the ticketing API
type IncidentIQConfig struct {
	BaseURL string `yaml:"baseURL" validate:"required,url"`
	SiteID  string `yaml:"siteID" validate:"required"`
	Client  string `yaml:"client" validate:"required"`
}

// GeminiConfig selects the generative-language endpoint and model
type GeminiConfig struct {
	BaseURL string `yaml:"baseURL" validate:"required,url"`
	Model   string `yaml:"model" validate:"required"`
}

// DriveConfig is where kiosk recordings are uploaded
type DriveConfig struct {
	FolderID string `yaml:"folderID" validate:"required"`
	MimeType string `yaml:"mimeType" validate:"required"`
}

// SheetsConfig is the spreadsheet that receives new waivers
type SheetsConfig struct {
	WaiverSpreadsheetID string `yaml:"waiverSpreadsheetID" validate:"required"`
	WaiverSheetName     string `yaml:"waiverSheetName" validate:"required"`
}

// MailConfig controls message notification emails
type MailConfig struct {
	FromName   string `yaml:"fromName" validate:"required"`
	Sender     string `yaml:"sender" validate:"required,email"`
	FallbackTo string `yaml:"fallbackTo" validate:"required,email"`
	Bcc        string `yaml:"bcc" validate:"omitempty,email"`
}

// IdentityConfig points at the identity provider project
type IdentityConfig struct {
	ProjectID string `yaml:"projectID" validate:"required"`
	CertURL   string `yaml:"certURL" validate:"required,url"`
}

// SpeechConfig holds the transcription defaults used when a request omits them
type SpeechConfig struct {
	Encoding        string `yaml:"encoding" validate:"required"`
	SampleRateHertz int64  `yaml:"sampleRateHertz" validate:"min=8000"`
	LanguageCode    string `yaml:"languageCode" validate:"required"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set
type TelemetryConfig struct {
	ServiceName string `yaml:"serviceName"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
}

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	IncidentIQ IncidentIQConfig `yaml:"incidentIQ"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Drive      DriveConfig      `yaml:"drive"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Mail       MailConfig       `yaml:"mail"`
	Identity   IdentityConfig   `yaml:"identity"`
	Speech     SpeechConfig     `yaml:"speech"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Defaults returns a config populated with every value that has a sensible default
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			MaxBodyBytes: 50 << 20,
		},
		IncidentIQ: IncidentIQConfig{
			Client: "ApiClient",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-1.5-flash",
		},
		Drive: DriveConfig{
			MimeType: "audio/webm",
		},
		Sheets: SheetsConfig{
			WaiverSheetName: "Form Responses 1",
		},
		Mail: MailConfig{
			FromName: "Support Kiosk",
		},
		Identity: IdentityConfig{
			CertURL: "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com",
		},
		Speech: SpeechConfig{
			Encoding:        "MP4",
			SampleRateHertz: 16000,
			LanguageCode:    "en-US",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "support-kiosk",
		},
	}
}

// LoadWithEnv loads and validates the configuration for an environment
// For example, env="test" will look for "kiosk_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
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

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "kiosk_config.yaml"
	if env != "" {
		configFileName = "kiosk_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
