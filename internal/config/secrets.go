package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names holding server-side secrets
const (
	EnvIncidentIQToken   = "INCIDENT_IQ_API_TOKEN"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvDriveCredentials  = "GOOGLE_DRIVE_CREDENTIALS"
	EnvGmailCredentials  = "GMAIL_CREDENTIALS"
	EnvSheetsCredentials = "GOOGLE_SHEETS_CREDENTIALS"
	EnvSheetSyncAPIKey   = "SHEET_SYNC_API_KEY"
	EnvDatabaseURL       = "DATABASE_URL"
)

// Secrets holds every credential the server needs. Values are read once at startup
// and handed to the components that use them.
type Secrets struct {
	IncidentIQToken   string
	GeminiAPIKey      string
	DriveCredentials  []byte
	GmailCredentials  []byte
	SheetsCredentials []byte
	SheetSyncAPIKey   string
	DatabaseURL       string
}

// LoadSecrets reads secrets from the process environment. When envFile is non-empty
// its values are overlaid on top of the environment. A missing envFile is skipped
// unless required is set.
func LoadSecrets(envFile string, required bool) (*Secrets, error) {
	lookup := os.Getenv

	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		if err != nil && (required || !errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		if fileValues == nil {
			fileValues = map[string]string{}
		}
		lookup = func(key string) string {
			if v, ok := fileValues[key]; ok {
				return v
			}
			return os.Getenv(key)
		}
	}

	return &Secrets{
		IncidentIQToken:   lookup(EnvIncidentIQToken),
		GeminiAPIKey:      lookup(EnvGeminiAPIKey),
		DriveCredentials:  bytesOrNil(lookup(EnvDriveCredentials)),
		GmailCredentials:  bytesOrNil(lookup(EnvGmailCredentials)),
		SheetsCredentials: bytesOrNil(lookup(EnvSheetsCredentials)),
		SheetSyncAPIKey:   lookup(EnvSheetSyncAPIKey),
		DatabaseURL:       lookup(EnvDatabaseURL),
	}, nil
}

// Missing returns the names of secrets that are not set
func (s *Secrets) Missing() []string {
	var missing []string
	if s.IncidentIQToken == "" {
		missing = append(missing, EnvIncidentIQToken)
	}
	if s.GeminiAPIKey == "" {
		missing = append(missing, EnvGeminiAPIKey)
	}
	if len(s.DriveCredentials) == 0 {
		missing = append(missing, EnvDriveCredentials)
	}
	if len(s.GmailCredentials) == 0 {
		missing = append(missing, EnvGmailCredentials)
	}
	if len(s.SheetsCredentials) == 0 {
		missing = append(missing, EnvSheetsCredentials)
	}
	if s.SheetSyncAPIKey == "" {
		missing = append(missing, EnvSheetSyncAPIKey)
	}
	return missing
}

// DatabaseURL returns the connection string, preferring the secret over the config file
func (c *Config) DatabaseURL(s *Secrets) string {
	if s != nil && s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return c.Database.URL
}

func bytesOrNil(v string) []byte {
	if v == "" {
		return nil
	}
	return []byte(v)
}
