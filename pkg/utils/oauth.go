package utils

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// OAuth scopes for Google APIs
const (
	ScopeSheets        = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDrive         = "https://www.googleapis.com/auth/drive"
	ScopeGmailSend     = "https://www.googleapis.com/auth/gmail.send"
	ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
)

// ServiceAccountClient returns an HTTP client authorized as the service account
// described by credentialsJSON
func ServiceAccountClient(ctx context.Context, credentialsJSON []byte, scopes ...string) (*http.Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("service account credentials are empty")
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// ImpersonationConfig builds a JWT config that acts on behalf of subject.
// The service account needs domain-wide delegation for the requested scopes.
func ImpersonationConfig(credentialsJSON []byte, subject string, scopes ...string) (*jwt.Config, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("service account credentials are empty")
	}
	if subject == "" {
		return nil, fmt.Errorf("impersonation subject is required")
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	jwtConfig.Subject = subject

	return jwtConfig, nil
}

// ImpersonatingClient returns an HTTP client that acts as subject
func ImpersonatingClient(ctx context.Context, credentialsJSON []byte, subject string, scopes ...string) (*http.Client, error) {
	jwtConfig, err := ImpersonationConfig(credentialsJSON, subject, scopes...)
	if err != nil {
		return nil, err
	}

	return jwtConfig.Client(ctx), nil
}

// DefaultClient returns an HTTP client using Application Default Credentials
func DefaultClient(ctx context.Context, scopes ...string) (*http.Client, error) {
	client, err := google.DefaultClient(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}

	return client, nil
}
