package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "test-client-id.apps.googleusercontent.com",
			ProjectID:               "test-project",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "test-secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OAuthClientConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*OAuthClientConfig) {}},
		{name: "missing client id", mutate: func(c *OAuthClientConfig) { c.Installed.ClientID = "" }, wantErr: true},
		{name: "invalid auth uri", mutate: func(c *OAuthClientConfig) { c.Installed.AuthURI = "not-a-valid-url" }, wantErr: true},
		{name: "no redirect uris", mutate: func(c *OAuthClientConfig) { c.Installed.RedirectURIs = []string{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validOAuthClient()
			tt.mutate(cfg)

			err := ValidateOAuthClient(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "validation failed")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	body := `{"installed":{"client_id":"id","project_id":"p","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","auth_provider_x509_cert_url":"https://www.googleapis.com/oauth2/v1/certs","client_secret":"s","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.Installed.ClientID)
	assert.Equal(t, "http://localhost", cfg.RedirectURL())
}

func TestLoadOAuthClientWithEnv_FindsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	body := `{"installed":{"client_id":"env-id","project_id":"p","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","auth_provider_x509_cert_url":"https://www.googleapis.com/oauth2/v1/certs","client_secret":"s","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oauthClient.test.json"), []byte(body), 0644))

	cfg, err := LoadOAuthClientWithEnv("test")
	require.NoError(t, err)
	assert.Equal(t, "env-id", cfg.Installed.ClientID)
}
