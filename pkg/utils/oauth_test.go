package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jakechorley/dispatch-vote/internal/config"
)

func TestGetOAuthConfig(t *testing.T) {
	oauthCfg := &config.OAuthClientConfig{
		Installed: config.OAuthInstalled{
			ClientID:                "client-id",
			ProjectID:               "project",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}

	cfg, err := GetOAuthConfig(oauthCfg)
	require.NoError(t, err)

	assert.Equal(t, "client-id", cfg.ClientID)
	assert.ElementsMatch(t, []string{ScopeSheets, ScopeGmailSend}, cfg.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth/callback", cfg.RedirectURL)
}

func TestMissingScopes(t *testing.T) {
	assert.NoError(t, missingScopes([]string{ScopeGmailSend, "openid", ScopeSheets}))

	err := missingScopes([]string{ScopeSheets})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ScopeGmailSend)
}

func TestTokenFileRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	loaded, err := LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing file is not an error")

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, SaveTokenToFile("test", token))

	loaded, err = LoadTokenFromFile("test")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	require.NoError(t, DeleteTokenFile("test"))
	require.NoError(t, DeleteTokenFile("test"), "deleting twice is fine")

	loaded, err = LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRandomState(t *testing.T) {
	a, err := randomState()
	require.NoError(t, err)
	b, err := randomState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
