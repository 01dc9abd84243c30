package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/clients/gmailclient"
	"github.com/jakechorley/dispatch-vote/pkg/clients/sheetsclient"
	"github.com/jakechorley/dispatch-vote/pkg/postgres"
	"github.com/jakechorley/dispatch-vote/pkg/utils"
)

// AppContext holds the application dependencies shared across all commands.
// The database and Google clients are connected on first use so the voter never needs them.
type AppContext struct {
	Env    string
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context

	database  *postgres.DB
	tokenFlow *utils.TokenFlow
	oauthCfg  *oauth2.Config
}

// Database returns the postgres pool, connecting on first call
func (a *AppContext) Database() (*postgres.DB, error) {
	if a.database != nil {
		return a.database, nil
	}

	a.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(a.Ctx, a.Cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.database = database
	return database, nil
}

// GmailClient authorises with Google and returns a client for sending voting links
func (a *AppContext) GmailClient() (*gmailclient.Client, error) {
	if err := a.Cfg.RequireGmail(); err != nil {
		return nil, err
	}
	oauthCfg, token, err := a.googleToken()
	if err != nil {
		return nil, err
	}
	client, err := gmailclient.NewClient(a.Ctx, oauthCfg, token, a.Cfg.Gmail.UserID, a.Cfg.Gmail.Sender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return client, nil
}

// SheetsClient authorises with Google and returns a client for exporting votes
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if err := a.Cfg.RequireExport(); err != nil {
		return nil, err
	}
	oauthCfg, token, err := a.googleToken()
	if err != nil {
		return nil, err
	}
	client, err := sheetsclient.NewClient(a.Ctx, oauthCfg, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return client, nil
}

// Close releases whatever was connected
func (a *AppContext) Close() {
	if a.database != nil {
		a.database.Close()
		a.database = nil
	}
}

func (a *AppContext) googleToken() (*oauth2.Config, *oauth2.Token, error) {
	if a.tokenFlow == nil {
		a.Logger.Info("Loading OAuth client configuration")
		clientCfg, err := config.LoadOAuthClientWithEnv(a.Env)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		oauthCfg, err := utils.GetOAuthConfig(clientCfg)
		if err != nil {
			return nil, nil, err
		}
		a.oauthCfg = oauthCfg
		a.tokenFlow = utils.NewTokenFlow(oauthCfg, a.Env, a.Logger)
	}

	token, err := a.tokenFlow.Token(a.Ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to authorise with Google: %w", err)
	}
	return a.oauthCfg, token, nil
}
