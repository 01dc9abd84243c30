package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jakechorley/dispatch-vote/cmd/cli/commands"
	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dispatch-vote",
		Short: "Dispatch Vote CLI - weather-aware job dispatch voting",
		Long:  `Run the voting portal, manage batches and voting links, export votes, and vote from the terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.BatchCmd(app))
	rootCmd.AddCommand(commands.TokenCmd(app))
	rootCmd.AddCommand(commands.VotesCmd(app))
	rootCmd.AddCommand(commands.VoteCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger and config. Connections are opened by the commands that need them.
func initApp(cmd *cobra.Command) error {
	var opts []logging.Option
	if cmd.Name() == "vote" {
		opts = append(opts, logging.WithConsoleLevel(zapcore.WarnLevel))
	}

	logger, err := logging.InitLogger(env, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Env = env
	app.Ctx = context.Background()
	app.Logger = logger

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	return nil
}
