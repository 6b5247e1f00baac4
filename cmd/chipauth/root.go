package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"chipauth/internal/logging"
	"chipauth/internal/scheme"
	"chipauth/internal/version"
)

// commandContext carries shared flags and lazily loaded state.
type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	logJSONFlag  *bool

	schemes *scheme.Table
}

func (c *commandContext) ensureSchemes() (*scheme.Table, error) {
	if c.schemes != nil {
		return c.schemes, nil
	}
	table, err := scheme.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.schemes = table
	return table, nil
}

func (c *commandContext) logger() *slog.Logger {
	if *c.logJSONFlag {
		return logging.NewJSON(os.Stderr, *c.logLevelFlag)
	}
	return logging.New(os.Stderr, *c.logLevelFlag)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var logJSONFlag bool

	ctx := &commandContext{
		configFlag:   &configFlag,
		logLevelFlag: &logLevelFlag,
		logJSONFlag:  &logJSONFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "chipauth",
		Short:         "Authenticate IC package markings",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Manufacturer scheme file (merged over built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Emit logs as JSON")

	rootCmd.AddCommand(newAuthenticateCommand(ctx))
	rootCmd.AddCommand(newSchemesCommand(ctx))

	return rootCmd
}
