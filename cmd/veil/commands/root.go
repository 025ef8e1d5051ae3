package commands

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"veil/internal/app"
)

var (
	configPath string
	flagCfg    app.Config
	cfg        app.Config
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "veil",
		Short:        "Encrypted session and trust management for IM accounts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default <home>/veil.toml)")
	pf.StringVar(&flagCfg.Home, "home", "", "state dir (default ~/.veil)")
	pf.StringVarP(&flagCfg.Account, "account", "a", "", "local account, e.g. xmpp:me@example")
	pf.StringVarP(&flagCfg.Passphrase, "passphrase", "p", "", "passphrase sealing the property file")
	pf.StringVar(&flagCfg.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flagCfg.LogFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		keygenCmd(),
		fingerprintCmd(),
		fingerprintsCmd(),
		verifyCmd(true),
		verifyCmd(false),
		policyCmd(),
		demoCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command) error {
	home := flagCfg.Home
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		home = filepath.Join(dir, ".veil")
	}
	path := configPath
	if path == "" {
		path = filepath.Join(home, "veil.toml")
	}

	loaded, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	if loaded.Home == "" || cmd.Flags().Changed("home") {
		loaded.Home = home
	}
	if cmd.Flags().Changed("account") {
		loaded.Account = flagCfg.Account
	}
	if cmd.Flags().Changed("passphrase") {
		loaded.Passphrase = flagCfg.Passphrase
	}
	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = flagCfg.LogLevel
	}
	if cmd.Flags().Changed("log-format") {
		loaded.LogFormat = flagCfg.LogFormat
	}
	cfg = loaded
	return app.ConfigureLogging(cfg)
}

// openApp builds the app for commands that work on persisted state.
func openApp() (*app.App, error) {
	if cfg.Account == "" {
		return nil, errors.New("account required (-a or account in config)")
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	return app.New(cfg)
}
