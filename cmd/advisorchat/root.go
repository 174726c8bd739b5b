package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Desarso/advisorchat"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app carries what the persistent flags resolved to.
type app struct {
	configPath string
	apiURL     string
	token      string
	logLevel   string
	logFormat  string

	cfg    advisorchat.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "advisorchat",
		Short: "Chat with your advisor assistant from the terminal",
		Long: `Terminal client for the advisor assistant.

It talks to the backend over REST for chat turns and keeps a WebSocket open
for live updates: replies from other devices, task updates, proactive
actions and notifications.

Quick Start:
  advisorchat serve                   # local backend on :3001
  advisorchat token --user me         # dev bearer token
  advisorchat chat --token <token>    # interactive chat`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&a.apiURL, "api-url", "", "Backend base URL (overrides ADVISOR_API_URL)")
	flags.StringVar(&a.token, "token", "", "Bearer token (overrides ADVISOR_AUTH_TOKEN)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newChatCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
	)
	return rootCmd
}

// load resolves config from file and environment, then applies flags that
// were set explicitly.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := advisorchat.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg = cfg.WithAPIURL(a.apiURL)
	}
	if flags.Changed("token") {
		cfg = cfg.WithAuthToken(a.token)
	}
	level, format := cfg.LogLevel, cfg.LogFormat
	if flags.Changed("log-level") {
		level = a.logLevel
	}
	if flags.Changed("log-format") {
		format = a.logFormat
	}
	cfg = cfg.WithLogging(level, format)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := advisorchat.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
