package main

import (
	"fmt"

	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliState struct {
	configPath string
	verbose    bool
	jsonLogs   bool
	provider   string
	hotkey     string
	device     string
	refine     bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	cmd := &cobra.Command{
		Use:           "murmur",
		Short:         "Push-to-talk dictation: hold a hotkey, speak, release to type",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), st.cfg, st.logger)
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&st.configPath, "config", "", "Path to configuration file (default: $XDG_CONFIG_HOME/murmur/config.yaml or ~/.murmurrc)")
	pf.BoolVar(&st.verbose, "verbose", false, "Enable verbose logs")
	pf.BoolVar(&st.jsonLogs, "json", false, "Enable JSON logging")
	pf.StringVar(&st.provider, "provider", "", "Speech provider: vosk|volcengine|sensevoice")

	cmd.Flags().StringVar(&st.hotkey, "hotkey", "", "Push-to-talk combo, e.g. ctrl+shift or ctrl+alt+space")
	cmd.Flags().StringVar(&st.device, "device", "", "Capture device id or name (see `murmur devices`)")
	pf.BoolVar(&st.refine, "refine", false, "Clean up transcripts with the local language model")

	cmd.AddCommand(newDevicesCmd(st))
	cmd.AddCommand(newModelsCmd(st))
	cmd.AddCommand(newTranscribeCmd(st))
	cmd.AddCommand(newHistoryCmd(st))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration, applies explicitly set flags and builds the
// logger. Flags left at their defaults never override the file.
func (st *cliState) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadWithFallback(st.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Log.Verbose = st.verbose
	}
	if flags.Changed("json") {
		cfg.Log.JSON = st.jsonLogs
	}
	if flags.Changed("provider") {
		cfg.STT.Provider = st.provider
	}
	if flags.Changed("hotkey") {
		cfg.Hotkey.Combo = st.hotkey
	}
	if flags.Changed("device") {
		cfg.Audio.Device = st.device
	}
	if flags.Changed("refine") {
		cfg.Refine.Enabled = st.refine
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{Verbose: cfg.Log.Verbose, JSON: cfg.Log.JSON})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	st.cfg = cfg
	st.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "murmur v%s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Commit:  %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Built:   %s\n", BuildTime)
			return nil
		},
	}
}
