package main

import (
	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/output"
	"github.com/spf13/cobra"
)

func newDevicesCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.NewDeviceManager(cmd.OutOrStdout()).ListDevices()
		},
	}
}

func newModelsCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage local Vosk models",
	}

	manager := func(cmd *cobra.Command) *app.ModelManager {
		mgr := models.NewManager(st.cfg.STT.Vosk.ModelsDir, st.logger)
		return app.NewModelManager(mgr, cmd.OutOrStdout())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known models and which are downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := models.NewManager(st.cfg.STT.Vosk.ModelsDir, st.logger)
			return app.NewModelManager(mgr, cmd.OutOrStdout()).ListModels(app.ModelName(st.cfg, mgr))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download <model-name>",
		Short: "Download and extract a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return manager(cmd).Download(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-default <model-name>",
		Short: "Use a model by default and save it to the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := st.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			return manager(cmd).SetDefault(args[0], st.cfg, path)
		},
	})

	return cmd
}

func newTranscribeCmd(st *cliState) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a WAV file with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			t, err := app.TranscribeFile(cmd.Context(), st.cfg, args[0], st.logger)
			if err != nil {
				return err
			}
			return f.WriteTranscript(t)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	return cmd
}

func newHistoryCmd(st *cliState) *cobra.Command {
	var (
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dictated transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), st.cfg.History, st.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return f.WriteHistory(entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transcripts to show")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	return cmd
}
