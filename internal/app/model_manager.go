package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/models"
)

// ModelManager prints and changes the local Vosk model set for the CLI.
type ModelManager struct {
	mgr *models.Manager
	out io.Writer
}

func NewModelManager(mgr *models.Manager, out io.Writer) *ModelManager {
	if out == nil {
		out = os.Stdout
	}
	return &ModelManager{mgr: mgr, out: out}
}

func (m *ModelManager) ListModels(current string) error {
	downloaded, err := m.mgr.Downloaded()
	if err != nil {
		return err
	}

	fmt.Fprintln(m.out, "Available models:")
	fmt.Fprintln(m.out)
	for i, model := range models.AvailableModels {
		marker := ""
		if model.Name == current {
			marker = " [CURRENT]"
		}
		fmt.Fprintf(m.out, "%d. %s%s\n", i+1, model.Name, marker)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)
		if slices.Contains(downloaded, model.Name) {
			fmt.Fprintf(m.out, "   Status:   downloaded\n")
		} else {
			fmt.Fprintf(m.out, "   Status:   not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintf(m.out, "Models directory: %s\n", m.mgr.Dir())
	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  murmur models download <model-name>")
	return nil
}

func (m *ModelManager) Download(ctx context.Context, name string) error {
	model, ok := models.FindModel(name)
	if !ok {
		return fmt.Errorf("%w: %s (see `murmur models list`)", models.ErrUnknownModel, name)
	}

	downloaded, err := m.mgr.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		path, _ := m.mgr.Path(name)
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\nLocation: %s\n", name, path)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	if err := m.mgr.Download(ctx, name); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}
	fmt.Fprintf(m.out, "Model '%s' downloaded successfully.\n", name)
	return nil
}

// SetDefault marks name as the default model and, when configPath is set,
// saves it as stt.vosk.model there.
func (m *ModelManager) SetDefault(name string, cfg config.Config, configPath string) error {
	if err := m.mgr.SetDefault(name); err != nil {
		return err
	}

	if configPath != "" {
		cfg.STT.Vosk.Model = name
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(m.out, "Saved stt.vosk.model to %s\n", configPath)
	}
	fmt.Fprintf(m.out, "Default model set to: %s\n", name)

	if ok, _ := m.mgr.IsDownloaded(name); !ok {
		fmt.Fprintln(m.out, "Note: this model is not downloaded yet.")
		fmt.Fprintf(m.out, "Run 'murmur models download %s' to download it.\n", name)
	}
	return nil
}
