// Package vosk binds libvosk to the stt.Model interface. It needs cgo and
// the vosk shared library at build time.
package vosk

import (
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/emmett/murmur/internal/stt"
)

var quiet sync.Once

type model struct {
	m *vosk.VoskModel
}

// Load opens the model directory at path. It satisfies stt.ModelLoader.
func Load(path string) (stt.Model, error) {
	quiet.Do(func() { vosk.SetLogLevel(-1) })

	m, err := vosk.NewModel(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("model returned nil")
	}
	return &model{m: m}, nil
}

func (m *model) NewRecognizer(sampleRate float64) (stt.Recognizer, error) {
	rec, err := vosk.NewRecognizer(m.m, sampleRate)
	if err != nil {
		return nil, err
	}
	// word results carry the confidences
	rec.SetWords(1)
	return rec, nil
}

func (m *model) Free() {
	m.m.Free()
}
