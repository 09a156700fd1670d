package audio

import (
	"errors"
	"fmt"
	"math"
)

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	// EnergyThreshold is the minimum RMS energy to consider as speech
	// Typical values: 0.001 to 0.1 (lower = more sensitive)
	EnergyThreshold float64

	// FrameMS is the analysis window
	FrameMS int

	// HangoverMS keeps this much audio after speech so word endings survive
	HangoverMS int
}

// DefaultVADConfig returns a default VAD configuration
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		FrameMS:         30,
		HangoverMS:      300,
	}
}

// ErrNoSpeech means the filter found nothing above the threshold.
var ErrNoSpeech = errors.New("no speech detected")

// VAD (Voice Activity Detector) detects speech vs silence in audio
type VAD struct {
	config VADConfig
}

// NewVAD creates a new voice activity detector
func NewVAD(config VADConfig) *VAD {
	return &VAD{config: config}
}

// Filter drops silent frames from 16-bit mono pcm and returns the speech
// frames plus hangover, in order. It returns ErrNoSpeech when every frame
// is silent.
func (v *VAD) Filter(pcm []byte, sampleRate int) ([]byte, error) {
	frameBytes := sampleRate * v.config.FrameMS / 1000 * 2
	if frameBytes <= 0 {
		return nil, fmt.Errorf("invalid vad frame: %d ms at %d Hz", v.config.FrameMS, sampleRate)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm payload not aligned")
	}

	hangoverFrames := 0
	if v.config.FrameMS > 0 {
		hangoverFrames = v.config.HangoverMS / v.config.FrameMS
	}

	out := make([]byte, 0, len(pcm))
	sinceSpeech := hangoverFrames + 1
	speech := false

	for start := 0; start < len(pcm); start += frameBytes {
		end := min(start+frameBytes, len(pcm))
		frame := pcm[start:end]

		if calculateEnergy(frame) > v.config.EnergyThreshold {
			sinceSpeech = 0
			speech = true
		} else {
			sinceSpeech++
		}

		if sinceSpeech <= hangoverFrames {
			out = append(out, frame...)
		}
	}

	if !speech {
		return nil, ErrNoSpeech
	}
	return out, nil
}

// calculateEnergy calculates the energy (RMS) of an audio buffer
func calculateEnergy(data []byte) float64 {
	sampleCount := len(data) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(data[i*2]) | int16(data[i*2+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}
