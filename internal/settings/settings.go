// Package settings holds the process-wide synthesis configuration. A job
// captures an immutable copy at creation time, so later edits never affect
// jobs already in flight.
package settings

import (
	"fmt"

	"github.com/drshumard/Larynx/internal/types"
)

// Default ElevenLabs parameters, matching the service's own defaults.
const (
	DefaultVoiceID      = "LNHBM9NjjOl44Efsdmtl"
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
)

// Settings is the full synthesis configuration.
type Settings struct {
	Mode         string  `json:"mode"`
	VoiceID      string  `json:"voice_id"`
	ModelID      string  `json:"model_id"`
	OutputFormat string  `json:"output_format"`
	Stability    float64 `json:"stability"`
	Similarity   float64 `json:"similarity_boost"`
	Speed        float64 `json:"speed"`
	Style        float64 `json:"style"`
	SpeakerBoost bool    `json:"speaker_boost"`

	// Studio (batch) parameters
	Quality             string `json:"quality"`
	VolumeNormalization bool   `json:"volume_normalization"`
	TextNormalization   string `json:"text_normalization"`
}

// Patch is a partial Settings overlay for PATCH requests. Nil fields are
// left untouched by Merge.
type Patch struct {
	Mode         *string  `json:"mode,omitempty"`
	VoiceID      *string  `json:"voice_id,omitempty"`
	ModelID      *string  `json:"model_id,omitempty"`
	OutputFormat *string  `json:"output_format,omitempty"`
	Stability    *float64 `json:"stability,omitempty"`
	Similarity   *float64 `json:"similarity_boost,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Style        *float64 `json:"style,omitempty"`
	SpeakerBoost *bool    `json:"speaker_boost,omitempty"`

	Quality             *string `json:"quality,omitempty"`
	VolumeNormalization *bool   `json:"volume_normalization,omitempty"`
	TextNormalization   *string `json:"text_normalization,omitempty"`
}

// Defaults returns the built-in settings used before any are stored.
func Defaults() Settings {
	return Settings{
		Mode:                types.ModeChunking,
		VoiceID:             DefaultVoiceID,
		ModelID:             DefaultModelID,
		OutputFormat:        DefaultOutputFormat,
		Stability:           0.5,
		Similarity:          0.75,
		Speed:               1.0,
		Style:               0.0,
		SpeakerBoost:        true,
		Quality:             "standard",
		VolumeNormalization: true,
		TextNormalization:   "auto",
	}
}

// Merge applies a partial overlay onto current, touching only provided
// fields, and returns the result.
func Merge(current Settings, patch Patch) Settings {
	merged := current

	if patch.Mode != nil {
		merged.Mode = *patch.Mode
	}
	if patch.VoiceID != nil {
		merged.VoiceID = *patch.VoiceID
	}
	if patch.ModelID != nil {
		merged.ModelID = *patch.ModelID
	}
	if patch.OutputFormat != nil {
		merged.OutputFormat = *patch.OutputFormat
	}
	if patch.Stability != nil {
		merged.Stability = *patch.Stability
	}
	if patch.Similarity != nil {
		merged.Similarity = *patch.Similarity
	}
	if patch.Speed != nil {
		merged.Speed = *patch.Speed
	}
	if patch.Style != nil {
		merged.Style = *patch.Style
	}
	if patch.SpeakerBoost != nil {
		merged.SpeakerBoost = *patch.SpeakerBoost
	}
	if patch.Quality != nil {
		merged.Quality = *patch.Quality
	}
	if patch.VolumeNormalization != nil {
		merged.VolumeNormalization = *patch.VolumeNormalization
	}
	if patch.TextNormalization != nil {
		merged.TextNormalization = *patch.TextNormalization
	}

	return merged
}

// Validate checks all range-constrained fields.
func (s Settings) Validate() error {
	if s.Mode != types.ModeChunking && s.Mode != types.ModeStudio {
		return fmt.Errorf("%w: mode must be %q or %q", types.ErrValidation, types.ModeChunking, types.ModeStudio)
	}
	if s.VoiceID == "" {
		return fmt.Errorf("%w: voice_id is required", types.ErrValidation)
	}
	if s.ModelID == "" {
		return fmt.Errorf("%w: model_id is required", types.ErrValidation)
	}
	if s.Stability < 0 || s.Stability > 1 {
		return fmt.Errorf("%w: stability must be between 0 and 1", types.ErrValidation)
	}
	if s.Similarity < 0 || s.Similarity > 1 {
		return fmt.Errorf("%w: similarity_boost must be between 0 and 1", types.ErrValidation)
	}
	if s.Style < 0 || s.Style > 1 {
		return fmt.Errorf("%w: style must be between 0 and 1", types.ErrValidation)
	}
	if s.Speed < 0.7 || s.Speed > 1.2 {
		return fmt.Errorf("%w: speed must be between 0.7 and 1.2", types.ErrValidation)
	}
	switch s.TextNormalization {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("%w: text_normalization must be auto, on or off", types.ErrValidation)
	}
	return nil
}
