// Package audio concatenates synthesized MP3 segments and derives durations.
package audio

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/drshumard/Larynx/internal/types"
)

// Prober reports the playback duration of an audio blob.
type Prober interface {
	Duration(data []byte) (float64, error)
}

// Merger splices ordered audio blobs into one artifact. MP3 streams are
// concatenated at the frame level without re-encoding, so merge cost is
// linear in byte size and there is no generational quality loss.
type Merger struct {
	prober Prober
}

// NewMerger creates a merger using the given duration prober.
func NewMerger(prober Prober) *Merger {
	return &Merger{prober: prober}
}

// Merge concatenates the blobs in order and probes the duration of the final
// artifact. A single input is returned unchanged. Duration comes from the
// merged result, not from summing per-chunk durations, to avoid drift from
// container overhead.
func (m *Merger) Merge(blobs [][]byte) ([]byte, float64, error) {
	if len(blobs) == 0 {
		return nil, 0, fmt.Errorf("%w: no audio chunks to merge", types.ErrMerge)
	}

	var merged []byte
	if len(blobs) == 1 {
		merged = blobs[0]
	} else {
		var buf bytes.Buffer
		for _, blob := range blobs {
			buf.Write(blob)
		}
		merged = buf.Bytes()
	}

	duration, err := m.prober.Duration(merged)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: duration probe failed: %v", types.ErrMerge, err)
	}

	return merged, duration, nil
}

// FFProbe measures durations by piping the blob through ffprobe.
type FFProbe struct{}

// Duration runs ffprobe over stdin and parses the reported format duration.
func (FFProbe) Duration(data []byte) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-",
	)
	cmd.Stdin = bytes.NewReader(data)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %v", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}
