// Package storage keeps the produced audio artifacts on the local
// filesystem, one file per job plus one per chunk in chunking mode.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactStore writes and removes audio files under a single directory.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the artifact directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %v", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// JobAudioPath is the location of a job's merged artifact.
func (s *ArtifactStore) JobAudioPath(jobID string) string {
	return filepath.Join(s.dir, jobID+".mp3")
}

// ChunkAudioPath is the location of one chunk's artifact.
func (s *ArtifactStore) ChunkAudioPath(jobID string, index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_chunk_%d.mp3", jobID, index))
}

// SaveJobAudio writes the merged artifact and returns its path.
func (s *ArtifactStore) SaveJobAudio(jobID string, data []byte) (string, error) {
	path := s.JobAudioPath(jobID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save audio file: %v", err)
	}
	return path, nil
}

// SaveChunkAudio writes one chunk's artifact and returns its path.
func (s *ArtifactStore) SaveChunkAudio(jobID string, index int, data []byte) (string, error) {
	path := s.ChunkAudioPath(jobID, index)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save chunk audio file: %v", err)
	}
	return path, nil
}

// DeleteJob removes the job artifact and every chunk artifact. Missing files
// are not an error.
func (s *ArtifactStore) DeleteJob(jobID string) error {
	paths, err := filepath.Glob(filepath.Join(s.dir, jobID+"_chunk_*.mp3"))
	if err != nil {
		return fmt.Errorf("failed to list chunk artifacts: %v", err)
	}
	paths = append(paths, s.JobAudioPath(jobID))

	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete artifact %s: %v", filepath.Base(path), err)
		}
	}
	return nil
}
