// Package cleanup deletes audio artifacts past their retention age.
package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scheduler periodically sweeps the artifact directory.
type Scheduler struct {
	audioDir        string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// NewScheduler creates a cleanup scheduler. A maxAgeHours of zero or less
// disables the sweep entirely.
func NewScheduler(audioDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		audioDir:        audioDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the periodic sweep, running once immediately.
func (s *Scheduler) Start() {
	if s.maxAgeHours <= 0 {
		log.Println("Artifact cleanup disabled (max_age_hours <= 0)")
		return
	}

	log.Println("Running initial artifact cleanup...")
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Artifact cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Artifact cleanup scheduler stopped")
}

// sweep removes .mp3 artifacts older than the retention age.
func (s *Scheduler) sweep() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	entries, err := os.ReadDir(s.audioDir)
	if err != nil {
		log.Printf("Cleanup failed to read artifact directory: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		path := filepath.Join(s.audioDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete old artifact %s: %v", entry.Name(), err)
			continue
		}

		deletedCount++
		deletedSize += info.Size()
		log.Printf("Deleted old artifact: %s (age: %s, size: %dKB)",
			entry.Name(), age.Round(time.Hour), info.Size()/1024)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}
