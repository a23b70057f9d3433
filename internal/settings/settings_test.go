package settings_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, settings.Defaults().Validate())
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*settings.Settings)
	}{
		{"stability too high", func(s *settings.Settings) { s.Stability = 1.5 }},
		{"stability negative", func(s *settings.Settings) { s.Stability = -0.1 }},
		{"similarity too high", func(s *settings.Settings) { s.Similarity = 2 }},
		{"style too high", func(s *settings.Settings) { s.Style = 1.01 }},
		{"speed too slow", func(s *settings.Settings) { s.Speed = 0.5 }},
		{"speed too fast", func(s *settings.Settings) { s.Speed = 1.5 }},
		{"unknown mode", func(s *settings.Settings) { s.Mode = "parallel" }},
		{"missing voice", func(s *settings.Settings) { s.VoiceID = "" }},
		{"missing model", func(s *settings.Settings) { s.ModelID = "" }},
		{"bad normalization", func(s *settings.Settings) { s.TextNormalization = "sometimes" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := settings.Defaults()
			tc.mutate(&s)

			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestMergeTouchesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	current := settings.Defaults()

	stability := 0.9
	mode := types.ModeStudio
	merged := settings.Merge(current, settings.Patch{
		Stability: &stability,
		Mode:      &mode,
	})

	assert.Equal(t, 0.9, merged.Stability)
	assert.Equal(t, types.ModeStudio, merged.Mode)

	// Everything else is untouched.
	assert.Equal(t, current.VoiceID, merged.VoiceID)
	assert.Equal(t, current.ModelID, merged.ModelID)
	assert.Equal(t, current.Similarity, merged.Similarity)
	assert.Equal(t, current.Speed, merged.Speed)
	assert.Equal(t, current.SpeakerBoost, merged.SpeakerBoost)
	assert.Equal(t, current.Quality, merged.Quality)
}

func TestMergeEmptyPatchIsIdentity(t *testing.T) {
	t.Parallel()

	current := settings.Defaults()
	assert.Equal(t, current, settings.Merge(current, settings.Patch{}))
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreReturnsDefaultsBeforeFirstSave(t *testing.T) {
	t.Parallel()

	store, err := settings.NewStore(newTestDB(t))
	require.NoError(t, err)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), current)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := settings.NewStore(newTestDB(t))
	require.NoError(t, err)

	s := settings.Defaults()
	s.Mode = types.ModeStudio
	s.Stability = 0.8
	s.VoiceID = "custom-voice"

	require.NoError(t, store.Save(s))

	loaded, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	// Save again to exercise the upsert path.
	s.Speed = 1.1
	require.NoError(t, store.Save(s))

	loaded, err = store.Current()
	require.NoError(t, err)
	assert.Equal(t, 1.1, loaded.Speed)
}

func TestStoreReset(t *testing.T) {
	t.Parallel()

	store, err := settings.NewStore(newTestDB(t))
	require.NoError(t, err)

	s := settings.Defaults()
	s.Stability = 0.2
	require.NoError(t, store.Save(s))

	defaults, err := store.Reset()
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), defaults)

	loaded, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), loaded)
}
