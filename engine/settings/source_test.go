package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSettings struct {
	Rate  float32 `yaml:"rate"`
	Count int     `yaml:"count"`
}

func (s testSettings) Validate() error {
	if s.Rate < 0 {
		return errors.New("rate must be >= 0")
	}
	return nil
}

func TestSource_GetSet(t *testing.T) {
	s := NewSource("test", testSettings{Rate: 1, Count: 2})
	assert.Equal(t, "test", s.Name())
	assert.Equal(t, testSettings{Rate: 1, Count: 2}, s.Get())
	assert.Equal(t, uint64(0), s.Version())

	require.NoError(t, s.Set(testSettings{Rate: 3}))
	assert.Equal(t, float32(3), s.Get().Rate)
	assert.Equal(t, uint64(1), s.Version())
}

func TestSource_DefaultName(t *testing.T) {
	assert.Equal(t, "settings", NewSource("", testSettings{}).Name())
	assert.Equal(t, "Foam", NewSource("Foam", testSettings{}).Name())
}

func TestSource_SetRejectsInvalid(t *testing.T) {
	s := NewSource("test", testSettings{Rate: 1})
	err := s.Set(testSettings{Rate: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate must be >= 0")
	assert.Equal(t, float32(1), s.Get().Rate)
	assert.Equal(t, uint64(0), s.Version())
}

func TestSource_DecodeKeepsOmittedFields(t *testing.T) {
	s := NewSource("test", testSettings{Rate: 1, Count: 7})
	require.NoError(t, s.Decode([]byte("rate: 0.5\n")))
	assert.Equal(t, testSettings{Rate: 0.5, Count: 7}, s.Get())
}

func TestSource_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewSource("test", testSettings{Rate: 1})

	assert.Error(t, s.Load(filepath.Join(dir, "missing.yaml")))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rate: [1, 2"), 0o600))
	assert.Error(t, s.Load(bad))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("rate: -2\n"), 0o600))
	assert.Error(t, s.Load(invalid))

	assert.Equal(t, float32(1), s.Get().Rate)
}

func TestSource_WatchNoPath(t *testing.T) {
	s := NewSource("test", testSettings{})
	assert.ErrorIs(t, s.Watch(context.Background(), ""), ErrNoPath)
}

func TestSource_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate: 1\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSource("test", testSettings{}, WithDebounce(10*time.Millisecond))
	require.NoError(t, s.Watch(ctx, path))
	assert.Equal(t, float32(1), s.Get().Rate)

	require.NoError(t, os.WriteFile(path, []byte("rate: 2\n"), 0o600))
	assert.Eventually(t, func() bool { return s.Get().Rate == 2 }, 2*time.Second, 10*time.Millisecond)

	// An invalid file keeps the previous value.
	require.NoError(t, os.WriteFile(path, []byte("rate: -5\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, float32(2), s.Get().Rate)
}
