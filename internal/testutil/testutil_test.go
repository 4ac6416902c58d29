package testutil

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_DefaultsToEpoch(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch, clock.Now(), "Now does not advance")
}

func TestClock_AdvanceAndSet(t *testing.T) {
	clock := NewClock(Epoch)
	clock.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	later := Epoch.Add(time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(Epoch)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(50*time.Millisecond), clock.Now())
}

func TestIDs_InOrderThenPanics(t *testing.T) {
	ids := NewIDs("a", "b")
	assert.Equal(t, "a", ids.NewID())
	assert.Equal(t, "b", ids.NewID())
	assert.Panics(t, func() { ids.NewID() })
}

func TestFaultFs_FailsMatchingRenames(t *testing.T) {
	dir := t.TempDir()
	fs := NewFaultFs(afero.NewOsFs())
	src := filepath.Join(dir, "a.tmp")
	require.NoError(t, afero.WriteFile(fs, src, []byte("x"), 0o600))

	boom := errors.New("boom")
	fs.FailRenames(".tmp", boom)
	assert.ErrorIs(t, fs.Rename(src, filepath.Join(dir, "a")), boom)
	assert.Equal(t, 0, fs.Renames())

	fs.FailRenames("", nil)
	require.NoError(t, fs.Rename(src, filepath.Join(dir, "a")))
	assert.Equal(t, 1, fs.Renames())
}
