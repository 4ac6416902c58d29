package testutil

import (
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// FaultFs wraps an afero.Fs and fails selected renames. It is used to
// simulate a crash between writing a temp file and committing it.
type FaultFs struct {
	afero.Fs

	mu         sync.Mutex
	renameErr  error
	renameFrom string // suffix of the source path to fail on; "" fails all
	renames    int
}

// NewFaultFs wraps base.
func NewFaultFs(base afero.Fs) *FaultFs {
	return &FaultFs{Fs: base}
}

// FailRenames makes every rename whose source ends with fromSuffix return
// err. A nil err clears the fault.
func (f *FaultFs) FailRenames(fromSuffix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameFrom = fromSuffix
	f.renameErr = err
}

// Renames returns how many renames reached the underlying filesystem.
func (f *FaultFs) Renames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renames
}

// Rename fails if a matching fault is set, otherwise delegates.
func (f *FaultFs) Rename(oldname, newname string) error {
	f.mu.Lock()
	err := f.renameErr
	match := strings.HasSuffix(oldname, f.renameFrom)
	if err == nil || !match {
		f.renames++
	}
	f.mu.Unlock()

	if err != nil && match {
		return err
	}
	return f.Fs.Rename(oldname, newname)
}
