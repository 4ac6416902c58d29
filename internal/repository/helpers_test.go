package repository

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/roach88/devstash/internal/cryptobox"
	"github.com/roach88/devstash/internal/testutil"
)

type fixture struct {
	dir   string
	fs    *testutil.FaultFs
	clock *testutil.Clock
	box   *cryptobox.Box
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		dir:   t.TempDir(),
		fs:    testutil.NewFaultFs(afero.NewOsFs()),
		clock: testutil.NewClock(testutil.Epoch),
		box:   cryptobox.New(cryptobox.WithIterations(1000)),
	}
}

func (f *fixture) options(passphrase string) Options {
	return Options{
		DataDir:    f.dir,
		Fs:         f.fs,
		Box:        f.box,
		Passphrase: StaticPassphrase(passphrase),
		Clock:      f.clock.Now,
	}
}

func (f *fixture) abs(rel string) string {
	return filepath.Join(f.dir, filepath.FromSlash(rel))
}
