package filestore

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// File name suffixes used next to a record file.
const (
	TempSuffix       = ".tmp"
	BackupSuffix     = ".bak"
	QuarantineSuffix = ".bak."
)

// files performs the raw file operations behind a Channel. It knows nothing
// about record kinds or encryption.
type files struct {
	root   string
	fs     afero.Fs
	mode   os.FileMode
	logger *slog.Logger
}

// resolve maps rel to an absolute path under root. Absolute inputs are
// accepted only if they already lie under root.
func (f *files) resolve(op, rel string) (string, error) {
	if rel == "" {
		return "", NewError(CodePathInvalid, op, rel, errors.New("empty path"))
	}

	p := rel
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(f.root, p)
		if err != nil {
			return "", NewError(CodePathInvalid, op, rel, err)
		}
		p = r
	}
	if !filepath.IsLocal(p) {
		return "", NewError(CodePathInvalid, op, rel, fmt.Errorf("path escapes root %s", f.root))
	}
	return filepath.Join(f.root, p), nil
}

func (f *files) ensureDir(op, abs string) error {
	if err := f.fs.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("create directory: %w", err))
	}
	return nil
}

// read returns the file contents. found is false when the file does not
// exist, which is not an error.
func (f *files) read(op, abs string) (data []byte, found bool, err error) {
	data, err = afero.ReadFile(f.fs, abs)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, NewError(CodeIOFailed, op, abs, err)
	}
	return data, true, nil
}

func (f *files) exists(op, abs string) (bool, error) {
	_, err := f.fs.Stat(abs)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	return false, NewError(CodeIOFailed, op, abs, err)
}

// writeAtomic commits data to abs through abs.tmp. The final rename is the
// commit point; on any earlier failure abs is left untouched and the temp
// file is removed.
func (f *files) writeAtomic(op, abs string, data []byte) error {
	if err := f.ensureDir(op, abs); err != nil {
		return err
	}

	tmpPath := abs + TempSuffix
	tmp, err := f.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.mode)
	if err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("create temp file: %w", err))
	}

	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			tmp.Close()
			f.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("close temp file: %w", err))
	}

	f.backup(abs)

	if err := f.fs.Rename(tmpPath, abs); err != nil {
		return NewError(CodeIOFailed, op, abs, fmt.Errorf("atomic rename: %w", err))
	}
	cleanupTmp = false

	f.syncDir(filepath.Dir(abs))
	return nil
}

// backup copies the current contents of abs to abs.bak. Failures are
// logged; a missing abs is not a failure.
//
// The copy (rather than a rename) keeps abs in place until the commit
// rename replaces it.
func (f *files) backup(abs string) {
	data, found, err := f.read("backup", abs)
	if err != nil {
		f.logger.Warn("backup skipped: read failed", "path", abs, "error", err)
		return
	}
	if !found {
		return
	}
	if err := afero.WriteFile(f.fs, abs+BackupSuffix, data, f.mode); err != nil {
		f.logger.Warn("backup failed", "path", abs+BackupSuffix, "error", err)
	}
}

// quarantine moves abs to abs.bak.<unix-millis>. An existing quarantine file
// is never overwritten; a numeric suffix is added instead.
func (f *files) quarantine(abs string, now time.Time) (string, error) {
	base := fmt.Sprintf("%s%s%d", abs, QuarantineSuffix, now.UnixMilli())
	target := base
	for i := 1; ; i++ {
		taken, err := afero.Exists(f.fs, target)
		if err != nil {
			return "", NewError(CodeIOFailed, "quarantine", abs, err)
		}
		if !taken {
			break
		}
		target = fmt.Sprintf("%s-%d", base, i)
	}

	if err := f.fs.Rename(abs, target); err != nil {
		return "", NewError(CodeIOFailed, "quarantine", abs, err)
	}
	return target, nil
}

func (f *files) remove(op, abs string) (bool, error) {
	if err := f.fs.Remove(abs); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, NewError(CodeIOFailed, op, abs, err)
	}
	return true, nil
}

// syncDir fsyncs a directory so a completed rename survives a crash.
// Not every filesystem supports it; failures are logged at debug level.
func (f *files) syncDir(dir string) {
	d, err := f.fs.Open(dir)
	if err != nil {
		f.logger.Debug("directory sync skipped", "dir", dir, "error", err)
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		f.logger.Debug("directory sync failed", "dir", dir, "error", err)
	}
}
