package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
)

// checkDestination refuses an existing destination unless overwrite is set.
func checkDestination(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDestinationExists, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat destination: %w", err)
	}
}

// destination is a log being written under a temporary name next to its final path.
type destination struct {
	path string
	tmp  string
	log  *offsetlog.File
	done bool
}

func createDestination(path string, opts offsetlog.Options) (*destination, error) {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	log, err := offsetlog.Create(tmp, opts)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	return &destination{path: path, tmp: tmp, log: log}, nil
}

// commit flushes the log and moves it to its final path. Without overwrite the
// move fails with ErrDestinationExists if the path appeared in the meantime.
func (d *destination) commit(overwrite bool) error {
	d.done = true

	if err := d.log.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync destination: %w", err), d.discard())
	}
	if err := d.log.Close(); err != nil {
		return errors.Join(fmt.Errorf("close destination: %w", err), os.Remove(d.tmp))
	}

	if overwrite {
		if err := os.Rename(d.tmp, d.path); err != nil {
			return errors.Join(fmt.Errorf("rename destination: %w", err), os.Remove(d.tmp))
		}
		return nil
	}

	if err := os.Link(d.tmp, d.path); err != nil {
		_ = os.Remove(d.tmp)
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, d.path)
		}
		return fmt.Errorf("link destination: %w", err)
	}
	return os.Remove(d.tmp)
}

// abort removes the temporary file unless the destination was committed.
func (d *destination) abort() {
	if d.done {
		return
	}
	d.done = true
	_ = d.discard()
}

func (d *destination) discard() error {
	return errors.Join(d.log.Close(), os.Remove(d.tmp))
}
