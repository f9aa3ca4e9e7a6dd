package extraction

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"hardsub/internal/services"
	"hardsub/internal/sink"
)

type outputLock struct {
	path string
	lock *flock.Flock
}

// lockOutput takes an advisory lock next to output so two runs never write
// the same file. Stdout needs no lock.
func lockOutput(output string) (*outputLock, error) {
	if output == sink.Stdout {
		return &outputLock{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extraction", "lock", "create output directory", err)
	}
	path := output + ".lock"
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "extraction", "lock", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "extraction", "lock", fmt.Sprintf("another extraction is writing %s", output), nil)
	}
	return &outputLock{path: path, lock: lock}, nil
}

func (l *outputLock) release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
	_ = os.Remove(l.path)
}
