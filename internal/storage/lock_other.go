//go:build !unix

package storage

import (
	"fmt"
	"os"
)

// lockFile only creates the lock file here; the in-process mutex is the sole
// guard on platforms without flock.
func lockFile(path string, _ bool) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f.Close, nil
}
