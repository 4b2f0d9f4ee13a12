//go:build !unix

package lock

import (
	"os"
	"sync"
)

// Without flock, locks only exclude runs inside this process.
var (
	heldMu sync.Mutex
	held   = map[string]bool{}
)

func tryLock(f *os.File) (bool, error) {
	heldMu.Lock()
	defer heldMu.Unlock()
	if held[f.Name()] {
		return false, nil
	}
	held[f.Name()] = true
	return true, nil
}

func unlock(f *os.File) error {
	heldMu.Lock()
	delete(held, f.Name())
	heldMu.Unlock()
	return nil
}
