// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Fantom-foundation/storeguard/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// LockFileName is the name of the marker file inside a store directory that
// is the target of the OS level lock. It is created on the first acquisition
// and retained afterwards.
const LockFileName = "~lock"

const (
	// ErrHeldByOtherProcess is reported if the OS level lock of a directory
	// is owned by a different process.
	ErrHeldByOtherProcess = common.ConstError("lock is held by another process")
	// ErrAlreadyHeldBySelf is reported if a directory is already locked
	// through the same registry, and thus by the current process.
	ErrAlreadyHeldBySelf = common.ConstError("lock is already held by this process")
	// ErrNotHeld is reported when releasing a handle which is not, or no
	// longer, owning a lock.
	ErrNotHeld = common.ConstError("lock is not held")
)

// Registry is the process-local bookkeeping of directory locks. It maps
// canonical directory paths to the handles currently owning them. A process
// should create a single registry and share it among all components opening
// store directories, since locks obtained through distinct registries are
// indistinguishable from locks held by other processes.
//
// Acquire and Release hold the registry's mutex for the full duration of the
// OS level operation, so the registry content and the state of OS locks do
// never disagree outside of those calls.
type Registry struct {
	mutex sync.Mutex
	held  map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{held: map[string]*Handle{}}
}

// Handle represents the exclusive ownership of a store directory obtained
// through a Registry. It must be released exactly once.
type Handle struct {
	registry  *Registry
	directory string
	file      common.LockFile
}

// Directory returns the canonical path of the locked directory.
func (h *Handle) Directory() string {
	return h.directory
}

// Valid reports whether this handle still owns its directory.
func (h *Handle) Valid() bool {
	if h == nil || h.registry == nil {
		return false
	}
	h.registry.mutex.Lock()
	defer h.registry.mutex.Unlock()
	return h.registry.held[h.directory] == h
}

// Release is a shortcut for releasing the handle through its registry.
func (h *Handle) Release() error {
	if h == nil || h.registry == nil {
		return ErrNotHeld
	}
	return h.registry.Release(h)
}

// Acquire obtains the exclusive lock on the given store directory. The
// directory has to exist. The call never waits: if the directory is locked
// through this registry ErrAlreadyHeldBySelf is returned, if it is locked by
// another process ErrHeldByOtherProcess is returned. Any other failure is an
// IO problem with the directory.
func (r *Registry) Acquire(directory string) (*Handle, error) {
	dir, err := canonicalDirectory(directory)
	if err != nil {
		return nil, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, found := r.held[dir]; found {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyHeldBySelf, dir)
	}

	file, err := tryLock(dir)
	if err != nil {
		return nil, err
	}

	handle := &Handle{
		registry:  r,
		directory: dir,
		file:      file,
	}
	r.held[dir] = handle
	return handle, nil
}

// Release gives up the ownership represented by the given handle. Releasing
// a handle twice, or a handle not obtained from this registry, is a caller
// error reported as ErrNotHeld. If the OS lock can not be released, the
// handle remains registered and valid.
func (r *Registry) Release(handle *Handle) error {
	if handle == nil {
		return fmt.Errorf("%w: nil handle", ErrNotHeld)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cur, found := r.held[handle.directory]; !found || cur != handle {
		return fmt.Errorf("%w: %s", ErrNotHeld, handle.directory)
	}
	if err := handle.file.Release(); err != nil {
		return fmt.Errorf("unable to release lock on %s: %w", handle.directory, err)
	}
	delete(r.held, handle.directory)
	return nil
}

// Held lists the canonical paths of all directories currently locked
// through this registry in lexicographical order.
func (r *Registry) Held() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	res := maps.Keys(r.held)
	slices.Sort(res)
	return res
}

func tryLock(directory string) (common.LockFile, error) {
	file, err := common.TryLockFile(filepath.Join(directory, LockFileName))
	if errors.Is(err, common.ErrLockFileBusy) {
		return nil, fmt.Errorf("%w: %s", ErrHeldByOtherProcess, directory)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to gain exclusive access to %s: %w", directory, err)
	}
	return file, nil
}

// canonicalDirectory resolves the given path to an absolute path free of
// symbolic links, such that every directory has a single registry key.
func canonicalDirectory(directory string) (string, error) {
	abs, err := filepath.Abs(directory)
	if err != nil {
		return "", err
	}
	dir, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("no such directory: %v: %w", directory, err)
	}
	stat, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("%v is not a directory", directory)
	}
	return dir, nil
}
