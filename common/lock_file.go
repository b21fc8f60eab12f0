// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLockFileBusy is returned by TryLockFile if the lock on the file is
// currently owned by some other open file description, which is the case
// if another process, or another part of this process, holds it.
const ErrLockFileBusy = ConstError("lock file is held by another owner")

// LockFile is an inter-process synchronization primitive facilitating mutual
// exclusion of operations between processes. Internally, an exclusive OS
// level advisory lock is placed on a file in the file system. The file is
// created if needed but never deleted, so it may be reused by later owners.
//
// Locks are bound to the open file description. They are released by the
// OS when the owning process terminates.
type LockFile interface {
	// Release releases the exclusive lock ownership provided by a valid
	// instance of this type. Each lock may only be released once.
	// Subsequent calls produce errors.
	Release() error
	// Valid checks whether this lock still owns the underlying resource
	// or whether it has already been released.
	Valid() bool
	// Path returns the path of the locked file.
	Path() string
}

type lockFile struct {
	lock *flock.Flock
}

// TryLockFile attempts to obtain an exclusive lock on the file with the
// given path without waiting. If the file does not exist it is created.
// If the lock is owned by someone else, ErrLockFileBusy is returned.
func TryLockFile(path string) (LockFile, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockFileBusy, path)
	}
	return &lockFile{lock: lock}, nil
}

func (f *lockFile) Valid() bool {
	return f.lock != nil && f.lock.Locked()
}

func (f *lockFile) Path() string {
	if f.lock == nil {
		return ""
	}
	return f.lock.Path()
}

func (f *lockFile) Release() error {
	if !f.Valid() {
		return fmt.Errorf("unable to release invalid lock")
	}
	if err := f.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release file lock: %w", err)
	}
	f.lock = nil
	return nil
}
