// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package store

import (
	"fmt"
	"os"

	"github.com/Fantom-foundation/storeguard/database/lock"
)

// lockDirectory acquires a lock on the given directory. If needed, the
// directory is implicitly created. The operation fails if the lock can
// not be acquired due to some other part of this process or some other
// process holding the lock or due to an IO error.
//
// Note: if successful, the acquired lock needs to be explicitly released.
func lockDirectory(locker Locker, directory string) (*lock.Handle, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	return acquireDirectory(locker, directory)
}

// acquireDirectory acquires the lock of an existing directory.
func acquireDirectory(locker Locker, directory string) (*lock.Handle, error) {
	handle, err := locker.Acquire(directory)
	if err != nil {
		return nil, translateLockError(directory, err)
	}
	return handle, nil
}

// checkStoreDirectory makes sure the given path names an existing directory.
func checkStoreDirectory(directory string) error {
	if stat, err := os.Stat(directory); err != nil {
		return fmt.Errorf("no such directory: %v: %w", directory, err)
	} else if !stat.IsDir() {
		return fmt.Errorf("%v is not a directory", directory)
	}
	return nil
}
