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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Fantom-foundation/storeguard/database/lock"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// dataDirectoryName is the sub-directory of a store hosting its LevelDB.
const dataDirectoryName = "data"

const errHandleClosed = "inspection handle is closed"

// Opener opens store directories while honoring their locks. All openers of
// a process should share the same Locker, typically the process' single
// *lock.Registry, to detect stores opened twice by the process.
type Opener struct {
	locker Locker
}

func NewOpener(locker Locker) *Opener {
	return &Opener{locker: locker}
}

// InspectionHandle provides read-only access to a store directory. While
// it exists, it holds the lock of the directory. It has to be closed to
// release the lock.
type InspectionHandle struct {
	directory string
	locker    Locker
	lock      *lock.Handle
	db        *leveldb.DB
}

// OpenForInspection opens the given store directory for reading. The store
// must exist and must not be opened by this or any other process. If it is
// opened by another process, the error wraps ErrStoreInUse. If it is opened
// by this process, the error wraps ErrAlreadyOpenInProcess. Inspecting a
// directory never modifies the content of the store.
func (o *Opener) OpenForInspection(directory string) (*InspectionHandle, error) {
	if err := checkStoreDirectory(directory); err != nil {
		return nil, err
	}
	handle, err := acquireDirectory(o.locker, directory)
	if err != nil {
		return nil, err
	}

	db, err := openForReading(directory)
	if err != nil {
		return nil, errors.Join(err, o.locker.Release(handle))
	}

	return &InspectionHandle{
		directory: directory,
		locker:    o.locker,
		lock:      handle,
		db:        db,
	}, nil
}

// Inspect opens the given directory for inspection, runs the given function
// on it, and closes it again. The lock of the directory is released on every
// exit path, including failing and panicking inspection functions.
func (o *Opener) Inspect(directory string, inspect func(*InspectionHandle) error) (err error) {
	handle, err := o.OpenForInspection(directory)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, handle.Close())
	}()
	return inspect(handle)
}

func openForReading(directory string) (*leveldb.DB, error) {
	_, present, err := ReadMetadata(directory)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("%w: invalid directory content: missing %s", ErrCorruptStore, MetadataFileName)
	}
	db, err := leveldb.OpenFile(filepath.Join(directory, dataDirectoryName), &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open data of %s: %w", ErrCorruptStore, directory, err)
	}
	return db, nil
}

// Directory returns the path of the inspected store as provided when opening it.
func (h *InspectionHandle) Directory() string {
	return h.directory
}

// NewIterator creates an iterator over all entries of the inspected store
// in key order. The iterator must be released after use.
func (h *InspectionHandle) NewIterator() iterator.Iterator {
	if h.db == nil {
		return iterator.NewEmptyIterator(errors.New(errHandleClosed))
	}
	return h.db.NewIterator(nil, nil)
}

// Close closes the read access to the store and releases its lock. Closing
// a handle a second time produces an error wrapping lock.ErrNotHeld.
func (h *InspectionHandle) Close() error {
	var err error
	if h.db != nil {
		err = h.db.Close()
		h.db = nil
	}
	return errors.Join(err, h.locker.Release(h.lock))
}
