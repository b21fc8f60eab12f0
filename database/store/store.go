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
)

// Store is a key/value store persisted in a directory. While open, it holds
// the exclusive lock of its directory and marks the directory as dirty.
type Store struct {
	directory string
	config    Config
	locker    Locker
	lock      *lock.Handle
	db        *leveldb.DB
}

// Open opens the store in the given directory for reading and writing. If
// the directory or the store does not exist, it is created. Failures to
// obtain the lock of the directory are reported as in OpenForInspection.
func (o *Opener) Open(directory string, config Config) (*Store, error) {
	handle, err := lockDirectory(o.locker, directory)
	if err != nil {
		return nil, err
	}
	store, err := openStore(directory, config, o.locker, handle)
	if err != nil {
		return nil, errors.Join(err, o.locker.Release(handle))
	}
	return store, nil
}

func openStore(directory string, config Config, locker Locker, handle *lock.Handle) (*Store, error) {
	if _, err := checkOrCreateMetadata(directory, config); err != nil {
		return nil, err
	}
	if err := tryMarkDirty(directory); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(filepath.Join(directory, dataDirectoryName), config.options())
	if err != nil {
		// the store was not touched, so the dirty mark can be dropped
		return nil, errors.Join(err, markClean(directory))
	}
	return &Store{
		directory: directory,
		config:    config,
		locker:    locker,
		lock:      handle,
		db:        db,
	}, nil
}

// Directory returns the path of the store as provided when opening it.
func (s *Store) Directory() string {
	return s.directory
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() Config {
	return s.config
}

func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *Store) Put(key, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Put(key, value, s.config.writeOptions())
}

func (s *Store) Delete(key []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Delete(key, s.config.writeOptions())
}

// NewIterator creates an iterator over a snapshot of all entries of the
// store in key order, allowing the process owning the store to inspect it.
// The iterator must be released after use.
func (s *Store) NewIterator() iterator.Iterator {
	if err := s.checkOpen(); err != nil {
		return iterator.NewEmptyIterator(err)
	}
	snapshot, err := s.db.GetSnapshot()
	if err != nil {
		return iterator.NewEmptyIterator(err)
	}
	return &snapshotIterator{
		Iterator: snapshot.NewIterator(nil, nil),
		snapshot: snapshot,
	}
}

// Close closes the store and releases the lock of its directory. Only if
// the data base got closed successfully, the directory is marked as clean.
// Closing a store a second time produces an error wrapping lock.ErrNotHeld.
func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
		if err == nil {
			err = markClean(s.directory)
		}
	}
	return errors.Join(
		err,
		s.locker.Release(s.lock),
	)
}

func (s *Store) checkOpen() error {
	if s.db == nil {
		return fmt.Errorf("store %s is closed", s.directory)
	}
	return nil
}

type snapshotIterator struct {
	iterator.Iterator
	snapshot *leveldb.Snapshot
}

func (i *snapshotIterator) Release() {
	i.Iterator.Release()
	i.snapshot.Release()
}
