// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package inspect produces read-only reports on the content of stores.
package inspect

import (
	"encoding/binary"
	"fmt"

	"github.com/Fantom-foundation/storeguard/database/store"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"golang.org/x/crypto/sha3"
)

// Source provides read access to a store whose lock is held by the caller,
// either through a *store.InspectionHandle or an open *store.Store.
type Source interface {
	Directory() string
	NewIterator() iterator.Iterator
}

var (
	_ Source = (*store.InspectionHandle)(nil)
	_ Source = (*store.Store)(nil)
)

// Read collects a report on the store accessible through the given source.
// It does not acquire or release any locks and does not modify the store.
// Reading an unchanged store multiple times produces identical reports.
// Unreadable or invalid store content is reported as store.ErrCorruptStore.
func Read(source Source) (Report, error) {
	dir := source.Directory()
	meta, present, err := store.ReadMetadata(dir)
	if err != nil {
		return Report{}, err
	}
	if !present {
		return Report{}, fmt.Errorf("%w: invalid directory content: missing %s", store.ErrCorruptStore, store.MetadataFileName)
	}
	if err := meta.Verify(); err != nil {
		return Report{}, err
	}

	dirty, err := store.IsDirty(dir)
	if err != nil {
		return Report{}, err
	}

	res := Report{
		Directory:     dir,
		Format:        meta.Format,
		Version:       meta.Version,
		Configuration: meta.Configuration,
		Layout:        meta.Layout,
		Clean:         !dirty,
	}
	if err := collectContentStatistics(source, &res); err != nil {
		return Report{}, fmt.Errorf("%w: failed to read content of %s: %w", store.ErrCorruptStore, dir, err)
	}
	return res, nil
}

// collectContentStatistics counts all entries of the store and computes
// a checksum over the sequence of entries in key order. Each entry
// contributes the length of its key and value followed by the key and
// value themselves.
func collectContentStatistics(source Source, report *Report) error {
	iter := source.NewIterator()
	defer iter.Release()

	hasher := sha3.NewLegacyKeccak256()
	var lengths [16]byte
	for iter.Next() {
		key, value := iter.Key(), iter.Value()
		binary.BigEndian.PutUint64(lengths[0:8], uint64(len(key)))
		binary.BigEndian.PutUint64(lengths[8:16], uint64(len(value)))
		hasher.Write(lengths[:])
		hasher.Write(key)
		hasher.Write(value)

		report.Entries++
		report.KeyBytes += uint64(len(key))
		report.ValueBytes += uint64(len(value))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	hasher.Sum(report.Checksum[:0])
	return nil
}
