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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// MetadataFileName is the name of the file describing a store.
	MetadataFileName = "store.json"

	formatName    = "storeguard"
	formatVersion = 1
	layoutLevelDb = "leveldb"
)

// Metadata is the content of the metadata file of a store directory.
type Metadata struct {
	Format        string
	Version       int
	Configuration string
	Layout        string
}

func newMetadata(config Config) Metadata {
	return Metadata{
		Format:        formatName,
		Version:       formatVersion,
		Configuration: config.Name,
		Layout:        layoutLevelDb,
	}
}

// ReadMetadata parses the metadata file of the given store directory. If
// there is no such file, a default-initialized metadata struct is returned
// and the result is marked as not present. Unparsable content is reported
// as ErrCorruptStore. The store content is not modified.
func ReadMetadata(directory string) (Metadata, bool, error) {
	path := filepath.Join(directory, MetadataFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, false, fmt.Errorf("%w: invalid metadata in %s: %w", ErrCorruptStore, path, err)
	}
	return meta, true, nil
}

// Verify checks that the metadata describes a store supported by this
// implementation. Any mismatch is reported as ErrCorruptStore.
func (m Metadata) Verify() error {
	if m.Format != formatName {
		return fmt.Errorf("%w: unknown store format: %q", ErrCorruptStore, m.Format)
	}
	if m.Version != formatVersion {
		return fmt.Errorf("%w: unsupported store version: %d", ErrCorruptStore, m.Version)
	}
	if m.Layout != layoutLevelDb {
		return fmt.Errorf("%w: unknown store layout: %q", ErrCorruptStore, m.Layout)
	}
	if _, found := GetConfigByName(m.Configuration); !found {
		return fmt.Errorf("%w: unknown store configuration: %q", ErrCorruptStore, m.Configuration)
	}
	return nil
}

// checkOrCreateMetadata verifies the metadata of an existing store against
// the given configuration or initializes the metadata of a new store.
func checkOrCreateMetadata(directory string, config Config) (Metadata, error) {
	meta, present, err := ReadMetadata(directory)
	if err != nil {
		return meta, err
	}

	if present {
		if err := meta.Verify(); err != nil {
			return meta, err
		}
		if want, got := config.Name, meta.Configuration; want != got {
			return meta, fmt.Errorf("unexpected store configuration in directory, wanted %v, got %v", want, got)
		}
		return meta, nil
	}

	meta = newMetadata(config)
	data, err := json.Marshal(meta)
	if err != nil {
		return meta, err
	}
	return meta, os.WriteFile(filepath.Join(directory, MetadataFileName), data, 0600)
}
