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
	"os"
	"path/filepath"
)

// DirtyFileName is the name of the file marking a store as being in use or
// not properly closed.
const DirtyFileName = "~dirty"

// IsDirty checks whether the given directory is marked as dirty. The mark
// is represented by the presence of a file in the respective directory.
// An error is returned if the directory does not exist, the provided
// path does not point to a directory, or another IO error occurred.
func IsDirty(directory string) (bool, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return false, err
	}

	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", directory)
	}

	stat, err := os.Stat(filepath.Join(directory, DirtyFileName))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !stat.IsDir(), nil
}

// markDirty marks the given directory as dirty. Stores keep this mark for
// as long as they are opened for writing and only clear it if they got
// successfully closed.
func markDirty(directory string) error {
	return os.WriteFile(filepath.Join(directory, DirtyFileName), []byte{}, 0600)
}

func markClean(directory string) error {
	return os.Remove(filepath.Join(directory, DirtyFileName))
}

func tryMarkDirty(directory string) error {
	dirty, err := IsDirty(directory)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("unable to open %s, %w, content is likely corrupted", directory, ErrDirty)
	}
	return markDirty(directory)
}
