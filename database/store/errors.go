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

	"github.com/Fantom-foundation/storeguard/common"
	"github.com/Fantom-foundation/storeguard/database/lock"
)

const (
	// ErrStoreInUse is reported if a store directory is locked by another
	// process. Its message is matched by external tooling and must not change.
	ErrStoreInUse = common.ConstError("the database is in use")
	// ErrAlreadyOpenInProcess is reported if a store directory is already
	// opened by the current process.
	ErrAlreadyOpenInProcess = common.ConstError("the database is already open in this process")
	// ErrCorruptStore is reported if the content of a store directory can
	// not be interpreted.
	ErrCorruptStore = common.ConstError("the database content is corrupted")
	// ErrDirty is reported when opening a store that has not been closed
	// properly.
	ErrDirty = common.ConstError("the database was not closed properly")
)

// translateLockError converts lock contention errors into store errors. The
// original error is retained as a cause. Other errors are returned unchanged.
func translateLockError(directory string, err error) error {
	switch {
	case errors.Is(err, lock.ErrHeldByOtherProcess):
		return fmt.Errorf("failed to open %s, %w (%w)", directory, ErrStoreInUse, err)
	case errors.Is(err, lock.ErrAlreadyHeldBySelf):
		return fmt.Errorf("failed to open %s, %w (%w)", directory, ErrAlreadyOpenInProcess, err)
	}
	return err
}
