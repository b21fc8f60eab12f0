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
	"path/filepath"

	"github.com/Fantom-foundation/storeguard/common"
)

// State summarizes the ownership of a store directory from the point of view
// of a registry.
type State int

const (
	Free State = iota
	HeldBySelf
	HeldByOther
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case HeldBySelf:
		return "held-by-self"
	case HeldByOther:
		return "held-by-other"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// State determines the lock state of the given directory. To distinguish
// between a free directory and one held by another process, the OS lock is
// probed by acquiring and immediately releasing it. This creates the lock
// marker file if it is missing. The result is a snapshot and may be outdated
// by the time it is consumed.
func (r *Registry) State(directory string) (State, error) {
	dir, err := canonicalDirectory(directory)
	if err != nil {
		return Free, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, found := r.held[dir]; found {
		return HeldBySelf, nil
	}

	file, err := common.TryLockFile(filepath.Join(dir, LockFileName))
	if errors.Is(err, common.ErrLockFileBusy) {
		return HeldByOther, nil
	}
	if err != nil {
		return Free, fmt.Errorf("unable to probe lock of %s: %w", dir, err)
	}
	return Free, file.Release()
}
