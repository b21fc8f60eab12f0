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

//go:generate mockgen -source locker.go -destination locker_mocks.go -package store

import "github.com/Fantom-foundation/storeguard/database/lock"

// Locker grants exclusive access to store directories. It is implemented by
// *lock.Registry.
type Locker interface {
	// Acquire obtains exclusive access to the given directory without
	// waiting for it.
	Acquire(directory string) (*lock.Handle, error)
	// Release gives up the access represented by the given handle.
	Release(handle *lock.Handle) error
}

var _ Locker = (*lock.Registry)(nil)
