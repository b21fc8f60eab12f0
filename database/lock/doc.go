// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package lock provides exclusive, non-blocking ownership of store
// directories across process boundaries.
//
// The OS lock on a directory's marker file alone is not able to detect a
// process trying to lock the same directory twice, since whether a second
// attempt fails or silently succeeds depends on the platform primitive. A
// Registry therefore tracks all directories locked by the current process and
// reports a second attempt as ErrAlreadyHeldBySelf, while locks owned by
// other processes are reported as ErrHeldByOtherProcess.
package lock
