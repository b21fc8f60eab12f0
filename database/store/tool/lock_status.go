// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var LockStatus = cli.Command{
	Action: lockStatus,
	Name:   "lock-status",
	Usage:  "prints whether a store is free or locked by this or another process",
	Flags: []cli.Flag{
		&storeFlag,
	},
}

func lockStatus(context *cli.Context) error {
	dir := context.String(storeFlag.Name)
	state, err := getRegistry(context).State(dir)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(context.App.Writer, state)
	return err
}
