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
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
)

var Put = cli.Command{
	Action:    addPerformanceDiagnoses(put),
	Name:      "put",
	Usage:     "writes a single entry to an existing store",
	ArgsUsage: "<key> <value>",
	Flags: []cli.Flag{
		&storeFlag,
	},
}

func put(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("missing key and/or value parameter")
	}
	dir := context.String(storeFlag.Name)
	key, value := context.Args().Get(0), context.Args().Get(1)

	s, err := openConfiguredStore(context, dir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return s.Put([]byte(key), []byte(value))
}
