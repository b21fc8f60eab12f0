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
	"io"

	"github.com/Fantom-foundation/storeguard/database/store"
	"github.com/Fantom-foundation/storeguard/database/store/inspect"
	"github.com/urfave/cli/v2"
)

var StoreInfo = cli.Command{
	Action: addPerformanceDiagnoses(storeInfo),
	Name:   "store-info",
	Usage:  "lists information about a store; fails if the store is in use",
	Flags: []cli.Flag{
		&storeFlag,
		&jsonFlag,
	},
}

var (
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "print the report in JSON format",
	}
)

func storeInfo(context *cli.Context) error {
	dir := context.String(storeFlag.Name)
	return printStoreInfo(getOpener(context), dir, context.Bool(jsonFlag.Name), context.App.Writer)
}

// printStoreInfo inspects the given store directory and prints a report
// on it. The lock of the store is only held during the inspection.
func printStoreInfo(opener *store.Opener, dir string, asJson bool, out io.Writer) error {
	var report inspect.Report
	err := opener.Inspect(dir, func(handle *store.InspectionHandle) (err error) {
		report, err = inspect.Read(handle)
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to inspect %s: %w", dir, err)
	}

	if asJson {
		data, err := report.JSON()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	_, err = fmt.Fprint(out, report.String())
	return err
}
