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
	"strings"

	"github.com/Fantom-foundation/storeguard/database/store"
	"github.com/urfave/cli/v2"
)

var Init = cli.Command{
	Action: addPerformanceDiagnoses(initStore),
	Name:   "init",
	Usage:  "creates a new store or checks that an existing one can be opened",
	Flags: []cli.Flag{
		&storeFlag,
		&configFlag,
	},
}

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: fmt.Sprintf("the store configuration, one of %s", strings.Join(store.ConfigNames(), ", ")),
		Value: store.DefaultConfig.Name,
	}
)

func initStore(context *cli.Context) error {
	dir := context.String(storeFlag.Name)
	name := context.String(configFlag.Name)
	config, found := store.GetConfigByName(name)
	if !found {
		return fmt.Errorf("unknown store configuration: %v", name)
	}

	s, err := getOpener(context).Open(dir, config)
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("error closing store: %w", err)
	}
	fmt.Fprintf(context.App.Writer, "Store in %s is ready (configuration %s)\n", dir, config.Name)
	return nil
}

func openConfiguredStore(context *cli.Context, dir string) (*store.Store, error) {
	meta, present, err := store.ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, fmt.Errorf("no store in %s, run init first", dir)
	}
	config, found := store.GetConfigByName(meta.Configuration)
	if !found {
		return nil, fmt.Errorf("%w: unknown store configuration: %q", store.ErrCorruptStore, meta.Configuration)
	}
	return getOpener(context).Open(dir, config)
}
