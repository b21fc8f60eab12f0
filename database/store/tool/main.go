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
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/Fantom-foundation/storeguard/database/lock"
	"github.com/Fantom-foundation/storeguard/database/store"
	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./database/store/tool <command> <flags>

const registryKey = "registry"

var (
	storeFlag = cli.StringFlag{
		Name:     "store",
		Usage:    "the directory of the store",
		Required: true,
	}
	cpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "sets the target file for storing CPU profiles to, disabled if empty",
		Value: "",
	}
)

func main() {
	// A single registry is shared by everything in this process opening
	// stores, so that stores opened twice are detected.
	os.Exit(run(lock.NewRegistry(), os.Args, os.Stdout, os.Stderr))
}

// run executes the tool with the given arguments and returns the exit
// code of the process. Errors are reported on the given error stream.
func run(registry *lock.Registry, args []string, stdout, stderr io.Writer) int {
	if err := newApp(registry, stdout, stderr).Run(args); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newApp(registry *lock.Registry, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "store-tool",
		Usage:     "store inspection and maintenance toolbox",
		Copyright: "(c) 2024 Fantom Foundation",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cpuProfileFlag,
		},
		Commands: []*cli.Command{
			&StoreInfo,
			&Init,
			&Put,
			&LockStatus,
		},
		Metadata: map[string]interface{}{
			registryKey: registry,
		},
	}
}

func getRegistry(context *cli.Context) *lock.Registry {
	return context.App.Metadata[registryKey].(*lock.Registry)
}

func getOpener(context *cli.Context) *store.Opener {
	return store.NewOpener(getRegistry(context))
}

// addPerformanceDiagnoses wraps an action with optional CPU profiling. The
// profiling notice is only printed for successful actions, such that the
// first line on the error stream of a failing command is its error.
func addPerformanceDiagnoses(action cli.ActionFunc) cli.ActionFunc {
	return func(context *cli.Context) error {
		cpuProfileFileName := context.String(cpuProfileFlag.Name)
		if strings.TrimSpace(cpuProfileFileName) == "" {
			return action(context)
		}
		if err := startCpuProfiler(cpuProfileFileName); err != nil {
			return err
		}
		err := action(context)
		stopCpuProfiler()
		if err != nil {
			return err
		}
		logger := log.New(context.App.ErrWriter, "", log.LstdFlags)
		logger.Printf("recorded CPU profile to %s", cpuProfileFileName)
		return nil
	}
}

func startCpuProfiler(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return errors.Join(fmt.Errorf("could not start CPU profile: %w", err), f.Close())
	}
	return nil
}

func stopCpuProfiler() {
	pprof.StopCPUProfile()
}
