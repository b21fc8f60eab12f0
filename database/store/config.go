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
	"github.com/pbnjay/memory"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Config defines a set of configuration options for a store. The name of
// the configuration used to create a store is recorded in its metadata and
// verified when re-opening it.
type Config struct {
	// A descriptive name for this configuration. It is used to identify
	// the configuration in store metadata and on the command line.
	Name string

	// The capacity of the block cache of the data base in bytes. The
	// effective capacity is limited to a fraction of the system memory.
	BlockCacheCapacity int

	// The size of the in-memory write buffer in bytes.
	WriteBufferSize int

	// If set, writes are not synced to disk before being acknowledged.
	NoSync bool
}

var DefaultConfig = Config{
	Name:               "Default",
	BlockCacheCapacity: 64 * opt.MiB,
	WriteBufferSize:    16 * opt.MiB,
}

var SmallConfig = Config{
	Name:               "Small",
	BlockCacheCapacity: 8 * opt.MiB,
	WriteBufferSize:    4 * opt.MiB,
}

var NoSyncConfig = Config{
	Name:               "NoSync",
	BlockCacheCapacity: 64 * opt.MiB,
	WriteBufferSize:    16 * opt.MiB,
	NoSync:             true,
}

var allConfigs = map[string]Config{
	DefaultConfig.Name: DefaultConfig,
	SmallConfig.Name:   SmallConfig,
	NoSyncConfig.Name:  NoSyncConfig,
}

// GetConfigByName attempts to locate a configuration with the given name.
func GetConfigByName(name string) (Config, bool) {
	res, found := allConfigs[name]
	return res, found
}

// ConfigNames lists the names of all known configurations in order.
func ConfigNames() []string {
	res := maps.Keys(allConfigs)
	slices.Sort(res)
	return res
}

// maxCacheShareOfMemory limits block caches to 1/8 of the system memory.
const maxCacheShareOfMemory = 8

func (c Config) options() *opt.Options {
	return &opt.Options{
		BlockCacheCapacity: cacheCapacity(c.BlockCacheCapacity, memory.TotalMemory()),
		WriteBuffer:        c.WriteBufferSize,
		NoSync:             c.NoSync,
	}
}

func (c Config) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: !c.NoSync}
}

// cacheCapacity caps the requested capacity by the share of the total
// memory a cache may use. A total of 0 means the memory size is unknown.
func cacheCapacity(requested int, total uint64) int {
	limit := total / maxCacheShareOfMemory
	if total == 0 || requested < 0 || uint64(requested) <= limit {
		return requested
	}
	return int(limit)
}
