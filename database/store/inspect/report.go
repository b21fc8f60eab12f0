// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package inspect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"
)

// Report summarizes the metadata and content of a store.
type Report struct {
	Directory     string   `json:"directory"`
	Format        string   `json:"format"`
	Version       int      `json:"version"`
	Configuration string   `json:"configuration"`
	Layout        string   `json:"layout"`
	Clean         bool     `json:"clean"`
	Entries       uint64   `json:"entries"`
	KeyBytes      uint64   `json:"keyBytes"`
	ValueBytes    uint64   `json:"valueBytes"`
	Checksum      Checksum `json:"checksum"`
}

// Checksum is a keccak256 hash over the content of a store.
type Checksum [32]byte

func (c Checksum) String() string {
	return "0x" + hex.EncodeToString(c[:])
}

func (c Checksum) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Checksum) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return err
	}
	if len(raw) != len(c) {
		return fmt.Errorf("invalid checksum length: %d", len(raw))
	}
	copy(c[:], raw)
	return nil
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory contains a store with the following properties:\n")
	fmt.Fprintf(&b, "\tDirectory:        %v\n", r.Directory)
	fmt.Fprintf(&b, "\tFormat:           %v (version %d)\n", r.Format, r.Version)
	fmt.Fprintf(&b, "\tConfiguration:    %v\n", r.Configuration)
	fmt.Fprintf(&b, "\tLayout:           %v\n", r.Layout)
	fmt.Fprintf(&b, "\tClosed properly:  %v\n", yesNo(r.Clean))
	fmt.Fprintf(&b, "\tEntries:          %d\n", r.Entries)
	fmt.Fprintf(&b, "\tKey bytes:        %v\n", humanize.IBytes(r.KeyBytes))
	fmt.Fprintf(&b, "\tValue bytes:      %v\n", humanize.IBytes(r.ValueBytes))
	fmt.Fprintf(&b, "\tChecksum:         %v\n", r.Checksum)
	return b.String()
}

// JSON renders the report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
