// Package probe inspects raw harness documents with gjson member lookups,
// without decoding the whole tree. It is an independent cross-check on what
// the backend under test wrote.
package probe

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON means the bytes are not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotHarnessDocument means the JSON lacks the harness header.
	ErrNotHarnessDocument = errors.New("not a harness document")
	// ErrHeaderMismatch means the header disagrees with the expected run.
	ErrHeaderMismatch = errors.New("harness header mismatch")
)

// Report holds the header members and the top-level data count.
type Report struct {
	Build    string `json:"build"`
	Size     int    `json:"size"`
	Seed     uint64 `json:"seed"`
	HasSeed  bool   `json:"has_seed"`
	TopLevel int    `json:"top_level"`
	Bytes    int    `json:"bytes"`
}

// Inspect validates data and reads build, size, seed and data.# from it.
func Inspect(data []byte) (Report, error) {
	if !gjson.ValidBytes(data) {
		return Report{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Report{}, fmt.Errorf("%w: top level is %s", ErrNotHarnessDocument, root.Type)
	}

	size := root.Get("size")
	if size.Type != gjson.Number {
		return Report{}, fmt.Errorf("%w: missing numeric size", ErrNotHarnessDocument)
	}
	items := root.Get("data")
	if !items.IsArray() {
		return Report{}, fmt.Errorf("%w: missing data array", ErrNotHarnessDocument)
	}

	r := Report{
		Build:    root.Get("build").String(),
		Size:     int(size.Int()),
		TopLevel: int(root.Get("data.#").Int()),
		Bytes:    len(data),
	}
	if seed := root.Get("seed"); seed.Exists() {
		n, err := strconv.ParseUint(seed.String(), 10, 64)
		if err != nil {
			return Report{}, fmt.Errorf("%w: bad seed %q", ErrNotHarnessDocument, seed.String())
		}
		r.Seed, r.HasSeed = n, true
	}
	return r, nil
}

// Check compares the header with the run that produced the document.
func (r Report) Check(size int, seed uint64) error {
	if r.Size != size {
		return fmt.Errorf("%w: size %d, want %d", ErrHeaderMismatch, r.Size, size)
	}
	if !r.HasSeed || r.Seed != seed {
		return fmt.Errorf("%w: seed %d, want %d", ErrHeaderMismatch, r.Seed, seed)
	}
	return nil
}
