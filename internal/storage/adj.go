package storage

import (
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
)

// InOut tags one side of an adjacency entry: a directed edge
// contributes an `out` entry at its source and an `in` entry at its
// destination; an undirected edge contributes a `simple` entry at both
// ends.
type InOut byte

const (
	InOutOut    InOut = 0
	InOutSimple InOut = 1
	InOutIn     InOut = 2
)

// Inverse returns the InOut tag the adjacency index's reverse entry
// carries: out and in swap, simple maps to itself.
func (io InOut) Inverse() InOut {
	switch io {
	case InOutOut:
		return InOutIn
	case InOutIn:
		return InOutOut
	default:
		return InOutSimple
	}
}

func (io InOut) String() string {
	switch io {
	case InOutOut:
		return "out"
	case InOutIn:
		return "in"
	case InOutSimple:
		return "simple"
	default:
		return "inout(?)"
	}
}

// AdjEntry is one row of the adjacency index.
type AdjEntry struct {
	Src   eid.ElementId
	InOut InOut
	Edge  eid.ElementId
	Dst   eid.ElementId
}

const adjKeyLen = eid.Size + 1 + eid.Size // src || inout || edge

// adjKey builds the 25-byte adjacency index key for (src, inout, edge).
func adjKey(src eid.ElementId, inout InOut, edge eid.ElementId) []byte {
	k := make([]byte, adjKeyLen)
	copy(k[:eid.Size], src.Bytes())
	k[eid.Size] = byte(inout)
	copy(k[eid.Size+1:], edge.Bytes())
	return k
}

// parseAdjEntry decodes a (key, value) pair read from the adj column
// family back into an AdjEntry.
func parseAdjEntry(key, value []byte) (AdjEntry, error) {
	if len(key) != adjKeyLen || len(value) != eid.Size {
		return AdjEntry{}, fmt.Errorf("storage: malformed adjacency entry: %w", dberr.ErrCorruptedIndex)
	}
	src, err := eid.FromBytes(key[:eid.Size])
	if err != nil {
		return AdjEntry{}, fmt.Errorf("storage: adjacency src: %w", dberr.ErrCorruptedIndex)
	}
	edge, err := eid.FromBytes(key[eid.Size+1:])
	if err != nil {
		return AdjEntry{}, fmt.Errorf("storage: adjacency edge: %w", dberr.ErrCorruptedIndex)
	}
	dst, err := eid.FromBytes(value)
	if err != nil {
		return AdjEntry{}, fmt.Errorf("storage: adjacency dst: %w", dberr.ErrCorruptedIndex)
	}
	return AdjEntry{Src: src, InOut: InOut(key[eid.Size]), Edge: edge, Dst: dst}, nil
}

// fwdInOut is the InOut tag an edge's forward (source-side) adjacency
// entry carries.
func fwdInOut(directed bool) InOut {
	if directed {
		return InOutOut
	}
	return InOutSimple
}
