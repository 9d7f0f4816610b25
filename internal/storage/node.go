// Package storage implements the graph storage engine: it maps Node, Edge,
// and AdjEntry records onto the internal/kv column families, maintains the
// adjacency index, and exposes Transaction as the sole mutation surface.
// Serialization builds on internal/gvalue's codec; key layouts are fixed
// here so that nothing outside this package needs to know how entities are
// packed into bytes.
package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
)

// Node is the in-memory form of a graph node: an id, an ordered set of
// labels, and an ordered property map. PropKeys records insertion order
// since Go maps do not, mirroring how internal/gvalue's property codec
// needs an explicit key order to round-trip.
type Node struct {
	ID         eid.ElementId
	Labels     []string
	PropKeys   []string
	Properties map[string]gvalue.Value
}

// codecErr translates internal/gvalue's decode sentinels into the stable
// error codes callers classify on with errors.Is.
func codecErr(err error) error {
	switch {
	case errors.Is(err, gvalue.ErrInvalidTag):
		return dberr.ErrInvalidValueTag
	case errors.Is(err, gvalue.ErrCorruption):
		return dberr.ErrCorruption
	default:
		return err
	}
}

// encodeNodeValue serializes a Node's value (everything but its key) into
// buf, reusing buf's backing array across calls within one transaction, so
// each write is a single serialization pass.
func encodeNodeValue(n *Node, buf *bytes.Buffer) []byte {
	buf.Reset()
	buf.Write(gvalue.EncodeStringSet(n.Labels))
	buf.Write(gvalue.EncodeProperties(n.PropKeys, n.Properties))
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// decodeNodeValue parses the bytes stored under a node key back into a
// Node (with id filled in separately by the caller, since the key is not
// part of the value payload).
func decodeNodeValue(id eid.ElementId, data []byte) (*Node, error) {
	labels, off, err := gvalue.DecodeStringSet(data)
	if err != nil {
		return nil, fmt.Errorf("storage: node %s labels: %w", id, codecErr(err))
	}
	keys, props, _, err := gvalue.DecodeProperties(data[off:])
	if err != nil {
		return nil, fmt.Errorf("storage: node %s properties: %w", id, codecErr(err))
	}
	return &Node{ID: id, Labels: labels, PropKeys: keys, Properties: props}, nil
}
