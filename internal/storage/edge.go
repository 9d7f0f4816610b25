package storage

import (
	"bytes"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
)

// Edge is the in-memory form of a graph edge. The endpoint pair is always
// recorded as (Src, Dst); for an undirected edge this ordering carries no
// query semantics but is still fixed at creation.
type Edge struct {
	ID         eid.ElementId
	Src        eid.ElementId
	Dst        eid.ElementId
	Directed   bool
	Labels     []string
	PropKeys   []string
	Properties map[string]gvalue.Value
}

func encodeEdgeValue(e *Edge, buf *bytes.Buffer) []byte {
	buf.Reset()
	buf.Write(e.Src.Bytes())
	buf.Write(e.Dst.Bytes())
	if e.Directed {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(gvalue.EncodeStringSet(e.Labels))
	buf.Write(gvalue.EncodeProperties(e.PropKeys, e.Properties))
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func decodeEdgeValue(id eid.ElementId, data []byte) (*Edge, error) {
	if len(data) < 2*eid.Size+1 {
		return nil, fmt.Errorf("storage: edge %s: %w", id, dberr.ErrCorruption)
	}
	src, err := eid.FromBytes(data[:eid.Size])
	if err != nil {
		return nil, fmt.Errorf("storage: edge %s src: %w", id, dberr.ErrCorruption)
	}
	dst, err := eid.FromBytes(data[eid.Size : 2*eid.Size])
	if err != nil {
		return nil, fmt.Errorf("storage: edge %s dst: %w", id, dberr.ErrCorruption)
	}
	directed := data[2*eid.Size] != 0
	rest := data[2*eid.Size+1:]

	labels, off, err := gvalue.DecodeStringSet(rest)
	if err != nil {
		return nil, fmt.Errorf("storage: edge %s labels: %w", id, codecErr(err))
	}
	keys, props, _, err := gvalue.DecodeProperties(rest[off:])
	if err != nil {
		return nil, fmt.Errorf("storage: edge %s properties: %w", id, codecErr(err))
	}
	return &Edge{
		ID: id, Src: src, Dst: dst, Directed: directed,
		Labels: labels, PropKeys: keys, Properties: props,
	}, nil
}

// sameEndpoints reports whether e has the same endpoints and directedness
// as (src, dst, directed) — the check put_edge makes against an existing
// edge record sharing its id.
func (e *Edge) sameEndpoints(src, dst eid.ElementId, directed bool) bool {
	return e.Src == src && e.Dst == dst && e.Directed == directed
}
