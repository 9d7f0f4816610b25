package storage

import (
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/kv"
)

// HasLabel reports whether the node carries label.
func (n *Node) HasLabel(label string) bool { return hasLabel(n.Labels, label) }

// HasLabel reports whether the edge carries label.
func (e *Edge) HasLabel(label string) bool { return hasLabel(e.Labels, label) }

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// NodeIterator walks every node in the graph in element-id (byte) order.
type NodeIterator struct {
	it *kv.Iterator
}

// Next advances the iterator.
func (n *NodeIterator) Next() bool { return n.it.Next() }

// Node decodes the current node.
func (n *NodeIterator) Node() (*Node, error) {
	id, err := eid.FromBytes(n.it.Key())
	if err != nil {
		return nil, err
	}
	return decodeNodeValue(id, n.it.Value())
}

// IterateNodes scans every node in the transaction's snapshot (plus its own
// writes), in id order. Non-conflicting.
func (t *Transaction) IterateNodes() (*NodeIterator, error) {
	it, err := t.kv.Iterate(kv.CFNode, nil, nil)
	if err != nil {
		return nil, err
	}
	return &NodeIterator{it: it}, nil
}

// EdgeIterator walks every edge in the graph in element-id (byte) order.
type EdgeIterator struct {
	it *kv.Iterator
}

// Next advances the iterator.
func (e *EdgeIterator) Next() bool { return e.it.Next() }

// Edge decodes the current edge.
func (e *EdgeIterator) Edge() (*Edge, error) {
	id, err := eid.FromBytes(e.it.Key())
	if err != nil {
		return nil, err
	}
	return decodeEdgeValue(id, e.it.Value())
}

// IterateEdges scans every edge in the transaction's snapshot (plus its own
// writes), in id order. Non-conflicting.
func (t *Transaction) IterateEdges() (*EdgeIterator, error) {
	it, err := t.kv.Iterate(kv.CFEdge, nil, nil)
	if err != nil {
		return nil, err
	}
	return &EdgeIterator{it: it}, nil
}
