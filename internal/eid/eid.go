// Package eid provides ElementId, the opaque 96-bit identifier shared by
// nodes, edges, and id-typed values across NornicDB's storage and plan
// layers.
//
// Identifiers are generated uniformly at random at creation time and are
// never reused; two entities with non-overlapping lifetimes may in theory
// collide, but at 96 bits of randomness that risk is treated as negligible
// rather than prevented.
//
// Example:
//
//	id := eid.New()
//	fmt.Println(id.String()) // 16-character base64url, e.g. "QaG8m1sNv3c5xR2Y"
//	id2, err := eid.Parse(id.String())
package eid

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// Size is the length in bytes of an ElementId's on-disk encoding.
const Size = 12

// ErrInvalidLength is returned when decoding a byte slice or string that
// does not carry exactly Size bytes of identifier data.
var ErrInvalidLength = errors.New("eid: invalid length")

// ElementId is a 96-bit opaque identifier for a node, edge, or free-standing
// id value. It is comparable and usable as a map key.
type ElementId [Size]byte

// Zero is the all-zero ElementId. It is never produced by New and is used
// as a sentinel for "no id" in contexts that need one.
var Zero ElementId

// New generates a fresh ElementId using a cryptographically random source.
// Callers never supply their own bytes for stored entities; New is the only
// constructor used when inserting nodes or edges.
func New() ElementId {
	var id ElementId
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand.Read on the standard reader does not fail in practice;
		// a failure here means the OS entropy source is broken.
		panic(fmt.Sprintf("eid: crypto/rand failed: %v", err))
	}
	return id
}

// FromBytes decodes a 12-byte big-endian buffer into an ElementId.
func FromBytes(b []byte) (ElementId, error) {
	var id ElementId
	if len(b) != Size {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns the 12-byte big-endian encoding of the id.
func (id ElementId) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// String renders the id as the 16-character base64url form used for display
// and in the query language surface.
func (id ElementId) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Parse decodes the 16-character base64url display form produced by String.
func Parse(s string) (ElementId, error) {
	var id ElementId
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("eid: parsing %q: %w", s, err)
	}
	if len(b) != Size {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// IsZero reports whether id is the all-zero sentinel.
func (id ElementId) IsZero() bool {
	return id == Zero
}
