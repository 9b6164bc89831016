// Package dupattr detects repeated attribute names within one element.
package dupattr

import "errors"

// ErrDuplicate reports an attribute name already seen on the current element.
var ErrDuplicate = errors.New("duplicate attribute")

const (
	headCount = 256
	headMask  = headCount - 1
	noEntry   = -1
)

type entry struct {
	namespace string
	local     string
	next      int32
}

// Verifier tracks the attribute names of the element being processed.
// Heads are valid only when their stamp equals the current stamp, so starting
// a new element is a counter increment instead of a table clear.
type Verifier struct {
	entries []entry
	heads   [headCount]int32
	stamps  [headCount]uint32
	current uint32
}

// Begin starts a new attribute set. It must be called before the first Check.
func (v *Verifier) Begin() {
	v.current++
	if v.current == 0 {
		v.stamps = [headCount]uint32{}
		v.current = 1
	}
	v.entries = v.entries[:0]
}

// Check records the attribute name and reports ErrDuplicate when the same
// (namespace, local) pair was already recorded since the last Begin.
// hash must be the value returned by Hash for the same pair.
func (v *Verifier) Check(hash uint32, namespace, local string) error {
	slot := hash & headMask
	head := int32(noEntry)
	if v.stamps[slot] == v.current {
		head = v.heads[slot]
	}
	for i := head; i != noEntry; i = v.entries[i].next {
		e := &v.entries[i]
		if e.local == local && e.namespace == namespace {
			return ErrDuplicate
		}
	}
	v.entries = append(v.entries, entry{namespace: namespace, local: local, next: head})
	v.heads[slot] = int32(len(v.entries) - 1)
	v.stamps[slot] = v.current
	return nil
}

// Hash returns the FNV-1a hash of an attribute name.
func Hash(namespace, local string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(namespace); i++ {
		h ^= uint32(namespace[i])
		h *= prime32
	}
	h = (h ^ 0xFF) * prime32
	for i := 0; i < len(local); i++ {
		h ^= uint32(local[i])
		h *= prime32
	}
	return h
}
