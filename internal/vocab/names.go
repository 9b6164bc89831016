package vocab

import "github.com/jacoelho/fastinfoset/internal/dupattr"

// NoIndex marks an absent prefix or namespace component of a Name.
const NoIndex = -1

// Name is an interned qualified name.
type Name struct {
	Prefix    string
	Namespace string
	Local     string
	// Qualified is prefix:local, or local when there is no prefix.
	Qualified string

	PrefixIndex    int
	NamespaceIndex int
	LocalIndex     int

	// Hash keys the duplicate-attribute verifier.
	Hash uint32
	// Index is the position of the name in its table.
	Index int
}

// NewName builds a name with precomputed qualified string and hash.
func NewName(prefix, namespace, local string, prefixIndex, namespaceIndex, localIndex int) Name {
	qualified := local
	if prefix != "" {
		qualified = prefix + ":" + local
	}
	return Name{
		Prefix:         prefix,
		Namespace:      namespace,
		Local:          local,
		Qualified:      qualified,
		PrefixIndex:    prefixIndex,
		NamespaceIndex: namespaceIndex,
		LocalIndex:     localIndex,
		Hash:           dupattr.Hash(namespace, local),
		Index:          NoIndex,
	}
}

type nameKey struct {
	prefix    string
	namespace string
	local     string
}

// NameTable is the qualified-name counterpart of StringTable.
type NameTable struct {
	base    *NameTable
	baseLen int
	names   []*Name
	index   map[nameKey]int
}

// NewNameTable returns an empty name table. Indexed tables support Lookup.
func NewNameTable(indexed bool) *NameTable {
	t := &NameTable{}
	if indexed {
		t.index = make(map[nameKey]int)
	}
	return t
}

// SetBase installs base as the read-only prefix and drops added entries.
func (t *NameTable) SetBase(base *NameTable) {
	t.Reset()
	t.base = base
	t.baseLen = 0
	if base != nil {
		t.baseLen = base.Len()
	}
}

// Len returns the number of entries including the base.
func (t *NameTable) Len() int {
	return t.baseLen + len(t.names)
}

// Get returns the name at index i.
func (t *NameTable) Get(i int) (*Name, bool) {
	if i < 0 {
		return nil, false
	}
	if i < t.baseLen {
		return t.base.Get(i)
	}
	i -= t.baseLen
	if i >= len(t.names) {
		return nil, false
	}
	return t.names[i], true
}

// Lookup returns the index of the name with the given components.
func (t *NameTable) Lookup(prefix, namespace, local string) (int, bool) {
	if t.base != nil {
		if i, ok := t.base.Lookup(prefix, namespace, local); ok {
			return i, true
		}
	}
	if t.index == nil {
		return 0, false
	}
	i, ok := t.index[nameKey{prefix: prefix, namespace: namespace, local: local}]
	if !ok {
		return 0, false
	}
	return t.baseLen + i, true
}

// Add appends a copy of n and returns the stored entry.
// It reports false when the table is full.
func (t *NameTable) Add(n Name) (*Name, bool) {
	if t.Len() >= MaxEntries {
		return nil, false
	}
	stored := n
	stored.Index = t.Len()
	t.names = append(t.names, &stored)
	if t.index != nil {
		key := nameKey{prefix: n.Prefix, namespace: n.Namespace, local: n.Local}
		if _, exists := t.index[key]; !exists {
			t.index[key] = len(t.names) - 1
		}
	}
	return &stored, true
}

// Names returns the entries added on top of the base.
func (t *NameTable) Names() []*Name {
	return t.names
}

// Reset drops every entry added on top of the base.
func (t *NameTable) Reset() {
	clear(t.names)
	t.names = t.names[:0]
	if t.index != nil {
		clear(t.index)
	}
}
