// Package vocab implements the append-only string and name tables shared by
// the encoder and decoder of a document.
package vocab

// MaxEntries is the largest number of entries a table may hold.
const MaxEntries = 1 << 20

// StringTable maps dense 0-based indices to strings in first-seen order.
// Entries of the base table precede the entries added to this table; the base
// is never modified through this table.
type StringTable struct {
	base    *StringTable
	baseLen int
	values  []string
	index   map[string]int
}

// NewStringTable returns an empty table. Indexed tables support Lookup.
func NewStringTable(indexed bool) *StringTable {
	t := &StringTable{}
	if indexed {
		t.index = make(map[string]int)
	}
	return t
}

// SetBase installs base as the read-only prefix of the table and drops all
// entries added so far.
func (t *StringTable) SetBase(base *StringTable) {
	t.Reset()
	t.base = base
	t.baseLen = 0
	if base != nil {
		t.baseLen = base.Len()
	}
}

// Len returns the number of entries including the base.
func (t *StringTable) Len() int {
	return t.baseLen + len(t.values)
}

// Added returns the number of entries added on top of the base.
func (t *StringTable) Added() int {
	return len(t.values)
}

// Get returns the entry at index i.
func (t *StringTable) Get(i int) (string, bool) {
	if i < 0 {
		return "", false
	}
	if i < t.baseLen {
		return t.base.Get(i)
	}
	i -= t.baseLen
	if i >= len(t.values) {
		return "", false
	}
	return t.values[i], true
}

// Lookup returns the first index holding s. Tables created without an index
// only search their base.
func (t *StringTable) Lookup(s string) (int, bool) {
	if t.base != nil {
		if i, ok := t.base.Lookup(s); ok {
			return i, true
		}
	}
	if t.index == nil {
		return 0, false
	}
	i, ok := t.index[s]
	if !ok {
		return 0, false
	}
	return t.baseLen + i, true
}

// Add appends s and returns its index. It reports false when the table is full.
func (t *StringTable) Add(s string) (int, bool) {
	if t.Len() >= MaxEntries {
		return 0, false
	}
	t.values = append(t.values, s)
	i := len(t.values) - 1
	if t.index != nil {
		if _, exists := t.index[s]; !exists {
			t.index[s] = i
		}
	}
	return t.baseLen + i, true
}

// Intern returns the index of s, adding it when absent. added reports whether
// a new entry was created; ok is false when s is absent and the table is full.
func (t *StringTable) Intern(s string) (index int, added, ok bool) {
	if i, found := t.Lookup(s); found {
		return i, false, true
	}
	i, ok := t.Add(s)
	return i, ok, ok
}

// Values returns the entries added on top of the base.
func (t *StringTable) Values() []string {
	return t.values
}

// Reset drops every entry added on top of the base.
func (t *StringTable) Reset() {
	clear(t.values)
	t.values = t.values[:0]
	if t.index != nil {
		clear(t.index)
	}
}
