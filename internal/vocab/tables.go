package vocab

// Well-known entries present in every vocabulary.
const (
	XMLPrefix    = "xml"
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"
)

// Tables is the complete vocabulary of a document.
type Tables struct {
	Alphabets       *StringTable
	Algorithms      *StringTable
	Prefixes        *StringTable
	Namespaces      *StringTable
	LocalNames      *StringTable
	OtherNCNames    *StringTable
	OtherURIs       *StringTable
	AttributeValues *StringTable
	Chunks          *StringTable
	OtherStrings    *StringTable
	ElementNames    *NameTable
	AttributeNames  *NameTable
}

var builtin = newBuiltin()

func newBuiltin() *Tables {
	t := newTables(true)
	t.Prefixes.Add(XMLPrefix)
	t.Namespaces.Add(XMLNamespace)
	return t
}

// Builtin returns the read-only tables every document starts from.
// Callers must not add entries to the result.
func Builtin() *Tables {
	return builtin
}

// New returns tables layered on the built-in vocabulary.
// Encoders need indexed tables; decoders only resolve indices.
func New(indexed bool) *Tables {
	t := newTables(indexed)
	t.SetBase(builtin)
	return t
}

func newTables(indexed bool) *Tables {
	return &Tables{
		Alphabets:       NewStringTable(indexed),
		Algorithms:      NewStringTable(indexed),
		Prefixes:        NewStringTable(indexed),
		Namespaces:      NewStringTable(indexed),
		LocalNames:      NewStringTable(indexed),
		OtherNCNames:    NewStringTable(indexed),
		OtherURIs:       NewStringTable(indexed),
		AttributeValues: NewStringTable(indexed),
		Chunks:          NewStringTable(indexed),
		OtherStrings:    NewStringTable(indexed),
		ElementNames:    NewNameTable(indexed),
		AttributeNames:  NewNameTable(indexed),
	}
}

// SetBase layers t on base and drops every entry added to t.
func (t *Tables) SetBase(base *Tables) {
	if base == nil {
		base = builtin
	}
	t.Alphabets.SetBase(base.Alphabets)
	t.Algorithms.SetBase(base.Algorithms)
	t.Prefixes.SetBase(base.Prefixes)
	t.Namespaces.SetBase(base.Namespaces)
	t.LocalNames.SetBase(base.LocalNames)
	t.OtherNCNames.SetBase(base.OtherNCNames)
	t.OtherURIs.SetBase(base.OtherURIs)
	t.AttributeValues.SetBase(base.AttributeValues)
	t.Chunks.SetBase(base.Chunks)
	t.OtherStrings.SetBase(base.OtherStrings)
	t.ElementNames.SetBase(base.ElementNames)
	t.AttributeNames.SetBase(base.AttributeNames)
}

// Reset drops every entry added on top of the base.
func (t *Tables) Reset() {
	for _, s := range t.strings() {
		s.Reset()
	}
	t.ElementNames.Reset()
	t.AttributeNames.Reset()
}

// Added returns the number of entries added on top of the base across all tables.
func (t *Tables) Added() int {
	n := len(t.ElementNames.names) + len(t.AttributeNames.names)
	for _, s := range t.strings() {
		n += s.Added()
	}
	return n
}

func (t *Tables) strings() [10]*StringTable {
	return [10]*StringTable{
		t.Alphabets, t.Algorithms, t.Prefixes, t.Namespaces, t.LocalNames,
		t.OtherNCNames, t.OtherURIs, t.AttributeValues, t.Chunks, t.OtherStrings,
	}
}
