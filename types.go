package fastinfoset

// Common XML namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
)

// QName is an expanded XML name together with the prefix it was written with.
type QName struct {
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty" cbor:"prefix,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" cbor:"namespace,omitempty"`
	Local     string `yaml:"local" json:"local" cbor:"local"`
}

// String returns the qualified name, prefix:local or local.
func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Equal reports whether q and other have the same namespace and local name.
func (q QName) Equal(other QName) bool {
	return q.Local == other.Local && q.Namespace == other.Namespace
}

// Attr is an attribute of a start element.
type Attr struct {
	Name QName
	// Value is the attribute value, or the character rendering of Encoded.
	Value string
	// Encoded carries the value as typed data of an encoding algorithm.
	Encoded *Value
	// Alphabet holds the characters of the restricted alphabet used for Value.
	Alphabet string
}

// Value is typed data carried by an encoding algorithm.
type Value struct {
	// Data is the decoded value. For application algorithms without a
	// registered implementation it holds the raw octets as []byte.
	Data any
	// URI identifies an application algorithm; it is empty for built-ins.
	URI string
	// Algorithm is the algorithm identifier.
	Algorithm int
}

// Standalone is the standalone property of a document.
type Standalone uint8

const (
	StandaloneUnset Standalone = iota
	StandaloneNo
	StandaloneYes
)

// AdditionalData is application data attached to a document.
type AdditionalData struct {
	ID   string
	Data []byte
}

// Notation is a notation declared by a document.
type Notation struct {
	Name     string
	SystemID string
	PublicID string
}

// UnparsedEntity is an unparsed entity declared by a document.
type UnparsedEntity struct {
	Name     string
	SystemID string
	PublicID string
	Notation string
}

// DocumentProperties holds the optional document-level properties.
type DocumentProperties struct {
	AdditionalData          []AdditionalData
	Notations               []Notation
	UnparsedEntities        []UnparsedEntity
	CharacterEncodingScheme string
	Version                 string
	// ExternalVocabulary is the URI of the external vocabulary a decoded
	// document referred to. Encoders take it from EncoderOptions instead.
	ExternalVocabulary string
	Standalone         Standalone
}

// ProcessingInstruction is a processing instruction.
type ProcessingInstruction struct {
	Target string
	Data   string
}

// DocumentType is a document type declaration.
type DocumentType struct {
	SystemID     string
	PublicID     string
	Instructions []ProcessingInstruction
}
