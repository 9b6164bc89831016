package fastinfoset

import "github.com/google/uuid"

// Handler receives the events of a document.
// Slices passed to a Handler are only valid for the duration of the call.
type Handler interface {
	StartDocument(props DocumentProperties) error
	EndDocument() error
	// StartPrefixMapping is called for each namespace declaration of an element,
	// before StartElement.
	StartPrefixMapping(prefix, uri string) error
	// EndPrefixMapping is called for each namespace declaration of an element in
	// reverse declaration order, before EndElement.
	EndPrefixMapping(prefix string) error
	StartElement(name QName, attrs []Attr) error
	EndElement(name QName) error
	Characters(text []byte) error
	Comment(text []byte) error
	ProcessingInstruction(target, data string) error
}

// DeclHandler receives document type declarations and entity references.
type DeclHandler interface {
	DocumentType(dt DocumentType) error
	UnexpandedEntity(name, systemID, publicID string) error
}

// PrimitiveHandler receives character content carried by built-in encoding
// algorithms as typed values. Without it the decoder reports their character
// rendering through Characters.
type PrimitiveHandler interface {
	// Octets receives hexadecimal or base64 data; algorithm tells which.
	Octets(algorithm int, data []byte) error
	Shorts(values []int16) error
	Ints(values []int32) error
	Longs(values []int64) error
	Booleans(values []bool) error
	Floats(values []float32) error
	Doubles(values []float64) error
	UUIDs(values []uuid.UUID) error
}

// AlgorithmHandler receives character content carried by application
// encoding algorithms. Values of algorithms without a registered
// implementation arrive as raw octets.
type AlgorithmHandler interface {
	AlgorithmData(v Value) error
}

// AlphabetHandler receives character content packed with a restricted alphabet.
type AlphabetHandler interface {
	AlphabetCharacters(alphabet string, text []byte) error
}

// CDATAHandler receives character content marked as a CDATA section.
type CDATAHandler interface {
	CDATA(text []byte) error
}

// ErrorHandler is notified of a fatal decoding error before Decode returns it.
type ErrorHandler interface {
	FatalError(err error)
}

// NopHandler implements Handler by ignoring every event.
// Embed it to implement only the events of interest.
type NopHandler struct{}

func (NopHandler) StartDocument(DocumentProperties) error     { return nil }
func (NopHandler) EndDocument() error                         { return nil }
func (NopHandler) StartPrefixMapping(string, string) error    { return nil }
func (NopHandler) EndPrefixMapping(string) error              { return nil }
func (NopHandler) StartElement(QName, []Attr) error           { return nil }
func (NopHandler) EndElement(QName) error                     { return nil }
func (NopHandler) Characters([]byte) error                    { return nil }
func (NopHandler) Comment([]byte) error                       { return nil }
func (NopHandler) ProcessingInstruction(string, string) error { return nil }

var _ Handler = NopHandler{}
