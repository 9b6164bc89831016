package fastinfoset

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/algorithm"
	"github.com/jacoelho/fastinfoset/internal/alphabet"
	"github.com/jacoelho/fastinfoset/internal/dupattr"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/octets"
	"github.com/jacoelho/fastinfoset/internal/scope"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// Encoding bits of non-identifying strings and character chunks.
const (
	stringAddToTable = 0x40
	stringUTF16      = 0x10
	stringAlphabet   = 0x20
	stringAlgorithm  = 0x30

	chunkUTF16     = 0x04
	chunkAlphabet  = 0x08
	chunkAlgorithm = 0x0C
)

var numericAlphabet, _ = alphabet.Builtin(alphabet.Numeric)

// CharacterOptions controls how one chunk of character data is encoded.
type CharacterOptions struct {
	// Alphabet packs the chunk with the restricted alphabet of these characters.
	Alphabet string
	// Index adds the chunk to the vocabulary regardless of its size.
	Index bool
	// CDATA marks the chunk as a CDATA section. It cannot be combined with Index.
	CDATA bool
}

// StartPrefixMapping records a namespace declaration of the next element.
func (e *Encoder) StartPrefixMapping(prefix, uri string) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.declared = append(e.declared, scope.Binding{Prefix: prefix, Namespace: uri})
	return nil
}

// EndPrefixMapping is a no-op: declarations end with their element.
func (e *Encoder) EndPrefixMapping(string) error {
	return e.ready()
}

// StartElement writes an element with its namespace declarations and
// attributes. Attributes named xmlns or xmlns:* are written as namespace
// declarations.
func (e *Encoder) StartElement(name QName, attrs []Attr) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.doc.OnStartElement(len(e.stack)); err != nil {
		return e.fail(fierrors.Wrap(fierrors.ErrDocumentStructure, err, "start element "+name.String()))
	}
	if name.Local == "" {
		return e.fail(fierrors.New(fierrors.ErrInvalidEvent, "element without local name"))
	}
	e.flushTerminator()
	e.scope.Open()

	regular := e.attrs[:0]
	for _, a := range attrs {
		prefix, ok := namespaceDeclaration(a.Name)
		if !ok {
			regular = append(regular, a)
			continue
		}
		if !e.pendingDeclaration(prefix) {
			e.declared = append(e.declared, scope.Binding{Prefix: prefix, Namespace: a.Value})
		}
	}
	e.attrs = regular

	var lead byte
	if len(e.declared) > 0 {
		mark := len(e.buf)
		e.buf = append(e.buf, itemkind.OctetElementNamespaces)
		for _, b := range e.declared {
			if err := e.appendNamespaceDeclaration(b.Prefix, b.Namespace); err != nil {
				return e.fail(err)
			}
		}
		e.buf = append(e.buf, itemkind.OctetTerminator)
		if len(regular) > 0 {
			e.buf[mark] |= itemkind.FlagAttributes
		}
		e.declared = e.declared[:0]
	} else if len(regular) > 0 {
		lead = itemkind.FlagAttributes
	}

	if err := e.scope.Check(name.Prefix, name.Namespace); err != nil {
		return e.fail(fierrors.Wrap(fierrors.ErrNotInScope, err, "element "+name.String()))
	}
	if err := e.appendElementName(lead, name); err != nil {
		return e.fail(err)
	}
	if len(regular) > 0 {
		e.dup.Begin()
		for _, a := range regular {
			if err := e.appendAttribute(a); err != nil {
				return e.fail(err)
			}
		}
		e.terminate()
	}
	e.stack = append(e.stack, name)
	return e.flushIfFull()
}

// namespaceDeclaration reports whether name is an xmlns attribute and
// returns the declared prefix.
func namespaceDeclaration(name QName) (string, bool) {
	switch {
	case name.Prefix == "" && name.Local == "xmlns":
		return "", true
	case name.Prefix == "xmlns":
		return name.Local, true
	default:
		return "", false
	}
}

// declarationCode classifies a rejected namespace declaration.
func declarationCode(err error) fierrors.ErrorCode {
	if errors.Is(err, scope.ErrDuplicatePrefix) {
		return fierrors.ErrDuplicateAttribute
	}
	return fierrors.ErrNotInScope
}

func (e *Encoder) pendingDeclaration(prefix string) bool {
	for _, b := range e.declared {
		if b.Prefix == prefix {
			return true
		}
	}
	return false
}

func (e *Encoder) appendNamespaceDeclaration(prefix, namespace string) error {
	if err := e.scope.Declare(prefix, namespace); err != nil {
		return fierrors.Wrap(declarationCode(err), err, "namespace declaration "+prefix)
	}
	lead := byte(itemkind.OctetNamespaceAttribute)
	if prefix != "" {
		lead |= itemkind.FlagPrefix
	}
	if namespace != "" {
		lead |= itemkind.FlagNamespace
	}
	e.buf = append(e.buf, lead)
	if prefix != "" {
		if _, err := e.appendIdentifying(e.tables.Prefixes, prefix); err != nil {
			return err
		}
	}
	if namespace != "" {
		if _, err := e.appendIdentifying(e.tables.Namespaces, namespace); err != nil {
			return err
		}
	}
	return nil
}

// EndElement closes the innermost element, which must be name.
func (e *Encoder) EndElement(name QName) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(e.stack) == 0 {
		return e.fail(fierrors.Newf(fierrors.ErrInvalidEvent, "end element %s without start", name))
	}
	top := e.stack[len(e.stack)-1]
	if !top.Equal(name) {
		return e.fail(fierrors.Newf(fierrors.ErrInvalidEvent, "end element %s does not match %s", name, top))
	}
	e.terminate()
	e.scope.Close()
	e.stack = e.stack[:len(e.stack)-1]
	e.doc.OnEndElement(len(e.stack) == 0)
	return e.flushIfFull()
}

func (e *Encoder) appendElementName(lead byte, q QName) error {
	if i, ok := e.tables.ElementNames.Lookup(q.Prefix, q.Namespace, q.Local); ok {
		e.buf = octets.AppendThirdBitInteger(e.buf, lead, i)
		return nil
	}
	e.buf = append(e.buf, lead|itemkind.OctetElementLiteral|nameFlags(q))
	name, err := e.appendLiteralName(q)
	if err != nil {
		return err
	}
	if _, ok := e.tables.ElementNames.Add(name); !ok {
		return fierrors.New(fierrors.ErrTableFull, "element name table full")
	}
	return nil
}

func (e *Encoder) appendAttribute(a Attr) error {
	q := a.Name
	if q.Local == "" {
		return fierrors.New(fierrors.ErrInvalidEvent, "attribute without local name")
	}
	if q.Prefix != "" || q.Namespace != "" {
		if q.Prefix == "" {
			return fierrors.Newf(fierrors.ErrNotInScope, "attribute %s has a namespace but no prefix", q)
		}
		if err := e.scope.Check(q.Prefix, q.Namespace); err != nil {
			return fierrors.Wrap(fierrors.ErrNotInScope, err, "attribute "+q.String())
		}
	}
	if err := e.dup.Check(dupattr.Hash(q.Namespace, q.Local), q.Namespace, q.Local); err != nil {
		return fierrors.Wrap(fierrors.ErrDuplicateAttribute, err, "attribute "+q.String())
	}
	if i, ok := e.tables.AttributeNames.Lookup(q.Prefix, q.Namespace, q.Local); ok {
		e.buf = octets.AppendSecondBitInteger(e.buf, 0, i)
	} else {
		e.buf = append(e.buf, itemkind.OctetAttributeLiteral|nameFlags(q))
		name, err := e.appendLiteralName(q)
		if err != nil {
			return err
		}
		if _, ok := e.tables.AttributeNames.Add(name); !ok {
			return fierrors.New(fierrors.ErrTableFull, "attribute name table full")
		}
	}
	return e.appendAttributeValue(a)
}

func (e *Encoder) appendAttributeValue(a Attr) error {
	switch {
	case a.Encoded != nil:
		if a.Encoded.URI == "" && a.Encoded.Algorithm == algorithm.CDATA {
			return fierrors.Newf(fierrors.ErrUnsupportedAlgorithm, "attribute %s: cdata algorithm in attribute value", a.Name)
		}
		id, data, err := e.encodeValue(*a.Encoded)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fierrors.Newf(fierrors.ErrAlgorithmData, "attribute %s: empty encoded value", a.Name)
		}
		e.buf = append(e.buf, stringAlgorithm|byte(id>>4))
		e.buf = octets.AppendFifthBitLength(e.buf, byte(id&0x0F)<<4, len(data))
		e.buf = append(e.buf, data...)
		return nil
	case a.Alphabet != "" && a.Value != "":
		if i, ok := e.tables.AttributeValues.Lookup(a.Value); ok {
			e.buf = octets.AppendSecondBitInteger(e.buf, itemkind.OctetStringIndex, i)
			return nil
		}
		alpha, id, err := e.alphabet(a.Alphabet)
		if err != nil {
			return err
		}
		packed, err := alpha.Append(e.scratch[:0], []byte(a.Value))
		if err != nil {
			return fierrors.Wrap(fierrors.ErrAlphabetData, err, "attribute "+a.Name.String())
		}
		e.scratch = packed
		lead := byte(stringAlphabet) | byte(id>>4)
		if e.indexable(a.Value, e.opts.attributeValueMax) {
			if _, ok := e.tables.AttributeValues.Add(a.Value); ok {
				lead |= stringAddToTable
			}
		}
		e.buf = append(e.buf, lead)
		e.buf = octets.AppendFifthBitLength(e.buf, byte(id&0x0F)<<4, len(packed))
		e.buf = append(e.buf, packed...)
		return nil
	default:
		if !utf8.ValidString(a.Value) {
			return fierrors.Newf(fierrors.ErrInvalidUTF8, "attribute %s value", a.Name)
		}
		return e.appendString(e.tables.AttributeValues, a.Value, e.indexable(a.Value, e.opts.attributeValueMax))
	}
}

func (e *Encoder) indexable(s string, limit int) bool {
	return utf8.RuneCountInString(s) < limit
}

func nameFlags(q QName) byte {
	var flags byte
	if q.Prefix != "" {
		flags |= itemkind.FlagPrefix
	}
	if q.Namespace != "" {
		flags |= itemkind.FlagNamespace
	}
	return flags
}

// appendLiteralName writes the identifying strings of a literal qualified name.
func (e *Encoder) appendLiteralName(q QName) (vocab.Name, error) {
	if q.Prefix != "" && q.Namespace == "" {
		return vocab.Name{}, fierrors.Newf(fierrors.ErrNotInScope, "name %s has a prefix but no namespace", q)
	}
	prefixIndex, namespaceIndex := vocab.NoIndex, vocab.NoIndex
	var err error
	if q.Prefix != "" {
		if prefixIndex, err = e.appendIdentifying(e.tables.Prefixes, q.Prefix); err != nil {
			return vocab.Name{}, err
		}
	}
	if q.Namespace != "" {
		if namespaceIndex, err = e.appendIdentifying(e.tables.Namespaces, q.Namespace); err != nil {
			return vocab.Name{}, err
		}
	}
	localIndex, err := e.appendIdentifying(e.tables.LocalNames, q.Local)
	if err != nil {
		return vocab.Name{}, err
	}
	return vocab.NewName(q.Prefix, q.Namespace, q.Local, prefixIndex, namespaceIndex, localIndex), nil
}

// appendIdentifying writes s as an index when table holds it, otherwise as
// a literal that both sides add to table.
func (e *Encoder) appendIdentifying(table *vocab.StringTable, s string) (int, error) {
	if s == "" {
		return 0, fierrors.New(fierrors.ErrInvalidEvent, "empty identifying string")
	}
	if i, ok := table.Lookup(s); ok {
		e.buf = octets.AppendSecondBitInteger(e.buf, itemkind.OctetStringIndex, i)
		return i, nil
	}
	if !utf8.ValidString(s) {
		return 0, fierrors.Newf(fierrors.ErrInvalidUTF8, "identifying string %q", s)
	}
	i, ok := table.Add(s)
	if !ok {
		return 0, fierrors.New(fierrors.ErrTableFull, "identifying string table full")
	}
	e.buf = appendOctetString(e.buf, s)
	return i, nil
}

// appendString writes a non-identifying string, adding it to table when
// index is set and the table has room.
func (e *Encoder) appendString(table *vocab.StringTable, s string, index bool) error {
	if s == "" {
		e.buf = append(e.buf, itemkind.OctetEmptyString)
		return nil
	}
	if i, ok := table.Lookup(s); ok {
		e.buf = octets.AppendSecondBitInteger(e.buf, itemkind.OctetStringIndex, i)
		return nil
	}
	var flags byte
	if index {
		if _, ok := table.Add(s); ok {
			flags = stringAddToTable
		}
	}
	e.appendLiteralString(s, flags)
	return nil
}

// Characters writes character data of the current element.
func (e *Encoder) Characters(text []byte) error {
	return e.WriteCharacters(text, CharacterOptions{})
}

// CDATA writes character data marked as a CDATA section.
func (e *Encoder) CDATA(text []byte) error {
	return e.WriteCharacters(text, CharacterOptions{CDATA: true})
}

// AlphabetCharacters writes character data packed with a restricted alphabet.
func (e *Encoder) AlphabetCharacters(chars string, text []byte) error {
	return e.WriteCharacters(text, CharacterOptions{Alphabet: chars})
}

// WriteCharacters writes character data with explicit encoding options.
func (e *Encoder) WriteCharacters(text []byte, opts CharacterOptions) error {
	if err := e.ready(); err != nil {
		return err
	}
	if opts.CDATA && opts.Index {
		return e.fail(fierrors.New(fierrors.ErrCDATAIndexed, "CDATA section cannot be added to the vocabulary"))
	}
	if len(e.stack) == 0 {
		return e.fail(fierrors.New(fierrors.ErrDocumentStructure, "character data outside the root element"))
	}
	if len(text) == 0 {
		return nil
	}
	if !utf8.Valid(text) {
		return e.fail(fierrors.New(fierrors.ErrInvalidUTF8, "character data"))
	}
	e.flushTerminator()
	var err error
	switch {
	case opts.CDATA:
		e.appendAlgorithmChunk(algorithm.CDATA, text)
	case opts.Alphabet != "":
		err = e.appendAlphabetChunk(opts.Alphabet, text, opts.Index)
	default:
		if i, ok := e.tables.Chunks.Lookup(string(text)); ok {
			e.buf = octets.AppendFourthBitInteger(e.buf, itemkind.OctetCharactersIndex, i)
			break
		}
		if e.opts.numericDetection && numericAlphabet.Contains(text) {
			err = e.appendAlphabetChunk(alphabet.NumericCharacters, text, opts.Index)
			break
		}
		e.appendTextChunk(text, opts.Index)
	}
	if err != nil {
		return e.fail(err)
	}
	return e.flushIfFull()
}

func (e *Encoder) chunkIndex(text []byte, force bool) byte {
	if !force && utf8.RuneCount(text) >= e.opts.chunkMax {
		return 0
	}
	if _, ok := e.tables.Chunks.Add(string(text)); !ok {
		return 0
	}
	return itemkind.FlagAddToTable
}

func (e *Encoder) appendTextChunk(text []byte, index bool) {
	lead := byte(itemkind.OctetCharacters) | e.chunkIndex(text, index)
	data := text
	if e.utf16 != nil {
		if encoded, err := e.utf16.Bytes(text); err == nil {
			lead |= chunkUTF16
			data = encoded
		}
	}
	e.buf = octets.AppendSeventhBitLength(e.buf, lead, len(data))
	e.buf = append(e.buf, data...)
}

func (e *Encoder) appendAlphabetChunk(chars string, text []byte, index bool) error {
	if i, ok := e.tables.Chunks.Lookup(string(text)); ok {
		e.buf = octets.AppendFourthBitInteger(e.buf, itemkind.OctetCharactersIndex, i)
		return nil
	}
	alpha, id, err := e.alphabet(chars)
	if err != nil {
		return err
	}
	packed, err := alpha.Append(e.scratch[:0], text)
	if err != nil {
		return fierrors.Wrap(fierrors.ErrAlphabetData, err, "character data")
	}
	e.scratch = packed
	lead := byte(itemkind.OctetCharacters|chunkAlphabet) | byte(id>>6) | e.chunkIndex(text, index)
	e.buf = append(e.buf, lead)
	e.buf = octets.AppendSeventhBitLength(e.buf, byte(id&0x3F)<<2, len(packed))
	e.buf = append(e.buf, packed...)
	return nil
}

func (e *Encoder) appendAlgorithmChunk(id int, data []byte) {
	e.buf = append(e.buf, byte(itemkind.OctetCharacters|chunkAlgorithm)|byte(id>>6))
	e.buf = octets.AppendSeventhBitLength(e.buf, byte(id&0x3F)<<2, len(data))
	e.buf = append(e.buf, data...)
}

// encodeValue converts typed data into octets and resolves its algorithm
// identifier. The octets alias the encoder scratch buffer.
func (e *Encoder) encodeValue(v Value) (int, []byte, error) {
	uri := v.URI
	if uri == "" {
		switch algorithm.Classify(v.Algorithm) {
		case algorithm.ClassBuiltin:
			data, err := algorithm.Append(e.scratch[:0], v.Algorithm, v.Data)
			if err != nil {
				return 0, nil, fierrors.Wrap(fierrors.ErrAlgorithmData, err, algorithm.Name(v.Algorithm))
			}
			e.scratch = data
			return v.Algorithm, data, nil
		case algorithm.ClassApplication:
			var ok bool
			if uri, ok = e.tables.Algorithms.Get(v.Algorithm - algorithm.ApplicationStart); !ok {
				return 0, nil, fierrors.Newf(fierrors.ErrUnsupportedAlgorithm, "algorithm %d is not in the vocabulary", v.Algorithm)
			}
		default:
			return 0, nil, fierrors.Newf(fierrors.ErrReservedAlgorithm, "algorithm %d is reserved", v.Algorithm)
		}
	}
	index, ok := e.tables.Algorithms.Lookup(uri)
	if !ok || index > maxApplicationAlgorithms-1 {
		return 0, nil, fierrors.Newf(fierrors.ErrUnsupportedAlgorithm, "algorithm %q is not in the vocabulary", uri)
	}
	var data []byte
	if alg, registered := e.opts.algorithms[uri]; registered {
		var err error
		if data, err = alg.Append(e.scratch[:0], v.Data); err != nil {
			return 0, nil, fierrors.Wrap(fierrors.ErrAlgorithmData, err, uri)
		}
	} else if raw, isRaw := v.Data.([]byte); isRaw {
		data = append(e.scratch[:0], raw...)
	} else {
		return 0, nil, fierrors.Newf(fierrors.ErrUnsupportedAlgorithm, "no algorithm registered for %q", uri)
	}
	e.scratch = data
	return algorithm.ApplicationStart + index, data, nil
}

// AlgorithmData writes typed character data of any algorithm.
func (e *Encoder) AlgorithmData(v Value) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(e.stack) == 0 {
		return e.fail(fierrors.New(fierrors.ErrDocumentStructure, "character data outside the root element"))
	}
	id, data, err := e.encodeValue(v)
	if err != nil {
		return e.fail(err)
	}
	if len(data) == 0 {
		return nil
	}
	e.flushTerminator()
	e.appendAlgorithmChunk(id, data)
	return e.flushIfFull()
}

// Octets writes hexadecimal or base64 data.
func (e *Encoder) Octets(id int, data []byte) error {
	if id != algorithm.Hexadecimal && id != algorithm.Base64 {
		return e.fail(fierrors.Newf(fierrors.ErrInvalidEvent, "algorithm %d does not carry octets", id))
	}
	return e.AlgorithmData(Value{Algorithm: id, Data: data})
}

// Shorts writes 16-bit integers.
func (e *Encoder) Shorts(values []int16) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Short, Data: values})
}

// Ints writes 32-bit integers.
func (e *Encoder) Ints(values []int32) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Int, Data: values})
}

// Longs writes 64-bit integers.
func (e *Encoder) Longs(values []int64) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Long, Data: values})
}

// Booleans writes booleans.
func (e *Encoder) Booleans(values []bool) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Boolean, Data: values})
}

// Floats writes single precision floats.
func (e *Encoder) Floats(values []float32) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Float, Data: values})
}

// Doubles writes double precision floats.
func (e *Encoder) Doubles(values []float64) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.Double, Data: values})
}

// UUIDs writes UUIDs.
func (e *Encoder) UUIDs(values []uuid.UUID) error {
	return e.AlgorithmData(Value{Algorithm: algorithm.UUID, Data: values})
}

// Comment writes a comment.
func (e *Encoder) Comment(text []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !utf8.Valid(text) {
		return e.fail(fierrors.New(fierrors.ErrInvalidUTF8, "comment"))
	}
	e.flushTerminator()
	e.buf = append(e.buf, itemkind.OctetComment)
	s := string(text)
	if err := e.appendString(e.tables.OtherStrings, s, e.indexable(s, e.opts.chunkMax)); err != nil {
		return e.fail(err)
	}
	return e.flushIfFull()
}

// ProcessingInstruction writes a processing instruction.
func (e *Encoder) ProcessingInstruction(target, data string) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.flushTerminator()
	if err := e.appendProcessingInstruction(target, data); err != nil {
		return e.fail(err)
	}
	return e.flushIfFull()
}

func (e *Encoder) appendProcessingInstruction(target, data string) error {
	if !utf8.ValidString(data) {
		return fierrors.New(fierrors.ErrInvalidUTF8, "processing instruction data")
	}
	e.buf = append(e.buf, itemkind.OctetProcessingInstruction)
	if _, err := e.appendIdentifying(e.tables.OtherNCNames, target); err != nil {
		return err
	}
	return e.appendString(e.tables.OtherStrings, data, e.indexable(data, e.opts.chunkMax))
}

// DocumentType writes a document type declaration. It must precede the root
// element and appear at most once.
func (e *Encoder) DocumentType(dt DocumentType) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.doc.OnDocumentType(); err != nil {
		return e.fail(fierrors.Wrap(fierrors.ErrDuplicateDocumentType, err, "document type"))
	}
	e.flushTerminator()
	lead := byte(itemkind.OctetDocumentType)
	if dt.SystemID != "" {
		lead |= itemkind.FlagSystemID
	}
	if dt.PublicID != "" {
		lead |= itemkind.FlagPublicID
	}
	e.buf = append(e.buf, lead)
	if err := e.appendIdentifiers(dt.SystemID, dt.PublicID); err != nil {
		return e.fail(err)
	}
	for _, pi := range dt.Instructions {
		if err := e.appendProcessingInstruction(pi.Target, pi.Data); err != nil {
			return e.fail(err)
		}
	}
	e.buf = append(e.buf, itemkind.OctetTerminator)
	return e.flushIfFull()
}

// UnexpandedEntity writes a reference to an entity that was not expanded.
func (e *Encoder) UnexpandedEntity(name, systemID, publicID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(e.stack) == 0 {
		return e.fail(fierrors.New(fierrors.ErrDocumentStructure, "entity reference outside the root element"))
	}
	e.flushTerminator()
	lead := byte(itemkind.OctetEntityReference)
	if systemID != "" {
		lead |= itemkind.FlagSystemID
	}
	if publicID != "" {
		lead |= itemkind.FlagPublicID
	}
	e.buf = append(e.buf, lead)
	if _, err := e.appendIdentifying(e.tables.OtherNCNames, name); err != nil {
		return e.fail(err)
	}
	if err := e.appendIdentifiers(systemID, publicID); err != nil {
		return e.fail(err)
	}
	return e.flushIfFull()
}
