package fastinfoset

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/algorithm"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// stringValue is a decoded non-identifying string.
type stringValue struct {
	value    *Value
	text     string
	alphabet string
	// opaque marks a value without character rendering.
	opaque bool
}

func (d *Decoder) decodeElementTree(lead byte, kind itemkind.Kind) error {
	if err := d.startElement(lead, kind); err != nil {
		return err
	}
	for len(d.stack) > 0 {
		b, err := d.readByte("element content")
		if err != nil {
			return err
		}
		switch kind := itemkind.Content(b); kind {
		case itemkind.Element, itemkind.ElementLiteral, itemkind.ElementNamespaces:
			err = d.startElement(b, kind)
		case itemkind.CharactersUTF8, itemkind.CharactersUTF16, itemkind.CharactersAlphabet,
			itemkind.CharactersAlgorithm, itemkind.CharactersIndex:
			err = d.decodeCharacters(b, kind)
		case itemkind.Comment:
			err = d.decodeComment()
		case itemkind.ProcessingInstruction:
			err = d.decodeProcessingInstruction()
		case itemkind.EntityReference:
			err = d.decodeEntityReference(b)
		case itemkind.Terminator:
			err = d.endElement()
		case itemkind.DoubleTerminator:
			if err = d.endElement(); err != nil {
				return err
			}
			if len(d.stack) == 0 {
				d.documentEnd = true
			} else {
				err = d.endElement()
			}
		default:
			err = d.illegal(b, "element content")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) startElement(lead byte, kind itemkind.Kind) error {
	if len(d.stack) >= d.opts.limits.maxDepth {
		return d.errorf(fierrors.ErrMaxDepth, "element depth exceeds %d", d.opts.limits.maxDepth)
	}
	d.scope.Open()
	attrs := d.attrs[:0]
	hasAttrs := lead&itemkind.FlagAttributes != 0
	if kind == itemkind.ElementNamespaces {
		var err error
		if attrs, err = d.decodeNamespaceDeclarations(attrs); err != nil {
			return err
		}
		if lead, err = d.readByte("element name"); err != nil {
			return err
		}
		kind = itemkind.Content(lead)
		if (kind != itemkind.Element && kind != itemkind.ElementLiteral) || lead&itemkind.FlagAttributes != 0 {
			return d.illegal(lead, "element name after namespace declarations")
		}
	}
	name, err := d.decodeElementName(lead, kind)
	if err != nil {
		return err
	}
	if err := d.scope.Check(name.Prefix, name.Namespace); err != nil {
		return d.wrap(fierrors.ErrNotInScope, err, "element "+name.String())
	}
	closed := false
	if hasAttrs {
		if attrs, closed, err = d.decodeAttributes(attrs); err != nil {
			return err
		}
	}
	d.attrs = attrs
	d.stack = append(d.stack, name)
	if err := d.h.StartElement(name, attrs); err != nil {
		return d.handlerError(err, "start element")
	}
	if closed {
		return d.endElement()
	}
	return nil
}

func (d *Decoder) decodeNamespaceDeclarations(attrs []Attr) ([]Attr, error) {
	for {
		b, err := d.readByte("namespace declaration")
		if err != nil {
			return nil, err
		}
		if b == itemkind.OctetTerminator {
			return attrs, nil
		}
		if b&0xFC != itemkind.OctetNamespaceAttribute {
			return nil, d.illegal(b, "namespace declarations")
		}
		var prefix, namespace string
		if b&itemkind.FlagPrefix != 0 {
			if prefix, err = d.decodeIdentifying(d.tables.Prefixes, "namespace prefix"); err != nil {
				return nil, err
			}
		}
		if b&itemkind.FlagNamespace != 0 {
			if namespace, err = d.decodeIdentifying(d.tables.Namespaces, "namespace name"); err != nil {
				return nil, err
			}
		}
		if err := d.scope.Declare(prefix, namespace); err != nil {
			return nil, d.wrap(declarationCode(err), err, "namespace declaration "+prefix)
		}
		if d.opts.namespaceAttributes {
			name := QName{Namespace: XMLNSNamespace, Local: "xmlns"}
			if prefix != "" {
				name = QName{Prefix: "xmlns", Namespace: XMLNSNamespace, Local: prefix}
			}
			attrs = append(attrs, Attr{Name: name, Value: namespace})
		}
		if err := d.h.StartPrefixMapping(prefix, namespace); err != nil {
			return nil, d.handlerError(err, "start prefix mapping")
		}
	}
}

func (d *Decoder) endElement() error {
	name := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	for _, b := range d.scope.Close() {
		if err := d.h.EndPrefixMapping(b.Prefix); err != nil {
			return d.handlerError(err, "end prefix mapping")
		}
	}
	if err := d.h.EndElement(name); err != nil {
		return d.handlerError(err, "end element")
	}
	if len(d.stack) == 0 {
		d.doc.OnEndElement(true)
	}
	return nil
}

func (d *Decoder) decodeElementName(lead byte, kind itemkind.Kind) (QName, error) {
	var n *vocab.Name
	switch kind {
	case itemkind.Element:
		i, err := d.in.ThirdBitInteger(lead)
		if err != nil {
			return QName{}, d.readError(err, "element name index")
		}
		var ok bool
		if n, ok = d.tables.ElementNames.Get(i); !ok {
			return QName{}, d.errorf(fierrors.ErrIndexOutOfRange, "element name index %d", i)
		}
	default:
		var err error
		if n, err = d.decodeLiteralName(lead, d.tables.ElementNames); err != nil {
			return QName{}, err
		}
	}
	return QName{Prefix: n.Prefix, Namespace: n.Namespace, Local: n.Local}, nil
}

// decodeLiteralName reads the components flagged in lead and adds the name
// to table.
func (d *Decoder) decodeLiteralName(lead byte, table *vocab.NameTable) (*vocab.Name, error) {
	var prefix, namespace string
	prefixIndex, namespaceIndex := vocab.NoIndex, vocab.NoIndex
	var err error
	if lead&itemkind.FlagPrefix != 0 {
		if prefix, prefixIndex, err = d.decodeIdentifyingIndex(d.tables.Prefixes, "prefix"); err != nil {
			return nil, err
		}
	}
	if lead&itemkind.FlagNamespace != 0 {
		if namespace, namespaceIndex, err = d.decodeIdentifyingIndex(d.tables.Namespaces, "namespace name"); err != nil {
			return nil, err
		}
	}
	if prefix != "" && namespace == "" {
		return nil, d.errorf(fierrors.ErrNotInScope, "name with prefix %q has no namespace", prefix)
	}
	local, localIndex, err := d.decodeIdentifyingIndex(d.tables.LocalNames, "local name")
	if err != nil {
		return nil, err
	}
	n, ok := table.Add(vocab.NewName(prefix, namespace, local, prefixIndex, namespaceIndex, localIndex))
	if !ok {
		return nil, d.errorf(fierrors.ErrTableFull, "name table full")
	}
	return n, nil
}

func (d *Decoder) decodeAttributes(attrs []Attr) ([]Attr, bool, error) {
	d.dup.Begin()
	for {
		b, err := d.readByte("attribute")
		if err != nil {
			return nil, false, err
		}
		var n *vocab.Name
		switch itemkind.Attribute(b) {
		case itemkind.AttributeIndex:
			i, err := d.in.SecondBitInteger(b)
			if err != nil {
				return nil, false, d.readError(err, "attribute name index")
			}
			var ok bool
			if n, ok = d.tables.AttributeNames.Get(i); !ok {
				return nil, false, d.errorf(fierrors.ErrIndexOutOfRange, "attribute name index %d", i)
			}
		case itemkind.AttributeLiteral:
			if n, err = d.decodeLiteralName(b, d.tables.AttributeNames); err != nil {
				return nil, false, err
			}
		case itemkind.Terminator:
			return attrs, false, nil
		case itemkind.DoubleTerminator:
			return attrs, true, nil
		default:
			return nil, false, d.illegal(b, "attributes")
		}
		if n.Prefix != "" || n.Namespace != "" {
			if n.Prefix == "" {
				return nil, false, d.errorf(fierrors.ErrNotInScope, "attribute %s has a namespace but no prefix", n.Local)
			}
			if err := d.scope.Check(n.Prefix, n.Namespace); err != nil {
				return nil, false, d.wrap(fierrors.ErrNotInScope, err, "attribute "+n.Qualified)
			}
		}
		if err := d.dup.Check(n.Hash, n.Namespace, n.Local); err != nil {
			return nil, false, d.wrap(fierrors.ErrDuplicateAttribute, err, "attribute "+n.Qualified)
		}
		v, err := d.decodeString(d.tables.AttributeValues, "attribute value")
		if err != nil {
			return nil, false, err
		}
		if err := d.checkAttributeValue(n.Qualified, v); err != nil {
			return nil, false, err
		}
		attrs = append(attrs, Attr{
			Name:     QName{Prefix: n.Prefix, Namespace: n.Namespace, Local: n.Local},
			Value:    v.text,
			Encoded:  v.value,
			Alphabet: v.alphabet,
		})
	}
}

// checkAttributeValue rejects encoded attribute values the handler cannot
// receive. CDATA is character content only.
func (d *Decoder) checkAttributeValue(name string, v stringValue) error {
	switch {
	case v.value == nil:
		return nil
	case v.value.URI == "" && v.value.Algorithm == algorithm.CDATA:
		return d.errorf(fierrors.ErrUnsupportedAlgorithm, "attribute %s: cdata algorithm in attribute value", name)
	case v.opaque && d.h.algorithm == nil:
		return d.errorf(fierrors.ErrUnsupportedAlgorithm, "attribute %s: no algorithm registered for %q", name, v.value.URI)
	}
	return nil
}

func (d *Decoder) decodeIdentifying(table *vocab.StringTable, what string) (string, error) {
	s, _, err := d.decodeIdentifyingIndex(table, what)
	return s, err
}

// decodeIdentifyingIndex reads an identifying string. Literals are added to
// table.
func (d *Decoder) decodeIdentifyingIndex(table *vocab.StringTable, what string) (string, int, error) {
	b, err := d.readByte(what)
	if err != nil {
		return "", 0, err
	}
	switch itemkind.Identifying(b) {
	case itemkind.StringLiteral:
		n, err := d.in.SecondBitLength(b)
		if err != nil {
			return "", 0, d.readError(err, what)
		}
		data, err := d.next(n, what)
		if err != nil {
			return "", 0, err
		}
		if !utf8.Valid(data) {
			return "", 0, d.errorf(fierrors.ErrInvalidUTF8, "%s", what)
		}
		s := string(data)
		i, ok := table.Add(s)
		if !ok {
			return "", 0, d.errorf(fierrors.ErrTableFull, "%s table full", what)
		}
		return s, i, nil
	case itemkind.StringIndex:
		i, err := d.in.SecondBitInteger(b)
		if err != nil {
			return "", 0, d.readError(err, what)
		}
		s, ok := table.Get(i)
		if !ok {
			return "", 0, d.errorf(fierrors.ErrIndexOutOfRange, "%s index %d", what, i)
		}
		return s, i, nil
	default:
		return "", 0, d.illegal(b, what)
	}
}

// decodeString reads a non-identifying string, adding it to table when the
// add-to-table bit is set.
func (d *Decoder) decodeString(table *vocab.StringTable, what string) (stringValue, error) {
	b, err := d.readByte(what)
	if err != nil {
		return stringValue{}, err
	}
	kind := itemkind.NonIdentifying(b)
	add := b&stringAddToTable != 0
	var out stringValue
	switch kind {
	case itemkind.StringEmpty:
		return out, nil
	case itemkind.StringIndex:
		i, err := d.in.SecondBitInteger(b)
		if err != nil {
			return out, d.readError(err, what)
		}
		s, ok := table.Get(i)
		if !ok {
			return out, d.errorf(fierrors.ErrIndexOutOfRange, "%s index %d", what, i)
		}
		out.text = s
		return out, nil
	case itemkind.StringUTF8, itemkind.StringUTF16:
		n, err := d.in.FifthBitLength(b)
		if err != nil {
			return out, d.readError(err, what)
		}
		data, err := d.next(n, what)
		if err != nil {
			return out, err
		}
		text, err := d.decodeText(data, kind == itemkind.StringUTF16, what)
		if err != nil {
			return out, err
		}
		out.text = string(text)
	case itemkind.StringAlphabet, itemkind.StringAlgorithm:
		b2, err := d.readByte(what)
		if err != nil {
			return out, err
		}
		id := int(b&0x0F)<<4 | int(b2>>4)
		n, err := d.in.FifthBitLength(b2)
		if err != nil {
			return out, d.readError(err, what)
		}
		data, err := d.next(n, what)
		if err != nil {
			return out, err
		}
		if kind == itemkind.StringAlphabet {
			a, err := d.alphabet(id)
			if err != nil {
				return out, err
			}
			if d.text, err = a.AppendText(d.text[:0], data); err != nil {
				return out, d.wrap(fierrors.ErrAlphabetData, err, what)
			}
			out.text, out.alphabet = string(d.text), a.String()
			break
		}
		v, text, rendered, err := d.decodeValue(id, data)
		if err != nil {
			return out, err
		}
		out.value, out.text, out.opaque = &v, string(text), !rendered
		if add && !rendered {
			return out, d.errorf(fierrors.ErrUnsupportedAlgorithm, "%s: cannot index value of algorithm %d", what, id)
		}
	default:
		return out, d.illegal(b, what)
	}
	if add {
		if err := d.addString(table, out.text); err != nil {
			return out, err
		}
	}
	return out, nil
}

// valueText returns the characters of v.
func (d *Decoder) valueText(v stringValue) (string, error) {
	if v.opaque {
		return "", d.errorf(fierrors.ErrUnsupportedAlgorithm, "algorithm %q has no character rendering", v.value.URI)
	}
	return v.text, nil
}

// decodeText validates UTF-8 data or transcodes UTF-16 data. The result may
// alias data.
func (d *Decoder) decodeText(data []byte, isUTF16 bool, what string) ([]byte, error) {
	if !isUTF16 {
		if !utf8.Valid(data) {
			return nil, d.errorf(fierrors.ErrInvalidUTF8, "%s", what)
		}
		return data, nil
	}
	if !validUTF16(data) {
		return nil, d.errorf(fierrors.ErrInvalidUTF16, "%s", what)
	}
	text, err := d.utf16.Bytes(data)
	if err != nil {
		return nil, d.wrap(fierrors.ErrInvalidUTF16, err, what)
	}
	return text, nil
}

// validUTF16 reports whether data is big-endian UTF-16 with paired surrogates.
func validUTF16(data []byte) bool {
	if len(data)%2 != 0 {
		return false
	}
	for i := 0; i < len(data); i += 2 {
		r := rune(binary.BigEndian.Uint16(data[i:]))
		switch {
		case r >= 0xDC00 && r <= 0xDFFF:
			return false
		case utf16.IsSurrogate(r):
			if i+4 > len(data) {
				return false
			}
			low := rune(binary.BigEndian.Uint16(data[i+2:]))
			if utf16.DecodeRune(r, low) == utf8.RuneError {
				return false
			}
			i += 2
		}
	}
	return true
}

// decodeValue converts algorithm octets into a value and, when possible,
// its character rendering.
func (d *Decoder) decodeValue(id int, data []byte) (Value, []byte, bool, error) {
	switch algorithm.Classify(id) {
	case algorithm.ClassBuiltin:
		v, err := algorithm.Decode(id, data)
		if err != nil {
			return Value{}, nil, false, d.wrap(fierrors.ErrAlgorithmData, err, algorithm.Name(id))
		}
		if d.text, err = algorithm.AppendText(d.text[:0], id, v); err != nil {
			return Value{}, nil, false, d.wrap(fierrors.ErrAlgorithmData, err, algorithm.Name(id))
		}
		return Value{Algorithm: id, Data: v}, d.text, true, nil
	case algorithm.ClassApplication:
		uri, ok := d.tables.Algorithms.Get(id - algorithm.ApplicationStart)
		if !ok {
			return Value{}, nil, false, d.errorf(fierrors.ErrUnsupportedAlgorithm, "algorithm %d is not in the vocabulary", id)
		}
		alg, ok := d.opts.algorithms[uri]
		if !ok {
			return Value{Algorithm: id, URI: uri, Data: bytes.Clone(data)}, nil, false, nil
		}
		v, err := alg.Decode(data)
		if err != nil {
			return Value{}, nil, false, d.wrap(fierrors.ErrAlgorithmData, err, uri)
		}
		out := Value{Algorithm: id, URI: uri, Data: v}
		ta, ok := alg.(TextAlgorithm)
		if !ok {
			return out, nil, false, nil
		}
		if d.text, err = ta.AppendText(d.text[:0], v); err != nil {
			return Value{}, nil, false, d.wrap(fierrors.ErrAlgorithmData, err, uri)
		}
		return out, d.text, true, nil
	default:
		return Value{}, nil, false, d.errorf(fierrors.ErrReservedAlgorithm, "algorithm %d is reserved", id)
	}
}

func (d *Decoder) decodeCharacters(lead byte, kind itemkind.Kind) error {
	add := lead&itemkind.FlagAddToTable != 0
	switch kind {
	case itemkind.CharactersIndex:
		i, err := d.in.FourthBitInteger(lead)
		if err != nil {
			return d.readError(err, "character chunk index")
		}
		s, ok := d.tables.Chunks.Get(i)
		if !ok {
			return d.errorf(fierrors.ErrIndexOutOfRange, "character chunk index %d", i)
		}
		d.text = append(d.text[:0], s...)
		return d.characters(d.text)
	case itemkind.CharactersUTF8, itemkind.CharactersUTF16:
		n, err := d.in.SeventhBitLength(lead)
		if err != nil {
			return d.readError(err, "character chunk")
		}
		data, err := d.next(n, "character chunk")
		if err != nil {
			return err
		}
		text, err := d.decodeText(data, kind == itemkind.CharactersUTF16, "character chunk")
		if err != nil {
			return err
		}
		if add {
			if err := d.addString(d.tables.Chunks, string(text)); err != nil {
				return err
			}
		}
		return d.characters(text)
	}

	b2, err := d.readByte("character chunk")
	if err != nil {
		return err
	}
	id := int(lead&0x03)<<6 | int(b2>>2)
	n, err := d.in.SeventhBitLength(b2)
	if err != nil {
		return d.readError(err, "character chunk")
	}
	data, err := d.next(n, "character chunk")
	if err != nil {
		return err
	}
	if kind == itemkind.CharactersAlphabet {
		a, err := d.alphabet(id)
		if err != nil {
			return err
		}
		if d.text, err = a.AppendText(d.text[:0], data); err != nil {
			return d.wrap(fierrors.ErrAlphabetData, err, "character chunk")
		}
		if add {
			if err := d.addString(d.tables.Chunks, string(d.text)); err != nil {
				return err
			}
		}
		if d.h.alphabet != nil {
			if err := d.h.alphabet.AlphabetCharacters(a.String(), d.text); err != nil {
				return d.handlerError(err, "alphabet characters")
			}
			return nil
		}
		return d.characters(d.text)
	}

	v, text, rendered, err := d.decodeValue(id, data)
	if err != nil {
		return err
	}
	if add {
		if !rendered {
			return d.errorf(fierrors.ErrUnsupportedAlgorithm, "cannot index value of algorithm %d", id)
		}
		if err := d.addString(d.tables.Chunks, string(text)); err != nil {
			return err
		}
	}
	return d.deliverValue(v, text, rendered)
}

func (d *Decoder) characters(text []byte) error {
	if err := d.h.Characters(text); err != nil {
		return d.handlerError(err, "characters")
	}
	return nil
}

// deliverValue reports typed character content through the most specific
// handler interface available.
func (d *Decoder) deliverValue(v Value, text []byte, rendered bool) error {
	var err error
	switch {
	case v.URI == "" && v.Algorithm == algorithm.CDATA:
		if d.h.cdata == nil {
			return d.characters(text)
		}
		err = d.h.cdata.CDATA(text)
	case v.URI == "" && d.h.primitive != nil:
		err = d.deliverPrimitive(v)
	case v.URI == "":
		return d.characters(text)
	case d.h.algorithm != nil:
		err = d.h.algorithm.AlgorithmData(v)
	case rendered:
		return d.characters(text)
	default:
		return d.errorf(fierrors.ErrUnsupportedAlgorithm, "no algorithm registered for %q", v.URI)
	}
	if err != nil {
		return d.handlerError(err, "typed characters")
	}
	return nil
}

func (d *Decoder) deliverPrimitive(v Value) error {
	p := d.h.primitive
	switch data := v.Data.(type) {
	case []byte:
		return p.Octets(v.Algorithm, data)
	case []int16:
		return p.Shorts(data)
	case []int32:
		return p.Ints(data)
	case []int64:
		return p.Longs(data)
	case []bool:
		return p.Booleans(data)
	case []float32:
		return p.Floats(data)
	case []float64:
		return p.Doubles(data)
	case []uuid.UUID:
		return p.UUIDs(data)
	default:
		return fierrors.Newf(fierrors.ErrAlgorithmData, "unexpected %T for %s", v.Data, algorithm.Name(v.Algorithm))
	}
}

func (d *Decoder) decodeComment() error {
	v, err := d.decodeString(d.tables.OtherStrings, "comment")
	if err != nil {
		return err
	}
	text, err := d.valueText(v)
	if err != nil {
		return err
	}
	d.text = append(d.text[:0], text...)
	if err := d.h.Comment(d.text); err != nil {
		return d.handlerError(err, "comment")
	}
	return nil
}

func (d *Decoder) readProcessingInstruction() (string, string, error) {
	target, err := d.decodeIdentifying(d.tables.OtherNCNames, "processing instruction target")
	if err != nil {
		return "", "", err
	}
	v, err := d.decodeString(d.tables.OtherStrings, "processing instruction data")
	if err != nil {
		return "", "", err
	}
	data, err := d.valueText(v)
	if err != nil {
		return "", "", err
	}
	return target, data, nil
}

func (d *Decoder) decodeProcessingInstruction() error {
	target, data, err := d.readProcessingInstruction()
	if err != nil {
		return err
	}
	if err := d.h.ProcessingInstruction(target, data); err != nil {
		return d.handlerError(err, "processing instruction")
	}
	return nil
}

func (d *Decoder) decodeEntityReference(lead byte) error {
	name, err := d.decodeIdentifying(d.tables.OtherNCNames, "entity name")
	if err != nil {
		return err
	}
	systemID, publicID, err := d.decodeIdentifiers(lead)
	if err != nil {
		return err
	}
	if d.h.decl == nil {
		return nil
	}
	if err := d.h.decl.UnexpandedEntity(name, systemID, publicID); err != nil {
		return d.handlerError(err, "unexpanded entity")
	}
	return nil
}
