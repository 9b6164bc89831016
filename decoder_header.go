package fastinfoset

import (
	"bytes"
	"unicode/utf8"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// maxXMLDeclaration bounds the XML declaration that may precede the header.
const maxXMLDeclaration = 64

func (d *Decoder) decodeHeader() error {
	peek, err := d.in.Peek(1)
	if err != nil {
		return d.readError(err, "header")
	}
	if len(peek) == 1 && peek[0] == '<' {
		if err := d.skipXMLDeclaration(); err != nil {
			return err
		}
	}
	got, err := d.next(len(header), "header")
	if err != nil {
		return err
	}
	if !bytes.Equal(got, header[:]) {
		return d.errorf(fierrors.ErrBadHeader, "header % X is not a Fast Infoset header", got)
	}
	return nil
}

// skipXMLDeclaration consumes an XML declaration that names the finf encoding.
func (d *Decoder) skipXMLDeclaration() error {
	peek, err := d.in.Peek(maxXMLDeclaration)
	if err != nil {
		return d.readError(err, "XML declaration")
	}
	end := bytes.Index(peek, []byte("?>"))
	if end < 0 || !bytes.HasPrefix(peek, []byte("<?xml ")) {
		return d.errorf(fierrors.ErrBadHeader, "malformed XML declaration")
	}
	decl := peek[:end+2]
	if !bytes.Contains(decl, []byte("encoding='finf'")) && !bytes.Contains(decl, []byte(`encoding="finf"`)) {
		return d.errorf(fierrors.ErrBadHeader, "XML declaration %q does not name the finf encoding", decl)
	}
	if err := d.in.Skip(len(decl)); err != nil {
		return d.readError(err, "XML declaration")
	}
	return nil
}

func (d *Decoder) decodeProperties() (DocumentProperties, error) {
	var props DocumentProperties
	flags, err := d.readByte("document properties")
	if err != nil {
		return props, err
	}
	if flags&0x80 != 0 {
		return props, d.errorf(fierrors.ErrBadHeader, "document properties 0x%02X use the padding bit", flags)
	}
	if flags&propertyAdditionalData != 0 {
		if props.AdditionalData, err = d.decodeAdditionalData(); err != nil {
			return props, err
		}
	}
	if flags&propertyInitialVocabulary != 0 {
		if props.ExternalVocabulary, err = d.decodeInitialVocabulary(); err != nil {
			return props, err
		}
	}
	if flags&propertyNotations != 0 {
		if props.Notations, err = d.decodeNotations(); err != nil {
			return props, err
		}
	}
	if flags&propertyUnparsedEntities != 0 {
		if props.UnparsedEntities, err = d.decodeUnparsedEntities(); err != nil {
			return props, err
		}
	}
	if flags&propertyEncodingScheme != 0 {
		if props.CharacterEncodingScheme, err = d.decodeOctetString("character encoding scheme"); err != nil {
			return props, err
		}
	}
	if flags&propertyStandalone != 0 {
		b, err := d.readByte("standalone")
		if err != nil {
			return props, err
		}
		switch b {
		case 0:
			props.Standalone = StandaloneNo
		case 1:
			props.Standalone = StandaloneYes
		default:
			return props, d.illegal(b, "standalone")
		}
	}
	if flags&propertyVersion != 0 {
		v, err := d.decodeString(d.tables.OtherStrings, "version")
		if err != nil {
			return props, err
		}
		if props.Version, err = d.valueText(v); err != nil {
			return props, err
		}
	}
	return props, nil
}

func (d *Decoder) decodeAdditionalData() ([]AdditionalData, error) {
	n, err := d.in.SequenceLength()
	if err != nil {
		return nil, d.readError(err, "additional data")
	}
	out := make([]AdditionalData, 0, min(n, 64))
	for range n {
		id, err := d.decodeOctetString("additional data identifier")
		if err != nil {
			return nil, err
		}
		data, err := d.decodeOctets("additional data")
		if err != nil {
			return nil, err
		}
		out = append(out, AdditionalData{ID: id, Data: bytes.Clone(data)})
	}
	return out, nil
}

// decodeOctets reads a non-empty octet string whose length starts on the
// second bit. The result is only valid until the next read.
func (d *Decoder) decodeOctets(what string) ([]byte, error) {
	b, err := d.readByte(what)
	if err != nil {
		return nil, err
	}
	if b&0x80 != 0 {
		return nil, d.illegal(b, what)
	}
	n, err := d.in.SecondBitLength(b)
	if err != nil {
		return nil, d.readError(err, what)
	}
	return d.next(n, what)
}

func (d *Decoder) decodeOctetString(what string) (string, error) {
	data, err := d.decodeOctets(what)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", d.errorf(fierrors.ErrInvalidUTF8, "%s", what)
	}
	return string(data), nil
}

// decodeInitialVocabulary loads the external vocabulary and the inline
// entries into the document tables, and returns the external URI.
func (d *Decoder) decodeInitialVocabulary() (string, error) {
	first, err := d.readByte("initial vocabulary")
	if err != nil {
		return "", err
	}
	second, err := d.readByte("initial vocabulary")
	if err != nil {
		return "", err
	}
	if first&0xE0 != 0 {
		return "", d.illegal(first, "initial vocabulary")
	}
	var uri string
	if first&vocabExternal != 0 {
		if uri, err = d.decodeOctetString("external vocabulary"); err != nil {
			return "", err
		}
		ext, ok := d.opts.vocabularies[uri]
		if !ok {
			return "", d.errorf(fierrors.ErrUnknownVocabulary, "external vocabulary %q is not registered", uri)
		}
		d.tables.SetBase(ext.tables)
	}
	t := d.tables
	octetTables := []struct {
		flag  bool
		table *vocab.StringTable
		name  string
	}{
		{first&vocabAlphabets != 0, t.Alphabets, "restricted alphabets"},
		{first&vocabAlgorithms != 0, t.Algorithms, "encoding algorithms"},
		{first&vocabPrefixes != 0, t.Prefixes, "prefixes"},
		{first&vocabNamespaces != 0, t.Namespaces, "namespace names"},
		{second&vocabLocalNames != 0, t.LocalNames, "local names"},
		{second&vocabOtherNCNames != 0, t.OtherNCNames, "other NCNames"},
		{second&vocabOtherURIs != 0, t.OtherURIs, "other URIs"},
	}
	for _, ot := range octetTables {
		if !ot.flag {
			continue
		}
		err := d.decodeSequence(ot.name, func() error {
			s, err := d.decodeOctetString(ot.name)
			if err != nil {
				return err
			}
			return d.addString(ot.table, s)
		})
		if err != nil {
			return "", err
		}
	}
	stringTables := []struct {
		flag  bool
		table *vocab.StringTable
		name  string
	}{
		{second&vocabAttributeValues != 0, t.AttributeValues, "attribute values"},
		{second&vocabChunks != 0, t.Chunks, "character chunks"},
		{second&vocabOtherStrings != 0, t.OtherStrings, "other strings"},
	}
	for _, st := range stringTables {
		if !st.flag {
			continue
		}
		err := d.decodeSequence(st.name, func() error {
			s, err := d.decodeLiteralString(st.name)
			if err != nil {
				return err
			}
			return d.addString(st.table, s)
		})
		if err != nil {
			return "", err
		}
	}
	if second&vocabElementNames != 0 {
		if err := d.decodeSequence("element names", func() error { return d.decodeNameSurrogate(t.ElementNames) }); err != nil {
			return "", err
		}
	}
	if second&vocabAttributeNames != 0 {
		if err := d.decodeSequence("attribute names", func() error { return d.decodeNameSurrogate(t.AttributeNames) }); err != nil {
			return "", err
		}
	}
	return uri, nil
}

func (d *Decoder) decodeSequence(what string, item func() error) error {
	n, err := d.in.SequenceLength()
	if err != nil {
		return d.readError(err, what)
	}
	for range n {
		if err := item(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) addString(table *vocab.StringTable, s string) error {
	if _, ok := table.Add(s); !ok {
		return d.errorf(fierrors.ErrTableFull, "vocabulary table full")
	}
	return nil
}

// decodeLiteralString reads a literal UTF-8 or UTF-16 non-identifying string
// without the add-to-table bit.
func (d *Decoder) decodeLiteralString(what string) (string, error) {
	b, err := d.readByte(what)
	if err != nil {
		return "", err
	}
	kind := itemkind.NonIdentifying(b)
	if (kind != itemkind.StringUTF8 && kind != itemkind.StringUTF16) || b&stringAddToTable != 0 {
		return "", d.illegal(b, what)
	}
	n, err := d.in.FifthBitLength(b)
	if err != nil {
		return "", d.readError(err, what)
	}
	data, err := d.next(n, what)
	if err != nil {
		return "", err
	}
	text, err := d.decodeText(data, kind == itemkind.StringUTF16, what)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func (d *Decoder) decodeNameSurrogate(table *vocab.NameTable) error {
	flags, err := d.readByte("name surrogate")
	if err != nil {
		return err
	}
	if flags&0xFC != 0 {
		return d.illegal(flags, "name surrogate")
	}
	var prefix, namespace string
	prefixIndex, namespaceIndex := vocab.NoIndex, vocab.NoIndex
	if flags&itemkind.FlagPrefix != 0 {
		if prefixIndex, prefix, err = d.decodeSurrogateIndex(d.tables.Prefixes); err != nil {
			return err
		}
	}
	if flags&itemkind.FlagNamespace != 0 {
		if namespaceIndex, namespace, err = d.decodeSurrogateIndex(d.tables.Namespaces); err != nil {
			return err
		}
	}
	if prefixIndex != vocab.NoIndex && namespaceIndex == vocab.NoIndex {
		return d.errorf(fierrors.ErrNotInScope, "name surrogate has a prefix but no namespace")
	}
	localIndex, local, err := d.decodeSurrogateIndex(d.tables.LocalNames)
	if err != nil {
		return err
	}
	if _, ok := table.Add(vocab.NewName(prefix, namespace, local, prefixIndex, namespaceIndex, localIndex)); !ok {
		return d.errorf(fierrors.ErrTableFull, "name table full")
	}
	return nil
}

func (d *Decoder) decodeSurrogateIndex(table *vocab.StringTable) (int, string, error) {
	b, err := d.readByte("name surrogate")
	if err != nil {
		return 0, "", err
	}
	if b&0x80 != 0 {
		return 0, "", d.illegal(b, "name surrogate")
	}
	i, err := d.in.SecondBitInteger(b)
	if err != nil {
		return 0, "", d.readError(err, "name surrogate")
	}
	s, ok := table.Get(i)
	if !ok {
		return 0, "", d.errorf(fierrors.ErrIndexOutOfRange, "name surrogate index %d", i)
	}
	return i, s, nil
}

func (d *Decoder) decodeNotations() ([]Notation, error) {
	var out []Notation
	for {
		b, err := d.readByte("notation")
		if err != nil {
			return nil, err
		}
		if b == itemkind.OctetTerminator {
			return out, nil
		}
		if b&0xFC != itemkind.OctetNotation {
			return nil, d.illegal(b, "notations")
		}
		var n Notation
		if n.Name, err = d.decodeIdentifying(d.tables.OtherNCNames, "notation name"); err != nil {
			return nil, err
		}
		if n.SystemID, n.PublicID, err = d.decodeIdentifiers(b); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

func (d *Decoder) decodeUnparsedEntities() ([]UnparsedEntity, error) {
	var out []UnparsedEntity
	for {
		b, err := d.readByte("unparsed entity")
		if err != nil {
			return nil, err
		}
		if b == itemkind.OctetTerminator {
			return out, nil
		}
		if b&0xFE != itemkind.OctetUnparsedEntity {
			return nil, d.illegal(b, "unparsed entities")
		}
		var u UnparsedEntity
		if u.Name, err = d.decodeIdentifying(d.tables.OtherNCNames, "unparsed entity name"); err != nil {
			return nil, err
		}
		if u.SystemID, u.PublicID, err = d.decodeIdentifiers(b | itemkind.FlagSystemID); err != nil {
			return nil, err
		}
		if u.Notation, err = d.decodeIdentifying(d.tables.OtherNCNames, "unparsed entity notation"); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
}

// decodeIdentifiers reads the system and public identifiers flagged in lead.
func (d *Decoder) decodeIdentifiers(lead byte) (systemID, publicID string, err error) {
	if lead&itemkind.FlagSystemID != 0 {
		if systemID, err = d.decodeIdentifying(d.tables.OtherURIs, "system identifier"); err != nil {
			return "", "", err
		}
	}
	if lead&itemkind.FlagPublicID != 0 {
		if publicID, err = d.decodeIdentifying(d.tables.OtherURIs, "public identifier"); err != nil {
			return "", "", err
		}
	}
	return systemID, publicID, nil
}

func (d *Decoder) decodeDocumentType(lead byte) error {
	if err := d.doc.OnDocumentType(); err != nil {
		return d.wrap(fierrors.ErrDuplicateDocumentType, err, "document type")
	}
	var dt DocumentType
	var err error
	if dt.SystemID, dt.PublicID, err = d.decodeIdentifiers(lead); err != nil {
		return err
	}
	for {
		b, err := d.readByte("document type")
		if err != nil {
			return err
		}
		if b == itemkind.OctetTerminator {
			break
		}
		if b != itemkind.OctetProcessingInstruction {
			return d.illegal(b, "document type")
		}
		target, data, err := d.readProcessingInstruction()
		if err != nil {
			return err
		}
		dt.Instructions = append(dt.Instructions, ProcessingInstruction{Target: target, Data: data})
	}
	if d.h.decl == nil {
		return nil
	}
	if err := d.h.decl.DocumentType(dt); err != nil {
		return d.handlerError(err, "document type")
	}
	return nil
}
