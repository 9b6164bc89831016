package fastinfoset

import (
	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/octets"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// header is the identification and version of every document.
var header = [4]byte{0xE0, 0x00, 0x00, 0x01}

// Document property flags of the octet following the header.
const (
	propertyAdditionalData    = 0x40
	propertyInitialVocabulary = 0x20
	propertyNotations         = 0x10
	propertyUnparsedEntities  = 0x08
	propertyEncodingScheme    = 0x04
	propertyStandalone        = 0x02
	propertyVersion           = 0x01
)

// Initial vocabulary flags of the first and second octet.
const (
	vocabExternal        = 0x10
	vocabAlphabets       = 0x08
	vocabAlgorithms      = 0x04
	vocabPrefixes        = 0x02
	vocabNamespaces      = 0x01
	vocabLocalNames      = 0x80
	vocabOtherNCNames    = 0x40
	vocabOtherURIs       = 0x20
	vocabAttributeValues = 0x10
	vocabChunks          = 0x08
	vocabOtherStrings    = 0x04
	vocabElementNames    = 0x02
	vocabAttributeNames  = 0x01
)

func appendXMLDeclaration(dst []byte, props DocumentProperties) []byte {
	dst = append(dst, "<?xml"...)
	if props.Version != "" {
		dst = append(dst, " version='"...)
		dst = append(dst, props.Version...)
		dst = append(dst, '\'')
	}
	dst = append(dst, " encoding='finf'"...)
	switch props.Standalone {
	case StandaloneYes:
		dst = append(dst, " standalone='yes'"...)
	case StandaloneNo:
		dst = append(dst, " standalone='no'"...)
	}
	return append(dst, "?>"...)
}

func (e *Encoder) writeHeader(props DocumentProperties) error {
	if e.opts.xmlDeclaration {
		e.buf = appendXMLDeclaration(e.buf, props)
	}
	e.buf = append(e.buf, header[:]...)

	var flags byte
	if len(props.AdditionalData) > 0 {
		flags |= propertyAdditionalData
	}
	if e.opts.external != nil || e.opts.inline != nil {
		flags |= propertyInitialVocabulary
	}
	if len(props.Notations) > 0 {
		flags |= propertyNotations
	}
	if len(props.UnparsedEntities) > 0 {
		flags |= propertyUnparsedEntities
	}
	if props.CharacterEncodingScheme != "" {
		flags |= propertyEncodingScheme
	}
	if props.Standalone != StandaloneUnset {
		flags |= propertyStandalone
	}
	if props.Version != "" {
		flags |= propertyVersion
	}
	e.buf = append(e.buf, flags)

	if flags&propertyAdditionalData != 0 {
		e.buf = octets.AppendSequenceLength(e.buf, len(props.AdditionalData))
		for _, data := range props.AdditionalData {
			if data.ID == "" || len(data.Data) == 0 {
				return fierrors.New(fierrors.ErrInvalidEvent, "additional data needs an identifier and data")
			}
			e.buf = appendOctetString(e.buf, data.ID)
			e.buf = appendOctetString(e.buf, data.Data)
		}
	}
	if flags&propertyInitialVocabulary != 0 {
		e.appendInitialVocabulary()
	}
	if flags&propertyNotations != 0 {
		for _, n := range props.Notations {
			if err := e.appendNotation(n); err != nil {
				return err
			}
		}
		e.buf = append(e.buf, itemkind.OctetTerminator)
	}
	if flags&propertyUnparsedEntities != 0 {
		for _, u := range props.UnparsedEntities {
			if err := e.appendUnparsedEntity(u); err != nil {
				return err
			}
		}
		e.buf = append(e.buf, itemkind.OctetTerminator)
	}
	if flags&propertyEncodingScheme != 0 {
		e.buf = appendOctetString(e.buf, props.CharacterEncodingScheme)
	}
	if flags&propertyStandalone != 0 {
		var standalone byte
		if props.Standalone == StandaloneYes {
			standalone = 1
		}
		e.buf = append(e.buf, standalone)
	}
	if flags&propertyVersion != 0 {
		if err := e.appendString(e.tables.OtherStrings, props.Version, false); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) appendNotation(n Notation) error {
	if n.Name == "" {
		return fierrors.New(fierrors.ErrInvalidEvent, "notation without name")
	}
	lead := byte(itemkind.OctetNotation)
	if n.SystemID != "" {
		lead |= itemkind.FlagSystemID
	}
	if n.PublicID != "" {
		lead |= itemkind.FlagPublicID
	}
	e.buf = append(e.buf, lead)
	if _, err := e.appendIdentifying(e.tables.OtherNCNames, n.Name); err != nil {
		return err
	}
	return e.appendIdentifiers(n.SystemID, n.PublicID)
}

func (e *Encoder) appendUnparsedEntity(u UnparsedEntity) error {
	if u.Name == "" || u.SystemID == "" || u.Notation == "" {
		return fierrors.Newf(fierrors.ErrInvalidEvent, "unparsed entity %q needs a system identifier and a notation", u.Name)
	}
	lead := byte(itemkind.OctetUnparsedEntity)
	if u.PublicID != "" {
		lead |= itemkind.FlagPublicID
	}
	e.buf = append(e.buf, lead)
	if _, err := e.appendIdentifying(e.tables.OtherNCNames, u.Name); err != nil {
		return err
	}
	if err := e.appendIdentifiers(u.SystemID, u.PublicID); err != nil {
		return err
	}
	_, err := e.appendIdentifying(e.tables.OtherNCNames, u.Notation)
	return err
}

// appendIdentifiers writes the optional system and public identifiers of a
// declaration; the lead octet already flags which are present.
func (e *Encoder) appendIdentifiers(systemID, publicID string) error {
	if systemID != "" {
		if _, err := e.appendIdentifying(e.tables.OtherURIs, systemID); err != nil {
			return err
		}
	}
	if publicID != "" {
		if _, err := e.appendIdentifying(e.tables.OtherURIs, publicID); err != nil {
			return err
		}
	}
	return nil
}

// appendInitialVocabulary writes the external vocabulary reference and the
// entries added by the inline vocabulary, in table order.
func (e *Encoder) appendInitialVocabulary() {
	t := e.opts.inline
	var first, second byte
	if e.opts.external != nil {
		first |= vocabExternal
	}
	if t != nil {
		first |= presence(t.Alphabets, vocabAlphabets) |
			presence(t.Algorithms, vocabAlgorithms) |
			presence(t.Prefixes, vocabPrefixes) |
			presence(t.Namespaces, vocabNamespaces)
		second |= presence(t.LocalNames, vocabLocalNames) |
			presence(t.OtherNCNames, vocabOtherNCNames) |
			presence(t.OtherURIs, vocabOtherURIs) |
			presence(t.AttributeValues, vocabAttributeValues) |
			presence(t.Chunks, vocabChunks) |
			presence(t.OtherStrings, vocabOtherStrings)
		if len(t.ElementNames.Names()) > 0 {
			second |= vocabElementNames
		}
		if len(t.AttributeNames.Names()) > 0 {
			second |= vocabAttributeNames
		}
	}
	e.buf = append(e.buf, first, second)
	if e.opts.external != nil {
		e.buf = appendOctetString(e.buf, e.opts.external.URI())
	}
	if t == nil {
		return
	}
	for _, table := range []*vocab.StringTable{
		t.Alphabets, t.Algorithms, t.Prefixes, t.Namespaces,
		t.LocalNames, t.OtherNCNames, t.OtherURIs,
	} {
		if values := table.Values(); len(values) > 0 {
			e.buf = octets.AppendSequenceLength(e.buf, len(values))
			for _, s := range values {
				e.buf = appendOctetString(e.buf, s)
			}
		}
	}
	for _, table := range []*vocab.StringTable{t.AttributeValues, t.Chunks, t.OtherStrings} {
		if values := table.Values(); len(values) > 0 {
			e.buf = octets.AppendSequenceLength(e.buf, len(values))
			for _, s := range values {
				e.appendLiteralString(s, 0)
			}
		}
	}
	for _, table := range []*vocab.NameTable{t.ElementNames, t.AttributeNames} {
		if names := table.Names(); len(names) > 0 {
			e.buf = octets.AppendSequenceLength(e.buf, len(names))
			for _, n := range names {
				e.buf = appendNameSurrogate(e.buf, n)
			}
		}
	}
}

func presence(t *vocab.StringTable, flag byte) byte {
	if t.Added() > 0 {
		return flag
	}
	return 0
}

// appendNameSurrogate writes a name as indices into the prefix, namespace,
// and local name tables.
func appendNameSurrogate(dst []byte, n *vocab.Name) []byte {
	var flags byte
	if n.PrefixIndex != vocab.NoIndex {
		flags |= itemkind.FlagPrefix
	}
	if n.NamespaceIndex != vocab.NoIndex {
		flags |= itemkind.FlagNamespace
	}
	dst = append(dst, flags)
	if n.PrefixIndex != vocab.NoIndex {
		dst = octets.AppendSecondBitInteger(dst, 0, n.PrefixIndex)
	}
	if n.NamespaceIndex != vocab.NoIndex {
		dst = octets.AppendSecondBitInteger(dst, 0, n.NamespaceIndex)
	}
	return octets.AppendSecondBitInteger(dst, 0, n.LocalIndex)
}

// appendOctetString writes a non-empty octet string with its length
// starting on the second bit.
func appendOctetString[S ~string | ~[]byte](dst []byte, s S) []byte {
	dst = octets.AppendSecondBitLength(dst, 0, len(s))
	return append(dst, s...)
}

// appendLiteralString writes s as a literal non-identifying string in the
// configured character encoding; flags may carry the add-to-table bit.
// Vocabulary entries and values checked by callers are valid UTF-8.
func (e *Encoder) appendLiteralString(s string, flags byte) {
	data := []byte(s)
	if e.utf16 != nil {
		if encoded, err := e.utf16.Bytes(data); err == nil {
			e.buf = octets.AppendFifthBitLength(e.buf, flags|stringUTF16, len(encoded))
			e.buf = append(e.buf, encoded...)
			return
		}
	}
	e.buf = octets.AppendFifthBitLength(e.buf, flags, len(data))
	e.buf = append(e.buf, data...)
}
