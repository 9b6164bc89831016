// Package itemkind classifies the lead octet of every encoded item through
// 256-entry tables, one per decoding context.
package itemkind

// Kind identifies the item or string form selected by a lead octet.
type Kind uint8

const (
	Invalid Kind = iota
	Element
	ElementLiteral
	ElementNamespaces
	CharactersUTF8
	CharactersUTF16
	CharactersAlphabet
	CharactersAlgorithm
	CharactersIndex
	Comment
	ProcessingInstruction
	EntityReference
	DocumentType
	Terminator
	DoubleTerminator
	AttributeIndex
	AttributeLiteral
	StringLiteral
	StringIndex
	StringUTF8
	StringUTF16
	StringAlphabet
	StringAlgorithm
	StringEmpty
)

var kindNames = [...]string{
	Invalid:               "Invalid",
	Element:               "Element",
	ElementLiteral:        "ElementLiteral",
	ElementNamespaces:     "ElementNamespaces",
	CharactersUTF8:        "CharactersUTF8",
	CharactersUTF16:       "CharactersUTF16",
	CharactersAlphabet:    "CharactersAlphabet",
	CharactersAlgorithm:   "CharactersAlgorithm",
	CharactersIndex:       "CharactersIndex",
	Comment:               "Comment",
	ProcessingInstruction: "ProcessingInstruction",
	EntityReference:       "EntityReference",
	DocumentType:          "DocumentType",
	Terminator:            "Terminator",
	DoubleTerminator:      "DoubleTerminator",
	AttributeIndex:        "AttributeIndex",
	AttributeLiteral:      "AttributeLiteral",
	StringLiteral:         "StringLiteral",
	StringIndex:           "StringIndex",
	StringUTF8:            "StringUTF8",
	StringUTF16:           "StringUTF16",
	StringAlphabet:        "StringAlphabet",
	StringAlgorithm:       "StringAlgorithm",
	StringEmpty:           "StringEmpty",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Lead octets with fixed values.
const (
	OctetProcessingInstruction = 0xE1
	OctetComment               = 0xE2
	OctetTerminator            = 0xF0
	OctetDoubleTerminator      = 0xFF
	OctetElementNamespaces     = 0x38
	OctetElementLiteral        = 0x3C
	OctetAttributeLiteral      = 0x78
	OctetNamespaceAttribute    = 0xCC
	OctetCharacters            = 0x80
	OctetCharactersIndex       = 0xA0
	OctetNotation              = 0xC0
	OctetDocumentType          = 0xC4
	OctetEntityReference       = 0xC8
	OctetUnparsedEntity        = 0xD0
	OctetStringIndex           = 0x80
	OctetEmptyString           = 0xFF

	FlagAttributes = 0x40
	FlagAddToTable = 0x10
	FlagPrefix     = 0x02
	FlagNamespace  = 0x01
	FlagSystemID   = 0x02
	FlagPublicID   = 0x01
)

var (
	documentTable       [256]Kind
	contentTable        [256]Kind
	attributeTable      [256]Kind
	identifyingTable    [256]Kind
	nonIdentifyingTable [256]Kind
)

func init() {
	for i := range 256 {
		b := byte(i)
		contentTable[i] = classifyContent(b)
		attributeTable[i] = classifyAttribute(b)
		identifyingTable[i] = classifyIdentifying(b)
		nonIdentifyingTable[i] = classifyNonIdentifying(b)

		switch k := contentTable[i]; k {
		case Element, ElementLiteral, ElementNamespaces, Comment, ProcessingInstruction, Terminator, DoubleTerminator:
			documentTable[i] = k
		}
		if b&0xFC == OctetDocumentType {
			documentTable[i] = DocumentType
		}
	}
}

// Document classifies an item at document level, before or after the root element.
func Document(b byte) Kind { return documentTable[b] }

// Content classifies an item inside element content.
func Content(b byte) Kind { return contentTable[b] }

// Attribute classifies an item of an attribute list.
func Attribute(b byte) Kind { return attributeTable[b] }

// Identifying classifies an identifying string (literal or index).
func Identifying(b byte) Kind { return identifyingTable[b] }

// NonIdentifying classifies a non-identifying string.
func NonIdentifying(b byte) Kind { return nonIdentifyingTable[b] }

func classifyContent(b byte) Kind {
	switch {
	case b&0x80 == 0:
		return classifyElement(b & 0x3F)
	case b&0xE0 == OctetCharacters:
		switch b & 0x0C {
		case 0x00:
			return CharactersUTF8
		case 0x04:
			return CharactersUTF16
		case 0x08:
			return CharactersAlphabet
		default:
			return CharactersAlgorithm
		}
	case b&0xE0 == OctetCharactersIndex:
		if validFourthBitInteger(b) {
			return CharactersIndex
		}
		return Invalid
	case b&0xFC == OctetEntityReference:
		return EntityReference
	case b == OctetProcessingInstruction:
		return ProcessingInstruction
	case b == OctetComment:
		return Comment
	case b == OctetTerminator:
		return Terminator
	case b == OctetDoubleTerminator:
		return DoubleTerminator
	default:
		return Invalid
	}
}

func classifyElement(low byte) Kind {
	switch {
	case low <= 0x30:
		return Element
	case low == OctetElementNamespaces:
		return ElementNamespaces
	case low&0x3C == OctetElementLiteral:
		return ElementLiteral
	default:
		return Invalid
	}
}

func validFourthBitInteger(b byte) bool {
	return b&0x1F <= 0x18
}

func classifyAttribute(b byte) Kind {
	switch {
	case b&0x80 == 0 && validSecondBitInteger(b):
		return AttributeIndex
	case b&0xFC == OctetAttributeLiteral:
		return AttributeLiteral
	case b == OctetTerminator:
		return Terminator
	case b == OctetDoubleTerminator:
		return DoubleTerminator
	default:
		return Invalid
	}
}

func validSecondBitInteger(b byte) bool {
	return b&0x70 != 0x70
}

func classifyIdentifying(b byte) Kind {
	if b&0x80 != 0 {
		if validSecondBitInteger(b) {
			return StringIndex
		}
		return Invalid
	}
	if b&0x40 == 0 || b == 0x40 || b == 0x60 {
		return StringLiteral
	}
	return Invalid
}

func classifyNonIdentifying(b byte) Kind {
	if b == OctetEmptyString {
		return StringEmpty
	}
	if b&0x80 != 0 {
		if validSecondBitInteger(b) {
			return StringIndex
		}
		return Invalid
	}
	switch b & 0x30 {
	case 0x20:
		return StringAlphabet
	case 0x30:
		return StringAlgorithm
	}
	if low := b & 0x0F; low > 0x08 && low != 0x0C {
		return Invalid
	}
	if b&0x30 == 0 {
		return StringUTF8
	}
	return StringUTF16
}
