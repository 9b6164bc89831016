package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups error codes by the layer that detected them.
type Kind uint8

const (
	// KindFormat reports octets that do not follow the encoding rules.
	KindFormat Kind = iota + 1
	// KindSemantic reports well-formed octets or events that break infoset rules.
	KindSemantic
	// KindUnsupportedAlgorithm reports typed data that no algorithm can convert.
	KindUnsupportedAlgorithm
	// KindHandler reports an error returned by an event consumer.
	KindHandler
	// KindIO reports a failure of the underlying reader or writer.
	KindIO
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindSemantic:
		return "semantic"
	case KindUnsupportedAlgorithm:
		return "unsupported-algorithm"
	case KindHandler:
		return "handler"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrorCode identifies a codec failure. Codes are usable as errors.Is targets.
type ErrorCode string

const (
	// ErrTruncated indicates input ending inside an item.
	ErrTruncated ErrorCode = "fi-truncated"
	// ErrMalformedInteger indicates an integer or length with no valid tier.
	ErrMalformedInteger ErrorCode = "fi-malformed-integer"
	// ErrLengthOverflow indicates an octet string above the configured limit.
	ErrLengthOverflow ErrorCode = "fi-length-overflow"
	// ErrBadHeader indicates a missing or corrupt document header.
	ErrBadHeader ErrorCode = "fi-bad-header"
	// ErrIllegalOctet indicates a lead octet that selects no item in its context.
	ErrIllegalOctet ErrorCode = "fi-illegal-octet"
	// ErrInvalidUTF8 indicates character data that is not valid UTF-8.
	ErrInvalidUTF8 ErrorCode = "fi-invalid-utf8"
	// ErrInvalidUTF16 indicates character data that is not valid UTF-16.
	ErrInvalidUTF16 ErrorCode = "fi-invalid-utf16"
	// ErrIndexOutOfRange indicates a reference to a missing vocabulary entry.
	ErrIndexOutOfRange ErrorCode = "fi-index-out-of-range"
	// ErrTableFull indicates a vocabulary table grew past its capacity.
	ErrTableFull ErrorCode = "fi-table-full"
	// ErrMaxDepth indicates element nesting above the configured limit.
	ErrMaxDepth ErrorCode = "fi-max-depth"

	// ErrNotInScope indicates a qualified name whose namespace is not bound to its prefix.
	ErrNotInScope ErrorCode = "fi-qname-not-in-scope"
	// ErrDuplicateAttribute indicates two attributes with the same expanded name.
	ErrDuplicateAttribute ErrorCode = "fi-duplicate-attribute"
	// ErrDuplicateDocumentType indicates a misplaced or repeated document type declaration.
	ErrDuplicateDocumentType ErrorCode = "fi-duplicate-doctype"
	// ErrDocumentStructure indicates a missing or repeated root element or stray content.
	ErrDocumentStructure ErrorCode = "fi-document-structure"
	// ErrReservedAlgorithm indicates an encoding algorithm identifier in the reserved range.
	ErrReservedAlgorithm ErrorCode = "fi-reserved-algorithm"
	// ErrReservedAlphabet indicates a restricted alphabet identifier in the reserved range.
	ErrReservedAlphabet ErrorCode = "fi-reserved-alphabet"
	// ErrAlgorithmData indicates octets an algorithm could not convert.
	ErrAlgorithmData ErrorCode = "fi-algorithm-data"
	// ErrAlphabetData indicates characters outside a restricted alphabet.
	ErrAlphabetData ErrorCode = "fi-alphabet-data"
	// ErrCDATAIndexed indicates a request to index CDATA character data.
	ErrCDATAIndexed ErrorCode = "fi-cdata-indexed"
	// ErrUnknownVocabulary indicates an external vocabulary URI with no registration.
	ErrUnknownVocabulary ErrorCode = "fi-unknown-vocabulary"
	// ErrInvalidEvent indicates an event sequence the encoder cannot represent.
	ErrInvalidEvent ErrorCode = "fi-invalid-event"

	// ErrUnsupportedAlgorithm indicates an application algorithm with no registration.
	ErrUnsupportedAlgorithm ErrorCode = "fi-unsupported-algorithm"

	// ErrHandler indicates an error returned by the event consumer.
	ErrHandler ErrorCode = "fi-handler"
	// ErrIO indicates a read or write failure.
	ErrIO ErrorCode = "fi-io"
)

// Error returns the code string.
func (c ErrorCode) Error() string {
	return string(c)
}

// Kind returns the kind of the code.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrTruncated, ErrMalformedInteger, ErrLengthOverflow, ErrBadHeader,
		ErrIllegalOctet, ErrInvalidUTF8, ErrInvalidUTF16, ErrIndexOutOfRange,
		ErrTableFull, ErrMaxDepth:
		return KindFormat
	case ErrUnsupportedAlgorithm:
		return KindUnsupportedAlgorithm
	case ErrHandler:
		return KindHandler
	case ErrIO:
		return KindIO
	default:
		return KindSemantic
	}
}

// Error describes a failure while encoding or decoding a document.
type Error struct {
	Err     error
	Code    ErrorCode
	Message string
	// Offset is the input octet offset for decode errors and the number of
	// octets produced for encode errors.
	Offset int64
	// Depth is the element nesting depth when the error occurred.
	Depth int
}

// New builds an Error with a code and message.
func New(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf formats a message and builds an Error.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap builds an Error with a code that wraps err.
func Wrap(code ErrorCode, err error, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Kind returns the kind of the error code.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// Error formats the error with code, message, and location.
func (e *Error) Error() string {
	if e == nil {
		return "fastinfoset <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Offset > 0 || e.Depth > 0 {
		fmt.Fprintf(&b, " at offset %d (depth %d)", e.Offset, e.Depth)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the code of e.
func (e *Error) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && e.Code == code
}

// As extracts the codec error from err.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}
