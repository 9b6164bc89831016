package fastinfoset

import (
	"io"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/alphabet"
	"github.com/jacoelho/fastinfoset/internal/docstate"
	"github.com/jacoelho/fastinfoset/internal/dupattr"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/scope"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// flushSize is the buffered octet count above which the encoder writes
// through to its writer between items.
const flushSize = 32 << 10

// Encoder writes Fast Infoset documents from infoset events.
// It implements Handler and all optional handler interfaces.
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w         io.Writer
	opts      resolvedEncoderOptions
	tables    *vocab.Tables
	utf16     *encoding.Encoder
	alphabets map[string]*alphabet.Alphabet
	buf       []byte
	scratch   []byte
	stack     []QName
	declared  []scope.Binding
	attrs     []Attr
	scope     scope.Tracker
	dup       dupattr.Verifier
	doc       docstate.State
	written   int64
	started   bool
	// terminator is a single terminator not yet written; a second one
	// coinciding with it becomes a double terminator.
	terminator bool
}

var (
	_ Handler          = (*Encoder)(nil)
	_ DeclHandler      = (*Encoder)(nil)
	_ PrimitiveHandler = (*Encoder)(nil)
	_ AlgorithmHandler = (*Encoder)(nil)
	_ AlphabetHandler  = (*Encoder)(nil)
	_ CDATAHandler     = (*Encoder)(nil)
)

// NewEncoder returns an encoder writing documents to w.
func NewEncoder(w io.Writer, opts EncoderOptions) (*Encoder, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	e := &Encoder{
		w:         w,
		opts:      resolved,
		tables:    vocab.New(true),
		alphabets: make(map[string]*alphabet.Alphabet),
	}
	if resolved.utf16 {
		e.utf16 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	}
	return e, nil
}

// Reset discards any document in progress and directs output to w.
func (e *Encoder) Reset(w io.Writer) {
	e.w = w
	e.resetDocument()
}

// Written returns the number of octets written to the writer.
func (e *Encoder) Written() int64 {
	return e.written
}

func (e *Encoder) resetDocument() {
	e.tables.SetBase(e.opts.base)
	e.scope.Reset()
	e.doc.Reset()
	clear(e.stack)
	e.stack = e.stack[:0]
	e.declared = e.declared[:0]
	e.buf = e.buf[:0]
	e.started = false
	e.terminator = false
}

// StartDocument writes the header, the document properties, and the
// initial vocabulary.
func (e *Encoder) StartDocument(props DocumentProperties) error {
	if e.started {
		return e.fail(fierrors.New(fierrors.ErrInvalidEvent, "document already started"))
	}
	e.resetDocument()
	e.started = true
	if err := e.writeHeader(props); err != nil {
		return e.fail(err)
	}
	return e.flushIfFull()
}

// EndDocument terminates the document and flushes it to the writer.
func (e *Encoder) EndDocument() error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(e.stack) > 0 {
		return e.fail(fierrors.Newf(fierrors.ErrDocumentStructure, "document ends with %d open elements", len(e.stack)))
	}
	if err := e.doc.OnEndDocument(); err != nil {
		return e.fail(fierrors.Wrap(fierrors.ErrDocumentStructure, err, "end document"))
	}
	e.terminate()
	e.flushTerminator()
	if err := e.flush(); err != nil {
		return e.fail(err)
	}
	e.opts.logger.Debug("encoded document",
		slog.Int64("octets", e.written),
		slog.Int("vocabulary_entries", e.tables.Added()),
	)
	e.resetDocument()
	return nil
}

func (e *Encoder) ready() error {
	if !e.started {
		return fierrors.New(fierrors.ErrInvalidEvent, "event outside a document")
	}
	return nil
}

// fail abandons the document in progress and returns err with the output
// position attached.
func (e *Encoder) fail(err error) error {
	ce, ok := fierrors.As(err)
	if !ok {
		ce = fierrors.Wrap(fierrors.ErrIO, err, "encode")
	}
	if ce.Offset == 0 {
		ce.Offset = e.written + int64(len(e.buf))
	}
	if ce.Depth == 0 {
		ce.Depth = len(e.stack)
	}
	e.opts.logger.Debug("encode failed", slog.String("code", string(ce.Code)), slog.Int64("offset", ce.Offset))
	e.resetDocument()
	return ce
}

func (e *Encoder) flushIfFull() error {
	if len(e.buf) < flushSize {
		return nil
	}
	if err := e.flush(); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *Encoder) flush() error {
	if len(e.buf) == 0 {
		return nil
	}
	n, err := e.w.Write(e.buf)
	e.written += int64(n)
	e.buf = e.buf[:0]
	if err != nil {
		return fierrors.Wrap(fierrors.ErrIO, err, "write document")
	}
	return nil
}

// terminate records the end of an attribute list, an element, or the
// document. Two coinciding terminations share one double terminator octet.
func (e *Encoder) terminate() {
	if !e.terminator {
		e.terminator = true
		return
	}
	if e.opts.doubleTerminators {
		e.buf = append(e.buf, itemkind.OctetDoubleTerminator)
		e.terminator = false
		return
	}
	e.buf = append(e.buf, itemkind.OctetTerminator)
}

func (e *Encoder) flushTerminator() {
	if e.terminator {
		e.buf = append(e.buf, itemkind.OctetTerminator)
		e.terminator = false
	}
}

func (e *Encoder) alphabet(chars string) (*alphabet.Alphabet, int, error) {
	if id, ok := alphabet.BuiltinID(chars); ok {
		a, _ := alphabet.Builtin(id)
		return a, id, nil
	}
	index, ok := e.tables.Alphabets.Lookup(chars)
	if !ok {
		return nil, 0, fierrors.Newf(fierrors.ErrAlphabetData, "restricted alphabet %q is not registered", chars)
	}
	a, ok := e.alphabets[chars]
	if !ok {
		var err error
		if a, err = alphabet.New(chars); err != nil {
			return nil, 0, fierrors.Wrap(fierrors.ErrAlphabetData, err, "restricted alphabet")
		}
		e.alphabets[chars] = a
	}
	return a, alphabet.ApplicationStart + index, nil
}
