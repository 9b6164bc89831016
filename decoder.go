package fastinfoset

import (
	"errors"
	"io"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/alphabet"
	"github.com/jacoelho/fastinfoset/internal/docstate"
	"github.com/jacoelho/fastinfoset/internal/dupattr"
	"github.com/jacoelho/fastinfoset/internal/itemkind"
	"github.com/jacoelho/fastinfoset/internal/octets"
	"github.com/jacoelho/fastinfoset/internal/scope"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// Decoder reads Fast Infoset documents and reports them to a Handler.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	in        *octets.Reader
	opts      resolvedDecoderOptions
	tables    *vocab.Tables
	utf16     *encoding.Decoder
	alphabets map[string]*alphabet.Alphabet
	h         handlers
	stack     []QName
	attrs     []Attr
	text      []byte
	scope     scope.Tracker
	dup       dupattr.Verifier
	doc       docstate.State
	// documentEnd is set when a double terminator closed the root element
	// and the document together.
	documentEnd bool
}

// handlers caches the optional interfaces implemented by the Handler.
type handlers struct {
	Handler
	decl      DeclHandler
	primitive PrimitiveHandler
	algorithm AlgorithmHandler
	alphabet  AlphabetHandler
	cdata     CDATAHandler
	fatal     ErrorHandler
}

func newHandlers(h Handler) handlers {
	out := handlers{Handler: h}
	out.decl, _ = h.(DeclHandler)
	out.primitive, _ = h.(PrimitiveHandler)
	out.algorithm, _ = h.(AlgorithmHandler)
	out.alphabet, _ = h.(AlphabetHandler)
	out.cdata, _ = h.(CDATAHandler)
	out.fatal, _ = h.(ErrorHandler)
	return out
}

// NewDecoder returns a decoder reading documents from r.
func NewDecoder(r io.Reader, opts DecoderOptions) (*Decoder, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Decoder{
		in:        octets.NewReader(r, resolved.limits.maxOctetString),
		opts:      resolved,
		tables:    vocab.New(false),
		utf16:     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(),
		alphabets: make(map[string]*alphabet.Alphabet),
	}, nil
}

// Reset discards buffered input and reads subsequent documents from r.
func (d *Decoder) Reset(r io.Reader) {
	d.in.Reset(r)
	d.resetDocument()
}

// InputOffset returns the number of octets consumed from the reader.
func (d *Decoder) InputOffset() int64 {
	return d.in.Offset()
}

// Decode reads one document and reports its events to h. It returns io.EOF
// when the input ends before a new document starts. Documents may follow
// each other on the same reader.
//
// Errors are *errors.Error values carrying the input offset and element
// depth; h is notified through ErrorHandler first when it implements it.
func (d *Decoder) Decode(h Handler) error {
	if h == nil {
		h = NopHandler{}
	}
	more, err := d.in.More()
	if err != nil {
		return d.fail(d.readError(err, "document"))
	}
	if !more {
		return io.EOF
	}
	d.h = newHandlers(h)
	defer func() { d.h = handlers{} }()
	d.resetDocument()
	if err := d.decodeDocument(); err != nil {
		return d.fail(err)
	}
	d.opts.logger.Debug("decoded document",
		slog.Int64("offset", d.in.Offset()),
		slog.Int("vocabulary_entries", d.tables.Added()),
	)
	d.resetDocument()
	return nil
}

func (d *Decoder) resetDocument() {
	d.tables.SetBase(nil)
	d.scope.Reset()
	d.doc.Reset()
	clear(d.stack)
	d.stack = d.stack[:0]
	clear(d.attrs)
	d.attrs = d.attrs[:0]
	d.documentEnd = false
}

// fail normalizes err, notifies the handler, and drops per-document state.
func (d *Decoder) fail(err error) error {
	ce, ok := fierrors.As(err)
	if !ok {
		ce = fierrors.Wrap(fierrors.ErrIO, err, "decode")
		ce.Offset = d.in.Offset()
		ce.Depth = len(d.stack)
	}
	d.opts.logger.Debug("decode failed",
		slog.String("code", string(ce.Code)),
		slog.Int64("offset", ce.Offset),
		slog.Int("depth", ce.Depth),
	)
	if d.h.fatal != nil {
		d.h.fatal.FatalError(ce)
	}
	d.resetDocument()
	return ce
}

// errorf builds a positioned error.
func (d *Decoder) errorf(code fierrors.ErrorCode, format string, args ...any) error {
	e := fierrors.Newf(code, format, args...)
	e.Offset = d.in.Offset()
	e.Depth = len(d.stack)
	return e
}

// wrap builds a positioned error around err. Codec errors pass through.
func (d *Decoder) wrap(code fierrors.ErrorCode, err error, msg string) error {
	e := fierrors.Wrap(code, err, msg)
	e.Offset = d.in.Offset()
	e.Depth = len(d.stack)
	return e
}

func (d *Decoder) readError(err error, what string) error {
	switch {
	case errors.Is(err, octets.ErrTruncated):
		return d.wrap(fierrors.ErrTruncated, err, what)
	case errors.Is(err, octets.ErrMalformedInteger):
		return d.wrap(fierrors.ErrMalformedInteger, err, what)
	case errors.Is(err, octets.ErrLengthOverflow):
		return d.wrap(fierrors.ErrLengthOverflow, err, what)
	default:
		return d.wrap(fierrors.ErrIO, err, what)
	}
}

// handlerError wraps an error returned by the handler.
func (d *Decoder) handlerError(err error, event string) error {
	return d.wrap(fierrors.ErrHandler, err, event)
}

func (d *Decoder) readByte(what string) (byte, error) {
	b, err := d.in.ReadByte()
	if err != nil {
		return 0, d.readError(err, what)
	}
	return b, nil
}

func (d *Decoder) next(n int, what string) ([]byte, error) {
	data, err := d.in.Next(n)
	if err != nil {
		return nil, d.readError(err, what)
	}
	return data, nil
}

func (d *Decoder) illegal(b byte, context string) error {
	return d.errorf(fierrors.ErrIllegalOctet, "octet 0x%02X not allowed in %s", b, context)
}

func (d *Decoder) decodeDocument() error {
	if err := d.decodeHeader(); err != nil {
		return err
	}
	props, err := d.decodeProperties()
	if err != nil {
		return err
	}
	if err := d.h.StartDocument(props); err != nil {
		return d.handlerError(err, "start document")
	}
	for !d.documentEnd {
		b, err := d.readByte("document item")
		if err != nil {
			return err
		}
		switch kind := itemkind.Document(b); kind {
		case itemkind.Element, itemkind.ElementLiteral, itemkind.ElementNamespaces:
			if err := d.doc.OnStartElement(0); err != nil {
				return d.wrap(fierrors.ErrDocumentStructure, err, "root element")
			}
			if err := d.decodeElementTree(b, kind); err != nil {
				return err
			}
		case itemkind.DocumentType:
			if err := d.decodeDocumentType(b); err != nil {
				return err
			}
		case itemkind.Comment:
			if err := d.decodeComment(); err != nil {
				return err
			}
		case itemkind.ProcessingInstruction:
			if err := d.decodeProcessingInstruction(); err != nil {
				return err
			}
		case itemkind.Terminator:
			d.documentEnd = true
		default:
			return d.illegal(b, "document")
		}
	}
	if err := d.doc.OnEndDocument(); err != nil {
		return d.wrap(fierrors.ErrDocumentStructure, err, "end document")
	}
	if err := d.h.EndDocument(); err != nil {
		return d.handlerError(err, "end document")
	}
	return nil
}

func (d *Decoder) alphabet(id int) (*alphabet.Alphabet, error) {
	if a, ok := alphabet.Builtin(id); ok {
		return a, nil
	}
	if id < alphabet.ApplicationStart {
		return nil, d.errorf(fierrors.ErrReservedAlphabet, "restricted alphabet %d is reserved", id)
	}
	chars, ok := d.tables.Alphabets.Get(id - alphabet.ApplicationStart)
	if !ok {
		return nil, d.errorf(fierrors.ErrIndexOutOfRange, "restricted alphabet %d is not in the vocabulary", id)
	}
	a, ok := d.alphabets[chars]
	if !ok {
		var err error
		if a, err = alphabet.New(chars); err != nil {
			return nil, d.wrap(fierrors.ErrAlphabetData, err, "restricted alphabet")
		}
		d.alphabets[chars] = a
	}
	return a, nil
}
