package fastinfoset

import (
	"bytes"
	"fmt"
	"slices"
	"testing"

	"github.com/google/uuid"
)

type event struct {
	Props  *DocumentProperties
	DT     *DocumentType
	Value  *Value
	Kind   string
	Target string
	Text   string
	Name   QName
	Attrs  []Attr
}

// recorder captures the events of a decoded document.
type recorder struct {
	events []event
	fatal  error
}

func (r *recorder) add(e event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) StartDocument(p DocumentProperties) error {
	return r.add(event{Kind: "start-document", Props: &p})
}

func (r *recorder) EndDocument() error {
	return r.add(event{Kind: "end-document"})
}

func (r *recorder) StartPrefixMapping(prefix, uri string) error {
	return r.add(event{Kind: "start-prefix", Target: prefix, Text: uri})
}

func (r *recorder) EndPrefixMapping(prefix string) error {
	return r.add(event{Kind: "end-prefix", Target: prefix})
}

func (r *recorder) StartElement(name QName, attrs []Attr) error {
	var copied []Attr
	if len(attrs) > 0 {
		copied = slices.Clone(attrs)
	}
	return r.add(event{Kind: "start", Name: name, Attrs: copied})
}

func (r *recorder) EndElement(name QName) error {
	return r.add(event{Kind: "end", Name: name})
}

func (r *recorder) Characters(text []byte) error {
	return r.add(event{Kind: "text", Text: string(text)})
}

func (r *recorder) Comment(text []byte) error {
	return r.add(event{Kind: "comment", Text: string(text)})
}

func (r *recorder) ProcessingInstruction(target, data string) error {
	return r.add(event{Kind: "pi", Target: target, Text: data})
}

func (r *recorder) DocumentType(dt DocumentType) error {
	return r.add(event{Kind: "doctype", DT: &dt})
}

func (r *recorder) UnexpandedEntity(name, systemID, publicID string) error {
	return r.add(event{Kind: "entity", Target: name, Text: systemID + "|" + publicID})
}

func (r *recorder) FatalError(err error) {
	r.fatal = err
}

// typedRecorder also captures typed character content.
type typedRecorder struct {
	recorder
}

func (r *typedRecorder) typed(id int, data any) error {
	return r.add(event{Kind: "typed", Value: &Value{Algorithm: id, Data: data}})
}

func (r *typedRecorder) Octets(id int, data []byte) error { return r.typed(id, bytes.Clone(data)) }
func (r *typedRecorder) Shorts(v []int16) error         { return r.typed(AlgorithmShort, slices.Clone(v)) }
func (r *typedRecorder) Ints(v []int32) error           { return r.typed(AlgorithmInt, slices.Clone(v)) }
func (r *typedRecorder) Longs(v []int64) error          { return r.typed(AlgorithmLong, slices.Clone(v)) }
func (r *typedRecorder) Booleans(v []bool) error        { return r.typed(AlgorithmBoolean, slices.Clone(v)) }
func (r *typedRecorder) Floats(v []float32) error       { return r.typed(AlgorithmFloat, slices.Clone(v)) }
func (r *typedRecorder) Doubles(v []float64) error      { return r.typed(AlgorithmDouble, slices.Clone(v)) }
func (r *typedRecorder) UUIDs(v []uuid.UUID) error      { return r.typed(AlgorithmUUID, slices.Clone(v)) }

func (r *typedRecorder) AlgorithmData(v Value) error {
	return r.add(event{Kind: "typed", Value: &v})
}

func (r *typedRecorder) AlphabetCharacters(chars string, text []byte) error {
	return r.add(event{Kind: "alphabet", Target: chars, Text: string(text)})
}

func (r *typedRecorder) CDATA(text []byte) error {
	return r.add(event{Kind: "cdata", Text: string(text)})
}

// replay sends recorded events to h.
func replay(h Handler, events []event) error {
	for _, e := range events {
		var err error
		switch e.Kind {
		case "start-document":
			var props DocumentProperties
			if e.Props != nil {
				props = *e.Props
			}
			err = h.StartDocument(props)
		case "end-document":
			err = h.EndDocument()
		case "start-prefix":
			err = h.StartPrefixMapping(e.Target, e.Text)
		case "end-prefix":
			err = h.EndPrefixMapping(e.Target)
		case "start":
			err = h.StartElement(e.Name, e.Attrs)
		case "end":
			err = h.EndElement(e.Name)
		case "text":
			err = h.Characters([]byte(e.Text))
		case "comment":
			err = h.Comment([]byte(e.Text))
		case "pi":
			err = h.ProcessingInstruction(e.Target, e.Text)
		case "doctype":
			err = h.(DeclHandler).DocumentType(*e.DT)
		case "entity":
			sys, pub, _ := cutString(e.Text, "|")
			err = h.(DeclHandler).UnexpandedEntity(e.Target, sys, pub)
		case "typed":
			err = h.(AlgorithmHandler).AlgorithmData(*e.Value)
		case "alphabet":
			err = h.(AlphabetHandler).AlphabetCharacters(e.Target, []byte(e.Text))
		case "cdata":
			err = h.(CDATAHandler).CDATA([]byte(e.Text))
		default:
			err = fmt.Errorf("unknown event %q", e.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func cutString(s, sep string) (string, string, bool) {
	before, after, found := bytes.Cut([]byte(s), []byte(sep))
	return string(before), string(after), found
}

// encodeEvents encodes events with opts and returns the document octets.
func encodeEvents(t *testing.T, opts EncoderOptions, events []event) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, opts)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := replay(enc, events); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// decodeAll decodes one document from data into h.
func decodeAll(t *testing.T, opts DecoderOptions, data []byte, h Handler) error {
	t.Helper()
	dec, err := NewDecoder(bytes.NewReader(data), opts)
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	return dec.Decode(h)
}

func doc(body ...event) []event {
	events := []event{{Kind: "start-document", Props: &DocumentProperties{}}}
	events = append(events, body...)
	return append(events, event{Kind: "end-document"})
}

func start(name QName, attrs ...Attr) event {
	return event{Kind: "start", Name: name, Attrs: attrs}
}

func end(name QName) event {
	return event{Kind: "end", Name: name}
}

func text(s string) event {
	return event{Kind: "text", Text: s}
}

func local(name string) QName {
	return QName{Local: name}
}
