package fastinfoset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	fierrors "github.com/jacoelho/fastinfoset/errors"
)

var (
	nsT = "urn:t"
	ax  = QName{Prefix: "a", Namespace: nsT, Local: "x"}
	ay  = QName{Prefix: "a", Namespace: nsT, Local: "y"}
)

func repeatedValueDocument() []event {
	return doc(
		event{Kind: "start-prefix", Target: "a", Text: nsT},
		start(ax),
		start(ay), text("5"), end(ay),
		start(ay), text("5"), end(ay),
		event{Kind: "end-prefix", Target: "a"},
		end(ax),
	)
}

func TestEncodeRepeatedValueUsesIndex(t *testing.T) {
	got := encodeEvents(t, NewEncoderOptions(), repeatedValueDocument())
	want := []byte{
		0xE0, 0x00, 0x00, 0x01, 0x00,
		0x38, 0xCF, 0x00, 'a', 0x04, 'u', 'r', 'n', ':', 't', 0xF0,
		0x3F, 0x81, 0x81, 0x00, 'x',
		0x3F, 0x81, 0x81, 0x00, 'y',
		0x90, '5',
		0xF0,
		0x01, 0xA0,
		0xFF, 0xF0,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded = % X, want % X", got, want)
	}
}

func TestEncodeWithoutDoubleTerminators(t *testing.T) {
	got := encodeEvents(t, NewEncoderOptions().WithDoubleTerminators(false), doc(start(local("r")), end(local("r"))))
	want := []byte{0xE0, 0x00, 0x00, 0x01, 0x00, 0x3C, 0x00, 'r', 0xF0, 0xF0}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded = % X, want % X", got, want)
	}

	got = encodeEvents(t, NewEncoderOptions(), doc(start(local("r")), end(local("r"))))
	want = []byte{0xE0, 0x00, 0x00, 0x01, 0x00, 0x3C, 0x00, 'r', 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded = % X, want % X", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	item := QName{Prefix: "p", Namespace: "urn:p", Local: "item"}
	tests := []struct {
		name   string
		opts   EncoderOptions
		events []event
	}{
		{
			name:   "repeated values",
			events: repeatedValueDocument(),
		},
		{
			name: "attributes and text",
			events: doc(
				start(local("root"), Attr{Name: local("id"), Value: "1"}, Attr{Name: local("empty")}),
				text("hello"),
				start(local("leaf"), Attr{Name: local("id"), Value: "1"}),
				end(local("leaf")),
				text(strings.Repeat("long text ", 10)),
				end(local("root")),
			),
		},
		{
			name: "nested namespaces",
			events: doc(
				event{Kind: "start-prefix", Target: "", Text: "urn:default"},
				start(QName{Namespace: "urn:default", Local: "root"}),
				event{Kind: "start-prefix", Target: "p", Text: "urn:p"},
				start(item, Attr{Name: QName{Prefix: "p", Namespace: "urn:p", Local: "k"}, Value: "v"}),
				event{Kind: "end-prefix", Target: "p"},
				end(item),
				event{Kind: "start-prefix", Target: "p", Text: "urn:p"},
				start(item),
				event{Kind: "end-prefix", Target: "p"},
				end(item),
				event{Kind: "end-prefix", Target: ""},
				end(QName{Namespace: "urn:default", Local: "root"}),
			),
		},
		{
			name: "prolog and epilog",
			events: doc(
				event{Kind: "doctype", DT: &DocumentType{
					SystemID:     "doc.dtd",
					PublicID:     "-//T//DTD//EN",
					Instructions: []ProcessingInstruction{{Target: "dtd", Data: "x"}},
				}},
				event{Kind: "comment", Text: " before "},
				event{Kind: "pi", Target: "style", Text: "href='a.css'"},
				start(local("r")),
				event{Kind: "comment", Text: "inside"},
				event{Kind: "pi", Target: "style", Text: ""},
				event{Kind: "entity", Target: "ent", Text: "ent.xml|"},
				end(local("r")),
				event{Kind: "comment", Text: " before "},
			),
		},
		{
			name: "utf16 literals",
			opts: NewEncoderOptions().WithUTF16(true),
			events: doc(
				start(local("r"), Attr{Name: local("a"), Value: "ünï"}),
				text("héllo 𝄞"),
				text("héllo 𝄞"),
				end(local("r")),
			),
		},
		{
			name: "xml declaration",
			opts: NewEncoderOptions().WithXMLDeclaration(true),
			events: []event{
				{Kind: "start-document", Props: &DocumentProperties{Version: "1.0", Standalone: StandaloneYes}},
				start(local("r")), end(local("r")),
				{Kind: "end-document"},
			},
		},
		{
			name: "document properties",
			events: []event{
				{Kind: "start-document", Props: &DocumentProperties{
					AdditionalData:          []AdditionalData{{ID: "urn:extra", Data: []byte{1, 2, 3}}},
					Notations:               []Notation{{Name: "gif", SystemID: "image/gif"}, {Name: "png", PublicID: "-//PNG"}},
					UnparsedEntities:        []UnparsedEntity{{Name: "logo", SystemID: "logo.gif", Notation: "gif"}},
					CharacterEncodingScheme: "UTF-8",
					Version:                 "1.1",
					Standalone:              StandaloneNo,
				}},
				start(local("r")), end(local("r")),
				{Kind: "end-document"},
			},
		},
		{
			name: "without double terminators",
			opts: NewEncoderOptions().WithDoubleTerminators(false),
			events: doc(
				start(local("a")), start(local("b"), Attr{Name: local("c"), Value: "d"}), end(local("b")), end(local("a")),
			),
		},
		{
			name: "small index limits",
			opts: NewEncoderOptions().WithAttributeValueSizeLimit(1).WithCharacterChunkSizeLimit(1),
			events: doc(
				start(local("r"), Attr{Name: local("a"), Value: "v"}),
				text("t"), text("t"),
				start(local("r"), Attr{Name: local("a"), Value: "v"}), end(local("r")),
				end(local("r")),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeEvents(t, tt.opts, tt.events)
			var rec recorder
			if err := decodeAll(t, NewDecoderOptions(), data, &rec); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.events, rec.events); diff != "" {
				t.Fatalf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	events := repeatedValueDocument()
	first := encodeEvents(t, NewEncoderOptions(), events)
	second := encodeEvents(t, NewEncoderOptions(), events)
	if !bytes.Equal(first, second) {
		t.Fatalf("encodings differ:\n% X\n% X", first, second)
	}
}

func TestEncoderReusesStateAcrossDocuments(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, NewEncoderOptions())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	events := repeatedValueDocument()
	for range 2 {
		if err := replay(enc, events); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	single := encodeEvents(t, NewEncoderOptions(), events)
	if got := buf.Bytes(); !bytes.Equal(got[:len(single)], single) || !bytes.Equal(got[len(single):], single) {
		t.Fatalf("stream = % X, want two copies of % X", got, single)
	}
	if enc.Written() != int64(2*len(single)) {
		t.Fatalf("Written() = %d, want %d", enc.Written(), 2*len(single))
	}

	dec, err := NewDecoder(bytes.NewReader(buf.Bytes()), NewDecoderOptions())
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	for i := range 2 {
		var rec recorder
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("Decode() #%d error = %v", i, err)
		}
		if diff := cmp.Diff(events, rec.events); diff != "" {
			t.Fatalf("document %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if err := dec.Decode(nil); err != io.EOF {
		t.Fatalf("Decode() at end = %v, want io.EOF", err)
	}
	if dec.InputOffset() != int64(buf.Len()) {
		t.Fatalf("InputOffset() = %d, want %d", dec.InputOffset(), buf.Len())
	}
}

func TestTypedContentRoundTrip(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	typed := func(alg int, data any) event {
		return event{Kind: "typed", Value: &Value{Algorithm: alg, Data: data}}
	}
	events := doc(
		start(local("r")),
		typed(AlgorithmHexadecimal, []byte{0xCA, 0xFE}),
		typed(AlgorithmBase64, []byte("hi!")),
		typed(AlgorithmShort, []int16{-1, 2}),
		typed(AlgorithmInt, []int32{1, 2, 3}),
		typed(AlgorithmLong, []int64{-9}),
		typed(AlgorithmBoolean, []bool{true, false, true}),
		typed(AlgorithmFloat, []float32{1.5}),
		typed(AlgorithmDouble, []float64{-0.25}),
		typed(AlgorithmUUID, []uuid.UUID{id}),
		event{Kind: "cdata", Text: "<raw>"},
		event{Kind: "alphabet", Target: NumericAlphabet, Text: "3.14"},
		end(local("r")),
	)
	data := encodeEvents(t, NewEncoderOptions(), events)

	var typedRec typedRecorder
	if err := decodeAll(t, NewDecoderOptions(), data, &typedRec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(events, typedRec.events); diff != "" {
		t.Fatalf("typed events mismatch (-want +got):\n%s", diff)
	}

	var rec recorder
	if err := decodeAll(t, NewDecoderOptions(), data, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := doc(
		start(local("r")),
		text("CAFE"),
		text("aGkh"),
		text("-1 2"),
		text("1 2 3"),
		text("-9"),
		text("true false true"),
		text("1.5E+00"),
		text("-2.5E-01"),
		text(id.String()),
		text("<raw>"),
		text("3.14"),
		end(local("r")),
	)
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("text events mismatch (-want +got):\n%s", diff)
	}
}

func TestNumericDetection(t *testing.T) {
	events := doc(start(local("r")), text("abc"), text("12345"), text("12345"), end(local("r")))
	plain := encodeEvents(t, NewEncoderOptions(), events)
	packed := encodeEvents(t, NewEncoderOptions().WithNumericDetection(true), events)
	if len(packed) >= len(plain) {
		t.Fatalf("numeric detection did not shrink output: %d >= %d", len(packed), len(plain))
	}
	var rec typedRecorder
	if err := decodeAll(t, NewDecoderOptions(), packed, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := doc(
		start(local("r")),
		text("abc"),
		event{Kind: "alphabet", Target: NumericAlphabet, Text: "12345"},
		text("12345"),
		end(local("r")),
	)
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestApplicationAlphabet(t *testing.T) {
	const chars = "ab"
	events := doc(
		start(local("r"), Attr{Name: local("k"), Value: "abba", Alphabet: chars}),
		event{Kind: "alphabet", Target: chars, Text: "baab"},
		end(local("r")),
	)
	data := encodeEvents(t, NewEncoderOptions().WithAlphabets(chars), events)
	var rec typedRecorder
	if err := decodeAll(t, NewDecoderOptions(), data, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(events, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

// upperAlgorithm stores strings as UTF-8 and renders them in upper case.
type upperAlgorithm struct{}

func (upperAlgorithm) Decode(octets []byte) (any, error) {
	return string(octets), nil
}

func (upperAlgorithm) Append(dst []byte, v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("upper: unexpected %T", v)
	}
	return append(dst, s...), nil
}

func (upperAlgorithm) AppendText(dst []byte, v any) ([]byte, error) {
	return append(dst, strings.ToUpper(v.(string))...), nil
}

// opaqueAlgorithm has no character rendering.
type opaqueAlgorithm struct{}

func (opaqueAlgorithm) Decode(octets []byte) (any, error) {
	return len(octets), nil
}

func (opaqueAlgorithm) Append(dst []byte, v any) ([]byte, error) {
	return append(dst, make([]byte, v.(int))...), nil
}

func TestApplicationAlgorithm(t *testing.T) {
	const uri = "urn:example:upper"
	algs := Algorithms{uri: upperAlgorithm{}}
	events := doc(
		start(local("r"), Attr{Name: local("k"), Encoded: &Value{URI: uri, Data: "attr"}}),
		event{Kind: "typed", Value: &Value{URI: uri, Data: "text"}},
		end(local("r")),
	)
	data := encodeEvents(t, NewEncoderOptions().WithAlgorithms(algs), events)

	t.Run("algorithm handler", func(t *testing.T) {
		var rec typedRecorder
		if err := decodeAll(t, NewDecoderOptions().WithAlgorithms(algs), data, &rec); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		want := doc(
			start(local("r"), Attr{
				Name:    local("k"),
				Value:   "ATTR",
				Encoded: &Value{Algorithm: FirstApplicationAlgorithm, URI: uri, Data: "attr"},
			}),
			event{Kind: "typed", Value: &Value{Algorithm: FirstApplicationAlgorithm, URI: uri, Data: "text"}},
			end(local("r")),
		)
		if diff := cmp.Diff(want, rec.events); diff != "" {
			t.Fatalf("events mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("text rendering", func(t *testing.T) {
		var rec recorder
		if err := decodeAll(t, NewDecoderOptions().WithAlgorithms(algs), data, &rec); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got := rec.events[2]; got.Kind != "text" || got.Text != "TEXT" {
			t.Fatalf("event = %+v, want text TEXT", got)
		}
	})

	t.Run("unregistered raw octets", func(t *testing.T) {
		var rec typedRecorder
		if err := decodeAll(t, NewDecoderOptions(), data, &rec); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		got := rec.events[2].Value
		want := &Value{Algorithm: FirstApplicationAlgorithm, URI: uri, Data: []byte("text")}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unresolved", func(t *testing.T) {
		var rec recorder
		err := decodeAll(t, NewDecoderOptions(), data, &rec)
		if !errors.Is(err, fierrors.ErrUnsupportedAlgorithm) {
			t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrUnsupportedAlgorithm)
		}
		if !errors.Is(rec.fatal, fierrors.ErrUnsupportedAlgorithm) {
			t.Fatalf("FatalError() got %v", rec.fatal)
		}
	})

	t.Run("no rendering", func(t *testing.T) {
		opaque := Algorithms{uri: opaqueAlgorithm{}}
		var rec recorder
		err := decodeAll(t, NewDecoderOptions().WithAlgorithms(opaque), data, &rec)
		if !errors.Is(err, fierrors.ErrUnsupportedAlgorithm) {
			t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrUnsupportedAlgorithm)
		}
	})

	attrOnly := encodeEvents(t, NewEncoderOptions().WithAlgorithms(algs), doc(
		start(local("r"), Attr{Name: local("k"), Encoded: &Value{URI: uri, Data: "attr"}}),
		end(local("r")),
	))
	attrTests := []struct {
		name string
		opts DecoderOptions
	}{
		{"attribute without algorithm", NewDecoderOptions()},
		{"attribute without rendering", NewDecoderOptions().WithAlgorithms(Algorithms{uri: opaqueAlgorithm{}})},
	}
	for _, tt := range attrTests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder
			err := decodeAll(t, tt.opts, attrOnly, &rec)
			if !errors.Is(err, fierrors.ErrUnsupportedAlgorithm) {
				t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrUnsupportedAlgorithm)
			}
			for _, e := range rec.events {
				if e.Kind == "start" {
					t.Fatalf("StartElement() called with %+v", e.Attrs)
				}
			}
		})
	}

	t.Run("attribute with algorithm handler", func(t *testing.T) {
		var rec typedRecorder
		if err := decodeAll(t, NewDecoderOptions(), attrOnly, &rec); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		want := &Value{Algorithm: FirstApplicationAlgorithm, URI: uri, Data: []byte("attr")}
		if diff := cmp.Diff(want, rec.events[1].Attrs[0].Encoded); diff != "" {
			t.Fatalf("attribute value mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExternalVocabulary(t *testing.T) {
	ext, err := NewExternalVocabulary("urn:example:vocab", Vocabulary{
		ElementNames:    []QName{local("root"), local("item")},
		AttributeNames:  []QName{local("id")},
		CharacterChunks: []string{"shared"},
	})
	if err != nil {
		t.Fatalf("NewExternalVocabulary() error = %v", err)
	}
	events := []event{
		{Kind: "start-document", Props: &DocumentProperties{ExternalVocabulary: ext.URI()}},
		start(local("root")),
		start(local("item"), Attr{Name: local("id"), Value: "1"}),
		text("shared"),
		end(local("item")),
		end(local("root")),
		{Kind: "end-document"},
	}
	data := encodeEvents(t, NewEncoderOptions().WithExternalVocabulary(ext), events)
	plain := encodeEvents(t, NewEncoderOptions(), doc(events[1:len(events)-1]...))
	if len(data) >= len(plain)+len(ext.URI())+4 {
		t.Fatalf("external vocabulary did not shrink body: %d vs %d", len(data), len(plain))
	}

	var rec recorder
	if err := decodeAll(t, NewDecoderOptions().WithExternalVocabulary(ext), data, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(events, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	err = decodeAll(t, NewDecoderOptions(), data, &recorder{})
	if !errors.Is(err, fierrors.ErrUnknownVocabulary) {
		t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrUnknownVocabulary)
	}
}

func TestInitialVocabulary(t *testing.T) {
	v := Vocabulary{
		Prefixes:        []string{"a"},
		NamespaceNames:  []string{nsT},
		ElementNames:    []QName{ax, ay},
		AttributeValues: []string{"yes"},
		OtherStrings:    []string{"note"},
	}
	events := doc(
		event{Kind: "start-prefix", Target: "a", Text: nsT},
		start(ax),
		start(ay, Attr{Name: local("flag"), Value: "yes"}),
		event{Kind: "comment", Text: "note"},
		end(ay),
		event{Kind: "end-prefix", Target: "a"},
		end(ax),
	)
	data := encodeEvents(t, NewEncoderOptions().WithInitialVocabulary(v), events)
	var rec recorder
	if err := decodeAll(t, NewDecoderOptions(), data, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(events, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if data[4]&0x20 == 0 {
		t.Fatalf("properties = 0x%02X, want initial vocabulary flag", data[4])
	}
}

func TestNamespaceAttributes(t *testing.T) {
	data := encodeEvents(t, NewEncoderOptions(), doc(
		start(ax, Attr{Name: QName{Prefix: "xmlns", Local: "a"}, Value: nsT}),
		end(ax),
	))
	var rec recorder
	if err := decodeAll(t, NewDecoderOptions().WithNamespaceAttributes(true), data, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := doc(
		event{Kind: "start-prefix", Target: "a", Text: nsT},
		start(ax, Attr{Name: QName{Prefix: "xmlns", Namespace: XMLNSNamespace, Local: "a"}, Value: nsT}),
		event{Kind: "end-prefix", Target: "a"},
		end(ax),
	)
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEncoderErrors(t *testing.T) {
	r := local("r")
	tests := []struct {
		name   string
		opts   EncoderOptions
		events []event
		code   fierrors.ErrorCode
	}{
		{
			name:   "duplicate attribute",
			events: doc(start(r, Attr{Name: local("a"), Value: "1"}, Attr{Name: local("a"), Value: "2"})),
			code:   fierrors.ErrDuplicateAttribute,
		},
		{
			name:   "undeclared prefix",
			events: doc(start(ax)),
			code:   fierrors.ErrNotInScope,
		},
		{
			name:   "namespace without prefix on attribute",
			events: doc(start(r, Attr{Name: QName{Namespace: nsT, Local: "a"}})),
			code:   fierrors.ErrNotInScope,
		},
		{
			name:   "mismatched end",
			events: doc(start(r), end(local("other"))),
			code:   fierrors.ErrInvalidEvent,
		},
		{
			name:   "open elements at end",
			events: doc(start(r)),
			code:   fierrors.ErrDocumentStructure,
		},
		{
			name:   "two roots",
			events: doc(start(r), end(r), start(r)),
			code:   fierrors.ErrDocumentStructure,
		},
		{
			name:   "text outside root",
			events: doc(text("x")),
			code:   fierrors.ErrDocumentStructure,
		},
		{
			name:   "late document type",
			events: doc(start(r), end(r), event{Kind: "doctype", DT: &DocumentType{}}),
			code:   fierrors.ErrDuplicateDocumentType,
		},
		{
			name:   "reserved algorithm",
			events: doc(start(r), event{Kind: "typed", Value: &Value{Algorithm: 10, Data: []byte{0}}}),
			code:   fierrors.ErrReservedAlgorithm,
		},
		{
			name:   "unknown algorithm uri",
			events: doc(start(r), event{Kind: "typed", Value: &Value{URI: "urn:missing", Data: []byte{0}}}),
			code:   fierrors.ErrUnsupportedAlgorithm,
		},
		{
			name:   "unregistered alphabet",
			events: doc(start(r), event{Kind: "alphabet", Target: "xyz", Text: "x"}),
			code:   fierrors.ErrAlphabetData,
		},
		{
			name:   "character outside alphabet",
			events: doc(start(r), event{Kind: "alphabet", Target: NumericAlphabet, Text: "12a"}),
			code:   fierrors.ErrAlphabetData,
		},
		{
			name:   "invalid utf-8",
			events: doc(start(r), text("\xff")),
			code:   fierrors.ErrInvalidUTF8,
		},
		{
			name:   "event before start",
			events: []event{start(r)},
			code:   fierrors.ErrInvalidEvent,
		},
		{
			name:   "cdata attribute value",
			events: doc(start(r, Attr{Name: local("k"), Encoded: &Value{Algorithm: AlgorithmCDATA, Data: []byte("x")}})),
			code:   fierrors.ErrUnsupportedAlgorithm,
		},
		{
			name: "prefix declared twice",
			events: doc(
				event{Kind: "start-prefix", Target: "a", Text: nsT},
				event{Kind: "start-prefix", Target: "a", Text: "urn:other"},
				start(ax),
			),
			code: fierrors.ErrDuplicateAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder(io.Discard, tt.opts)
			if err != nil {
				t.Fatalf("NewEncoder() error = %v", err)
			}
			err = replay(enc, tt.events)
			if !errors.Is(err, tt.code) {
				t.Fatalf("encode error = %v, want %v", err, tt.code)
			}
			// the encoder is ready for a new document after a failure
			if err := replay(enc, doc(start(r), end(r))); err != nil {
				t.Fatalf("encode after failure: %v", err)
			}
		})
	}
}

func TestEncoderCDATAIndexed(t *testing.T) {
	enc, err := NewEncoder(io.Discard, NewEncoderOptions())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := replay(enc, []event{{Kind: "start-document"}, start(local("r"))}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	err = enc.WriteCharacters([]byte("x"), CharacterOptions{CDATA: true, Index: true})
	if !errors.Is(err, fierrors.ErrCDATAIndexed) {
		t.Fatalf("WriteCharacters() error = %v, want %v", err, fierrors.ErrCDATAIndexed)
	}
}

func TestEncoderForcedIndex(t *testing.T) {
	long := strings.Repeat("z", 100)
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, NewEncoderOptions())
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	if err := replay(enc, []event{{Kind: "start-document"}, start(local("r"))}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	for range 2 {
		if err := enc.WriteCharacters([]byte(long), CharacterOptions{Index: true}); err != nil {
			t.Fatalf("WriteCharacters() error = %v", err)
		}
	}
	if err := replay(enc, []event{end(local("r")), {Kind: "end-document"}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := bytes.Count(buf.Bytes(), []byte(long)); got != 1 {
		t.Fatalf("literal occurrences = %d, want 1", got)
	}
}

func withHeader(body ...byte) []byte {
	return append([]byte{0xE0, 0x00, 0x00, 0x01, 0x00}, body...)
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		opts  DecoderOptions
		code  fierrors.ErrorCode
	}{
		{
			name:  "bad header",
			input: []byte{0xE0, 0x00, 0x00, 0x02, 0x00},
			code:  fierrors.ErrBadHeader,
		},
		{
			name:  "declaration without finf",
			input: append([]byte("<?xml encoding='utf-8'?>"), withHeader(0x3C, 0x00, 'r', 0xFF)...),
			code:  fierrors.ErrBadHeader,
		},
		{
			name:  "truncated",
			input: withHeader(0x3C, 0x00),
			code:  fierrors.ErrTruncated,
		},
		{
			name:  "duplicate attribute",
			input: withHeader(0x7C, 0x00, 'e', 0x78, 0x00, 'a', 0x00, '1', 0x00, 0x00, '2', 0xFF, 0xF0),
			code:  fierrors.ErrDuplicateAttribute,
		},
		{
			name:  "undeclared prefix",
			input: withHeader(0x3F, 0x00, 'p', 0x04, 'u', 'r', 'n', ':', 't', 0x00, 'e', 0xFF),
			code:  fierrors.ErrNotInScope,
		},
		{
			name:  "reserved algorithm",
			input: withHeader(0x3C, 0x00, 'e', 0x8C, 0x28, 0x00, 0xFF),
			code:  fierrors.ErrReservedAlgorithm,
		},
		{
			name:  "application algorithm without vocabulary",
			input: withHeader(0x3C, 0x00, 'e', 0x8C, 0x80, 0x00, 0xFF),
			code:  fierrors.ErrUnsupportedAlgorithm,
		},
		{
			name:  "reserved alphabet",
			input: withHeader(0x3C, 0x00, 'e', 0x88, 0x08, 0x00, 0xFF),
			code:  fierrors.ErrReservedAlphabet,
		},
		{
			name:  "element index out of range",
			input: withHeader(0x05, 0xFF),
			code:  fierrors.ErrIndexOutOfRange,
		},
		{
			name:  "chunk index out of range",
			input: withHeader(0x3C, 0x00, 'e', 0xA0, 0xFF),
			code:  fierrors.ErrIndexOutOfRange,
		},
		{
			name:  "duplicate document type",
			input: withHeader(0xC4, 0xF0, 0xC4, 0xF0),
			code:  fierrors.ErrDuplicateDocumentType,
		},
		{
			name:  "double terminator in document type",
			input: withHeader(0xC4, 0xFF),
			code:  fierrors.ErrIllegalOctet,
		},
		{
			name:  "document without root",
			input: withHeader(0xF0),
			code:  fierrors.ErrDocumentStructure,
		},
		{
			name:  "invalid utf-8 chunk",
			input: withHeader(0x3C, 0x00, 'e', 0x80, 0xFF, 0xFF),
			code:  fierrors.ErrInvalidUTF8,
		},
		{
			name:  "cdata attribute value",
			input: withHeader(0x7C, 0x00, 'e', 0x78, 0x00, 'a', 0x30, 0x90, 'x', 0xFF, 0xF0),
			code:  fierrors.ErrUnsupportedAlgorithm,
		},
		{
			name: "prefix declared twice",
			input: withHeader(0x38,
				0xCF, 0x00, 'a', 0x04, 'u', 'r', 'n', ':', 't',
				0xCF, 0x81, 0x81,
				0xF0, 0x3F, 0x81, 0x81, 0x00, 'x', 0xFF),
			code: fierrors.ErrDuplicateAttribute,
		},
		{
			name:  "max depth",
			input: withHeader(0x3C, 0x00, 'a', 0x00, 0x00, 0xFF, 0xF0),
			opts:  NewDecoderOptions().WithMaxDepth(2),
			code:  fierrors.ErrMaxDepth,
		},
		{
			name:  "octet string limit",
			input: withHeader(0x3C, 0x00, 'e', 0x82, 0x02, 'a', 'b', 'c', 'd', 'e', 0xFF),
			opts:  NewDecoderOptions().WithMaxOctetStringLength(4),
			code:  fierrors.ErrLengthOverflow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder
			err := decodeAll(t, tt.opts, tt.input, &rec)
			if !errors.Is(err, tt.code) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.code)
			}
			if !errors.Is(rec.fatal, tt.code) {
				t.Fatalf("FatalError() got %v, want %v", rec.fatal, tt.code)
			}
			ce, ok := fierrors.As(err)
			if !ok {
				t.Fatalf("Decode() error %T is not a codec error", err)
			}
			if ce.Offset < 0 || ce.Offset > int64(len(tt.input)) {
				t.Fatalf("error offset = %d, want within [0, %d]", ce.Offset, len(tt.input))
			}
		})
	}
}

func TestDecodeDoubleTerminatorClosesAttributesAndElement(t *testing.T) {
	input := withHeader(0x7C, 0x00, 'e', 0x78, 0x00, 'a', 0x00, '1', 0xFF, 0xF0)
	var rec recorder
	if err := decodeAll(t, NewDecoderOptions(), input, &rec); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := doc(start(local("e"), Attr{Name: local("a"), Value: "1"}), end(local("e")))
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

// failingHandler rejects the first element.
type failingHandler struct {
	recorder
}

var errRejected = errors.New("rejected")

func (h *failingHandler) StartElement(QName, []Attr) error {
	return errRejected
}

func TestDecodeHandlerError(t *testing.T) {
	data := encodeEvents(t, NewEncoderOptions(), doc(start(local("r")), end(local("r"))))
	var h failingHandler
	err := decodeAll(t, NewDecoderOptions(), data, &h)
	if !errors.Is(err, fierrors.ErrHandler) || !errors.Is(err, errRejected) {
		t.Fatalf("Decode() error = %v, want handler error wrapping %v", err, errRejected)
	}
}

func TestDecoderReset(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader(withHeader(0x3C)), NewDecoderOptions())
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	if err := dec.Decode(nil); !errors.Is(err, fierrors.ErrTruncated) {
		t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrTruncated)
	}
	dec.Reset(bytes.NewReader(encodeEvents(t, NewEncoderOptions(), doc(start(local("r")), end(local("r"))))))
	var rec recorder
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("Decode() after Reset error = %v", err)
	}
	if len(rec.events) != 4 {
		t.Fatalf("events = %d, want 4", len(rec.events))
	}
}

func TestDecoderResetDropsAttributes(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader(withHeader(0x7C, 0x00, 'e', 0x78, 0x00, 'a', 0x00, '1', 0xF0)), NewDecoderOptions())
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	if err := dec.Decode(nil); !errors.Is(err, fierrors.ErrTruncated) {
		t.Fatalf("Decode() error = %v, want %v", err, fierrors.ErrTruncated)
	}
	if len(dec.attrs) != 0 {
		t.Fatalf("attributes after failure = %+v, want none", dec.attrs)
	}
	dec.Reset(bytes.NewReader(encodeEvents(t, NewEncoderOptions(), doc(start(local("r")), end(local("r"))))))
	var rec recorder
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("Decode() after Reset error = %v", err)
	}
	if got := rec.events[1]; got.Kind != "start" || len(got.Attrs) != 0 {
		t.Fatalf("start event = %+v, want no attributes", got)
	}
}
