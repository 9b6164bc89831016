package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/jacoelho/fastinfoset"
)

// record is one dumped event.
type record struct {
	Kind       string       `json:"kind" cbor:"kind"`
	Name       string       `json:"name,omitempty" cbor:"name,omitempty"`
	Namespace  string       `json:"namespace,omitempty" cbor:"namespace,omitempty"`
	Text       string       `json:"text,omitempty" cbor:"text,omitempty"`
	Attrs      []recordAttr `json:"attrs,omitempty" cbor:"attrs,omitempty"`
	Alphabet   string       `json:"alphabet,omitempty" cbor:"alphabet,omitempty"`
	URI        string       `json:"uri,omitempty" cbor:"uri,omitempty"`
	Data       any          `json:"data,omitempty" cbor:"data,omitempty"`
	Algorithm  int          `json:"algorithm,omitempty" cbor:"algorithm,omitempty"`
	Standalone string       `json:"standalone,omitempty" cbor:"standalone,omitempty"`
}

type recordAttr struct {
	Name      string `json:"name" cbor:"name"`
	Namespace string `json:"namespace,omitempty" cbor:"namespace,omitempty"`
	Value     string `json:"value" cbor:"value"`
}

func (r record) String() string {
	var b strings.Builder
	b.WriteString(r.Kind)
	if r.Name != "" {
		b.WriteByte(' ')
		if r.Namespace != "" {
			b.WriteString("{" + r.Namespace + "}")
		}
		b.WriteString(r.Name)
	} else if r.Namespace != "" {
		b.WriteString(" " + r.Namespace)
	}
	for _, a := range r.Attrs {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString("{" + a.Namespace + "}")
		}
		b.WriteString(a.Name + "=" + strconv.Quote(a.Value))
	}
	if r.Standalone != "" {
		b.WriteString(" standalone=" + r.Standalone)
	}
	if r.Alphabet != "" {
		b.WriteString(" [" + r.Alphabet + "]")
	}
	if r.URI != "" {
		b.WriteString(" " + r.URI)
	}
	if r.Data != nil {
		fmt.Fprintf(&b, " %s=%v", fastinfoset.AlgorithmName(r.Algorithm), r.Data)
	}
	if r.Text != "" {
		b.WriteString(" " + strconv.Quote(r.Text))
	}
	return b.String()
}

// dumper turns decoder events into records.
type dumper struct {
	emit func(record) error
}

var (
	_ fastinfoset.Handler          = (*dumper)(nil)
	_ fastinfoset.DeclHandler      = (*dumper)(nil)
	_ fastinfoset.AlphabetHandler  = (*dumper)(nil)
	_ fastinfoset.AlgorithmHandler = (*dumper)(nil)
	_ fastinfoset.CDATAHandler     = (*dumper)(nil)
	_ fastinfoset.PrimitiveHandler = (*typedDumper)(nil)
)

func (d *dumper) StartDocument(props fastinfoset.DocumentProperties) error {
	r := record{Kind: "start-document", Text: props.Version, URI: props.ExternalVocabulary}
	switch props.Standalone {
	case fastinfoset.StandaloneYes:
		r.Standalone = "yes"
	case fastinfoset.StandaloneNo:
		r.Standalone = "no"
	}
	return d.emit(r)
}

func (d *dumper) EndDocument() error {
	return d.emit(record{Kind: "end-document"})
}

func (d *dumper) StartPrefixMapping(prefix, uri string) error {
	return d.emit(record{Kind: "start-prefix", Name: prefix, URI: uri})
}

func (d *dumper) EndPrefixMapping(prefix string) error {
	return d.emit(record{Kind: "end-prefix", Name: prefix})
}

func (d *dumper) StartElement(name fastinfoset.QName, attrs []fastinfoset.Attr) error {
	r := record{Kind: "start-element", Name: name.String(), Namespace: name.Namespace}
	for _, a := range attrs {
		r.Attrs = append(r.Attrs, recordAttr{Name: a.Name.String(), Namespace: a.Name.Namespace, Value: a.Value})
	}
	return d.emit(r)
}

func (d *dumper) EndElement(name fastinfoset.QName) error {
	return d.emit(record{Kind: "end-element", Name: name.String(), Namespace: name.Namespace})
}

func (d *dumper) Characters(text []byte) error {
	return d.emit(record{Kind: "characters", Text: string(text)})
}

func (d *dumper) AlphabetCharacters(alphabet string, text []byte) error {
	return d.emit(record{Kind: "characters", Alphabet: alphabet, Text: string(text)})
}

func (d *dumper) CDATA(text []byte) error {
	return d.emit(record{Kind: "cdata", Text: string(text)})
}

func (d *dumper) AlgorithmData(v fastinfoset.Value) error {
	return d.emit(record{Kind: "algorithm", Algorithm: v.Algorithm, URI: v.URI, Data: v.Data})
}

func (d *dumper) Comment(text []byte) error {
	return d.emit(record{Kind: "comment", Text: string(text)})
}

func (d *dumper) ProcessingInstruction(target, data string) error {
	return d.emit(record{Kind: "processing-instruction", Name: target, Text: data})
}

func (d *dumper) DocumentType(dt fastinfoset.DocumentType) error {
	return d.emit(record{Kind: "document-type", Text: dt.PublicID, URI: dt.SystemID})
}

func (d *dumper) UnexpandedEntity(name, systemID, _ string) error {
	return d.emit(record{Kind: "entity", Name: name, URI: systemID})
}

// typedDumper also records built-in algorithm values as typed data.
type typedDumper struct {
	*dumper
}

func (d typedDumper) typed(id int, data any) error {
	return d.emit(record{Kind: "typed", Algorithm: id, Data: data})
}

func (d typedDumper) Octets(id int, data []byte) error { return d.typed(id, data) }
func (d typedDumper) Shorts(v []int16) error           { return d.typed(fastinfoset.AlgorithmShort, v) }
func (d typedDumper) Ints(v []int32) error             { return d.typed(fastinfoset.AlgorithmInt, v) }
func (d typedDumper) Longs(v []int64) error            { return d.typed(fastinfoset.AlgorithmLong, v) }
func (d typedDumper) Booleans(v []bool) error          { return d.typed(fastinfoset.AlgorithmBoolean, v) }
func (d typedDumper) Floats(v []float32) error         { return d.typed(fastinfoset.AlgorithmFloat, v) }
func (d typedDumper) Doubles(v []float64) error        { return d.typed(fastinfoset.AlgorithmDouble, v) }
func (d typedDumper) UUIDs(v []uuid.UUID) error        { return d.typed(fastinfoset.AlgorithmUUID, v) }

var dumpEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fitool: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

// newDumpHandler returns a handler writing records to w in format.
// Only the cbor format carries typed values; the others use their
// character rendering.
func newDumpHandler(w io.Writer, format string) (fastinfoset.Handler, error) {
	switch format {
	case "text":
		return &dumper{emit: func(r record) error {
			_, err := fmt.Fprintln(w, r)
			return err
		}}, nil
	case "json":
		enc := json.NewEncoder(w)
		return &dumper{emit: func(r record) error { return enc.Encode(r) }}, nil
	case "cbor":
		enc := dumpEncMode.NewEncoder(w)
		return typedDumper{&dumper{emit: func(r record) error { return enc.Encode(r) }}}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or cbor)", format)
	}
}

func runDump(e *env, args []string) int {
	var (
		c         common
		format    string
		vocabPath string
		vocabURI  string
	)
	fs := newFlagSet(e, "dump", "[options] [file.finf...]", &c)
	fs.StringVarP(&format, "format", "f", "text", "output format: text, json or cbor")
	fs.StringVar(&vocabPath, "vocab", "", "YAML external vocabulary")
	fs.StringVar(&vocabURI, "vocab-uri", "", "URI of the external vocabulary (default derived from its fingerprint)")
	stop, code := c.parse(e, fs, args)
	if code != 0 {
		return code
	}
	defer stop()

	ext, err := loadVocabulary(vocabPath, vocabURI)
	if err != nil {
		return fail(e, err)
	}
	out := bufio.NewWriter(e.stdout)
	h, err := newDumpHandler(out, format)
	if err != nil {
		return fail(e, err)
	}
	opts := fastinfoset.NewDecoderOptions().WithExternalVocabulary(ext).WithLogger(e.logger)
	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, path := range inputs {
		if err := dumpFile(e, path, h, opts); err != nil {
			_ = out.Flush()
			return fail(e, fmt.Errorf("%s: %w", path, err))
		}
	}
	if err := out.Flush(); err != nil {
		return fail(e, err)
	}
	return 0
}

func dumpFile(e *env, path string, h fastinfoset.Handler, opts fastinfoset.DecoderOptions) error {
	in := e.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	dec, err := fastinfoset.NewDecoder(in, opts)
	if err != nil {
		return err
	}
	for {
		if err := dec.Decode(h); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
