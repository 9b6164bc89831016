package xmlio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jacoelho/fastinfoset"
)

// Writer writes infoset events as XML text. Typed and alphabet content is
// written in its character rendering.
type Writer struct {
	w           io.Writer
	enc         *xml.Encoder
	pending     []xml.Attr
	attrs       []xml.Attr
	doctype     *fastinfoset.DocumentType
	declaration bool
}

var (
	_ fastinfoset.Handler      = (*Writer)(nil)
	_ fastinfoset.DeclHandler  = (*Writer)(nil)
	_ fastinfoset.CDATAHandler = (*Writer)(nil)
)

// NewWriter returns a writer to w. With declaration set, documents start
// with an XML declaration.
func NewWriter(w io.Writer, declaration bool) *Writer {
	return &Writer{w: w, enc: xml.NewEncoder(w), declaration: declaration}
}

// StartDocument writes the XML declaration when enabled.
func (w *Writer) StartDocument(props fastinfoset.DocumentProperties) error {
	if !w.declaration {
		return nil
	}
	version := props.Version
	if version == "" {
		version = "1.0"
	}
	inst := fmt.Sprintf(`version="%s" encoding="UTF-8"`, version)
	switch props.Standalone {
	case fastinfoset.StandaloneYes:
		inst += ` standalone="yes"`
	case fastinfoset.StandaloneNo:
		inst += ` standalone="no"`
	}
	return w.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(inst)})
}

// EndDocument flushes buffered output.
func (w *Writer) EndDocument() error {
	return w.enc.Flush()
}

// StartPrefixMapping adds a namespace declaration to the next start tag.
func (w *Writer) StartPrefixMapping(prefix, uri string) error {
	name := "xmlns"
	if prefix != "" {
		name += ":" + prefix
	}
	w.pending = append(w.pending, xml.Attr{Name: xml.Name{Local: name}, Value: uri})
	return nil
}

// EndPrefixMapping is a no-op.
func (w *Writer) EndPrefixMapping(string) error {
	return nil
}

// StartElement writes a start tag with the pending namespace declarations.
func (w *Writer) StartElement(name fastinfoset.QName, attrs []fastinfoset.Attr) error {
	if err := w.writeDocumentType(name); err != nil {
		return err
	}
	out := append(w.attrs[:0], w.pending...)
	for _, a := range attrs {
		local := a.Name.String()
		if a.Name.Namespace == fastinfoset.XMLNSNamespace && w.declared(local) {
			continue
		}
		out = append(out, xml.Attr{Name: xml.Name{Local: local}, Value: a.Value})
	}
	w.attrs = out
	w.pending = w.pending[:0]
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name.String()}, Attr: out})
}

func (w *Writer) declared(name string) bool {
	for _, a := range w.pending {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// EndElement writes an end tag.
func (w *Writer) EndElement(name fastinfoset.QName) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name.String()}})
}

// Characters writes escaped character data.
func (w *Writer) Characters(text []byte) error {
	return w.enc.EncodeToken(xml.CharData(text))
}

// CDATA writes a CDATA section, splitting it around "]]>".
func (w *Writer) CDATA(text []byte) error {
	var b strings.Builder
	b.WriteString("<![CDATA[")
	b.WriteString(strings.ReplaceAll(string(text), "]]>", "]]]]><![CDATA[>"))
	b.WriteString("]]>")
	return w.raw(b.String())
}

// Comment writes a comment.
func (w *Writer) Comment(text []byte) error {
	return w.enc.EncodeToken(xml.Comment(text))
}

// ProcessingInstruction writes a processing instruction.
func (w *Writer) ProcessingInstruction(target, data string) error {
	return w.enc.EncodeToken(xml.ProcInst{Target: target, Inst: []byte(data)})
}

// DocumentType holds dt until the root element names it.
func (w *Writer) DocumentType(dt fastinfoset.DocumentType) error {
	w.doctype = &dt
	return nil
}

// UnexpandedEntity writes an entity reference.
func (w *Writer) UnexpandedEntity(name, _, _ string) error {
	return w.raw("&" + name + ";")
}

func (w *Writer) writeDocumentType(root fastinfoset.QName) error {
	if w.doctype == nil {
		return nil
	}
	dt := w.doctype
	w.doctype = nil
	var b bytes.Buffer
	b.WriteString("DOCTYPE ")
	b.WriteString(root.String())
	switch {
	case dt.PublicID != "":
		fmt.Fprintf(&b, ` PUBLIC "%s" "%s"`, dt.PublicID, dt.SystemID)
	case dt.SystemID != "":
		fmt.Fprintf(&b, ` SYSTEM "%s"`, dt.SystemID)
	}
	if len(dt.Instructions) > 0 {
		b.WriteString(" [")
		for _, pi := range dt.Instructions {
			fmt.Fprintf(&b, "<?%s %s?>", pi.Target, pi.Data)
		}
		b.WriteString("]")
	}
	return w.enc.EncodeToken(xml.Directive(b.Bytes()))
}

// raw writes s after the buffered tokens.
func (w *Writer) raw(s string) error {
	if err := w.enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, s)
	return err
}
