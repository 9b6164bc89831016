// Package xmlio converts between XML text and the infoset events of the
// fastinfoset package.
package xmlio

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacoelho/fastinfoset"
	"github.com/jacoelho/fastinfoset/internal/scope"
)

var (
	errNoRoot        = errors.New("xml: document has no root element")
	errMultipleRoots = errors.New("xml: element after the root element")
	errTextOutside   = errors.New("xml: character data outside the root element")
)

type reader struct {
	dec     *xml.Decoder
	h       fastinfoset.Handler
	decl    fastinfoset.DeclHandler
	scope   scope.Tracker
	stack   []fastinfoset.QName
	attrs   []fastinfoset.Attr
	props   fastinfoset.DocumentProperties
	started bool
	root    bool
}

// Read parses one XML document from r and reports it to h. Namespace
// declarations are reported as prefix mappings, not attributes. Internal
// DTD subsets are not reported.
func Read(r io.Reader, h fastinfoset.Handler) error {
	rd := &reader{dec: xml.NewDecoder(r), h: h}
	rd.dec.Strict = true
	rd.decl, _ = h.(fastinfoset.DeclHandler)
	return rd.run()
}

func (r *reader) run() error {
	for {
		tok, err := r.dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := r.token(tok); err != nil {
			return r.positioned(err)
		}
	}
	if len(r.stack) > 0 {
		return fmt.Errorf("xml: unexpected end of input inside %s", r.stack[len(r.stack)-1])
	}
	if !r.root {
		return errNoRoot
	}
	return r.h.EndDocument()
}

func (r *reader) positioned(err error) error {
	line, col := r.dec.InputPos()
	return fmt.Errorf("line %d, column %d: %w", line, col, err)
}

func (r *reader) begin() error {
	if r.started {
		return nil
	}
	r.started = true
	return r.h.StartDocument(r.props)
}

func (r *reader) token(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.ProcInst:
		if t.Target == "xml" {
			if r.started {
				return errors.New("xml: declaration after the start of the document")
			}
			r.props.Version = pseudoAttr(t.Inst, "version")
			switch pseudoAttr(t.Inst, "standalone") {
			case "yes":
				r.props.Standalone = fastinfoset.StandaloneYes
			case "no":
				r.props.Standalone = fastinfoset.StandaloneNo
			}
			return nil
		}
		if err := r.begin(); err != nil {
			return err
		}
		return r.h.ProcessingInstruction(t.Target, string(t.Inst))
	case xml.Directive:
		dt, ok := parseDocumentType(t)
		if !ok {
			return nil
		}
		if err := r.begin(); err != nil {
			return err
		}
		if r.decl == nil {
			return nil
		}
		return r.decl.DocumentType(dt)
	case xml.Comment:
		if err := r.begin(); err != nil {
			return err
		}
		return r.h.Comment(t)
	case xml.StartElement:
		if err := r.begin(); err != nil {
			return err
		}
		return r.startElement(t)
	case xml.EndElement:
		return r.endElement(t)
	case xml.CharData:
		if len(r.stack) == 0 {
			if len(bytes.TrimSpace(t)) > 0 {
				return errTextOutside
			}
			return nil
		}
		return r.h.Characters(t)
	}
	return nil
}

func (r *reader) startElement(t xml.StartElement) error {
	if len(r.stack) == 0 && r.root {
		return errMultipleRoots
	}
	r.root = true
	r.scope.Open()
	for _, a := range t.Attr {
		prefix, ok := declaredPrefix(a.Name)
		if !ok {
			continue
		}
		if err := r.scope.Declare(prefix, a.Value); err != nil {
			return fmt.Errorf("xml: namespace declaration %q: %w", prefix, err)
		}
		if err := r.h.StartPrefixMapping(prefix, a.Value); err != nil {
			return err
		}
	}
	name, err := r.resolve(t.Name, true)
	if err != nil {
		return err
	}
	attrs := r.attrs[:0]
	for _, a := range t.Attr {
		if _, ok := declaredPrefix(a.Name); ok {
			continue
		}
		q, err := r.resolve(a.Name, false)
		if err != nil {
			return err
		}
		attrs = append(attrs, fastinfoset.Attr{Name: q, Value: a.Value})
	}
	r.attrs = attrs
	r.stack = append(r.stack, name)
	return r.h.StartElement(name, attrs)
}

func (r *reader) endElement(t xml.EndElement) error {
	if len(r.stack) == 0 {
		return fmt.Errorf("xml: unexpected end element </%s>", rawName(t.Name))
	}
	top := r.stack[len(r.stack)-1]
	if t.Name.Space != top.Prefix || t.Name.Local != top.Local {
		return fmt.Errorf("xml: element <%s> closed by </%s>", top, rawName(t.Name))
	}
	r.stack = r.stack[:len(r.stack)-1]
	for _, b := range r.scope.Close() {
		if err := r.h.EndPrefixMapping(b.Prefix); err != nil {
			return err
		}
	}
	return r.h.EndElement(top)
}

// resolve maps a raw prefixed name to a qualified name. Unprefixed
// attributes have no namespace.
func (r *reader) resolve(n xml.Name, element bool) (fastinfoset.QName, error) {
	if n.Space == "" {
		if !element {
			return fastinfoset.QName{Local: n.Local}, nil
		}
		ns, _ := r.scope.Lookup("")
		return fastinfoset.QName{Namespace: ns, Local: n.Local}, nil
	}
	ns, ok := r.scope.Lookup(n.Space)
	if !ok {
		return fastinfoset.QName{}, fmt.Errorf("xml: unbound prefix %q in <%s>", n.Space, rawName(n))
	}
	return fastinfoset.QName{Prefix: n.Space, Namespace: ns, Local: n.Local}, nil
}

func declaredPrefix(n xml.Name) (string, bool) {
	switch {
	case n.Space == "" && n.Local == "xmlns":
		return "", true
	case n.Space == "xmlns":
		return n.Local, true
	default:
		return "", false
	}
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// pseudoAttr returns the value of a pseudo-attribute of an XML declaration.
func pseudoAttr(inst []byte, name string) string {
	s := string(inst)
	for {
		i := strings.Index(s, name)
		if i < 0 {
			return ""
		}
		s = strings.TrimLeft(s[i+len(name):], " \t\r\n")
		if !strings.HasPrefix(s, "=") {
			continue
		}
		v, _ := quoted(s[1:])
		return v
	}
}

// parseDocumentType extracts the external identifiers of a DOCTYPE directive.
func parseDocumentType(directive []byte) (fastinfoset.DocumentType, bool) {
	var dt fastinfoset.DocumentType
	s, ok := strings.CutPrefix(string(directive), "DOCTYPE")
	if !ok {
		return dt, false
	}
	s = strings.TrimLeft(s, " \t\r\n")
	i := strings.IndexAny(s, " \t\r\n[")
	if i < 0 {
		return dt, true
	}
	s = strings.TrimLeft(s[i:], " \t\r\n")
	switch {
	case strings.HasPrefix(s, "SYSTEM"):
		dt.SystemID, _ = quoted(s[len("SYSTEM"):])
	case strings.HasPrefix(s, "PUBLIC"):
		var rest string
		dt.PublicID, rest = quoted(s[len("PUBLIC"):])
		dt.SystemID, _ = quoted(rest)
	}
	return dt, true
}

// quoted returns the leading quoted literal of s and the text after it.
func quoted(s string) (string, string) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", s
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return "", ""
	}
	return s[1 : end+1], s[end+2:]
}
