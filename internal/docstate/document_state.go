// Package docstate tracks the document-level ordering rules shared by the
// encoder and the decoder.
package docstate

import "errors"

var (
	// ErrDuplicateDocumentType reports a second document type declaration.
	ErrDuplicateDocumentType = errors.New("document type declared twice")
	// ErrLateDocumentType reports a document type declaration after the root element.
	ErrLateDocumentType = errors.New("document type declared after root element")
	// ErrMultipleRoots reports an element after the root element was closed.
	ErrMultipleRoots = errors.New("element after root element")
	// ErrNoRoot reports a document that ends without a root element.
	ErrNoRoot = errors.New("document has no root element")
	// ErrUnclosedRoot reports a document that ends inside the root element.
	ErrUnclosedRoot = errors.New("document ends inside root element")
)

// State tracks document-boundary state for one document.
type State struct {
	doctypeSeen bool
	rootSeen    bool
	rootClosed  bool
}

// Reset prepares the state for a new document.
func (s *State) Reset() {
	*s = State{}
}

// RootSeen reports whether a root start element has been seen.
func (s *State) RootSeen() bool {
	return s.rootSeen
}

// RootClosed reports whether the root element has been closed.
func (s *State) RootClosed() bool {
	return s.rootClosed
}

// InProlog reports whether the root element has not started yet.
func (s *State) InProlog() bool {
	return !s.rootSeen
}

// OnDocumentType advances state for a document type declaration.
func (s *State) OnDocumentType() error {
	if s.rootSeen {
		return ErrLateDocumentType
	}
	if s.doctypeSeen {
		return ErrDuplicateDocumentType
	}
	s.doctypeSeen = true
	return nil
}

// OnStartElement advances state for a start element at depth, where depth 0
// is the root element.
func (s *State) OnStartElement(depth int) error {
	if depth > 0 {
		return nil
	}
	if s.rootClosed {
		return ErrMultipleRoots
	}
	s.rootSeen = true
	return nil
}

// OnEndElement advances state for an end element.
// closeRoot should be true only when the root element ends.
func (s *State) OnEndElement(closeRoot bool) {
	if closeRoot {
		s.rootClosed = true
	}
}

// OnEndDocument validates that the document holds exactly one closed root element.
func (s *State) OnEndDocument() error {
	if !s.rootSeen {
		return ErrNoRoot
	}
	if !s.rootClosed {
		return ErrUnclosedRoot
	}
	return nil
}
