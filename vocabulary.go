package fastinfoset

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	fierrors "github.com/jacoelho/fastinfoset/errors"
	"github.com/jacoelho/fastinfoset/internal/alphabet"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

// fingerprintPrefix starts the URI given to external vocabularies declared
// without one.
const fingerprintPrefix = "urn:fastinfoset:vocabulary:blake3:"

// Vocabulary lists the entries of each vocabulary table in index order.
// Names listed in ElementNames and AttributeNames add their missing prefix,
// namespace, and local name components to the matching string tables.
type Vocabulary struct {
	RestrictedAlphabets []string `yaml:"restricted_alphabets,omitempty" cbor:"1,keyasint,omitempty"`
	EncodingAlgorithms  []string `yaml:"encoding_algorithms,omitempty" cbor:"2,keyasint,omitempty"`
	Prefixes            []string `yaml:"prefixes,omitempty" cbor:"3,keyasint,omitempty"`
	NamespaceNames      []string `yaml:"namespace_names,omitempty" cbor:"4,keyasint,omitempty"`
	LocalNames          []string `yaml:"local_names,omitempty" cbor:"5,keyasint,omitempty"`
	OtherNCNames        []string `yaml:"other_ncnames,omitempty" cbor:"6,keyasint,omitempty"`
	OtherURIs           []string `yaml:"other_uris,omitempty" cbor:"7,keyasint,omitempty"`
	AttributeValues     []string `yaml:"attribute_values,omitempty" cbor:"8,keyasint,omitempty"`
	CharacterChunks     []string `yaml:"character_chunks,omitempty" cbor:"9,keyasint,omitempty"`
	OtherStrings        []string `yaml:"other_strings,omitempty" cbor:"10,keyasint,omitempty"`
	ElementNames        []QName  `yaml:"element_names,omitempty" cbor:"11,keyasint,omitempty"`
	AttributeNames      []QName  `yaml:"attribute_names,omitempty" cbor:"12,keyasint,omitempty"`
}

// IsZero reports whether v has no entries.
func (v Vocabulary) IsZero() bool {
	return len(v.RestrictedAlphabets) == 0 && len(v.EncodingAlgorithms) == 0 &&
		len(v.Prefixes) == 0 && len(v.NamespaceNames) == 0 && len(v.LocalNames) == 0 &&
		len(v.OtherNCNames) == 0 && len(v.OtherURIs) == 0 && len(v.AttributeValues) == 0 &&
		len(v.CharacterChunks) == 0 && len(v.OtherStrings) == 0 &&
		len(v.ElementNames) == 0 && len(v.AttributeNames) == 0
}

var vocabularyEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fastinfoset: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

// canonical returns the Core Deterministic CBOR encoding of v.
func (v Vocabulary) canonical() ([]byte, error) {
	return vocabularyEncMode.Marshal(v)
}

// Fingerprint returns the BLAKE3 digest of the canonical form of v.
// Equal vocabularies have equal fingerprints.
func (v Vocabulary) Fingerprint() ([32]byte, error) {
	data, err := v.canonical()
	if err != nil {
		return [32]byte{}, fmt.Errorf("vocabulary fingerprint: %w", err)
	}
	return blake3.Sum256(data), nil
}

// ParseVocabulary reads a YAML vocabulary description. Unknown keys are errors.
func ParseVocabulary(r io.Reader) (Vocabulary, error) {
	var v Vocabulary
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return Vocabulary{}, nil
		}
		return Vocabulary{}, fmt.Errorf("parse vocabulary: %w", err)
	}
	return v, nil
}

// ParseVocabularyBytes is ParseVocabulary over a byte slice.
func ParseVocabularyBytes(data []byte) (Vocabulary, error) {
	return ParseVocabulary(bytes.NewReader(data))
}

// ExternalVocabulary is a compiled vocabulary referenced by URI from documents.
// It is immutable and safe to share between encoders and decoders.
type ExternalVocabulary struct {
	uri    string
	tables *vocab.Tables
	source Vocabulary
}

// NewExternalVocabulary compiles v. An empty uri is replaced by one derived
// from the fingerprint of v.
func NewExternalVocabulary(uri string, v Vocabulary) (*ExternalVocabulary, error) {
	if uri == "" {
		sum, err := v.Fingerprint()
		if err != nil {
			return nil, err
		}
		uri = fingerprintPrefix + hex.EncodeToString(sum[:])
	}
	tables, err := compileVocabulary(v, vocab.Builtin())
	if err != nil {
		return nil, err
	}
	return &ExternalVocabulary{uri: uri, tables: tables, source: v}, nil
}

// URI returns the URI documents use to refer to the vocabulary.
func (e *ExternalVocabulary) URI() string {
	return e.uri
}

// Vocabulary returns the entries the vocabulary was compiled from.
func (e *ExternalVocabulary) Vocabulary() Vocabulary {
	return e.source
}

func (e *ExternalVocabulary) baseTables() *vocab.Tables {
	if e == nil {
		return vocab.Builtin()
	}
	return e.tables
}

// compileVocabulary adds the entries of v to new tables layered on base.
// The added entries of each table are what an encoder writes inline.
func compileVocabulary(v Vocabulary, base *vocab.Tables) (*vocab.Tables, error) {
	t := vocab.New(true)
	t.SetBase(base)
	lists := []struct {
		name    string
		values  []string
		table   *vocab.StringTable
		isAlpha bool
	}{
		{"restricted alphabet", v.RestrictedAlphabets, t.Alphabets, true},
		{"encoding algorithm", v.EncodingAlgorithms, t.Algorithms, false},
		{"prefix", v.Prefixes, t.Prefixes, false},
		{"namespace name", v.NamespaceNames, t.Namespaces, false},
		{"local name", v.LocalNames, t.LocalNames, false},
		{"other NCName", v.OtherNCNames, t.OtherNCNames, false},
		{"other URI", v.OtherURIs, t.OtherURIs, false},
		{"attribute value", v.AttributeValues, t.AttributeValues, false},
		{"character chunk", v.CharacterChunks, t.Chunks, false},
		{"other string", v.OtherStrings, t.OtherStrings, false},
	}
	for _, list := range lists {
		for _, s := range list.values {
			if s == "" {
				return nil, fierrors.Newf(fierrors.ErrInvalidEvent, "empty %s in vocabulary", list.name)
			}
			if list.isAlpha {
				if _, err := alphabet.New(s); err != nil {
					return nil, fierrors.Wrap(fierrors.ErrAlphabetData, err, "vocabulary alphabet")
				}
			}
			if _, ok := list.table.Add(s); !ok {
				return nil, fierrors.Newf(fierrors.ErrTableFull, "%s table full", list.name)
			}
		}
	}
	for _, q := range v.ElementNames {
		if err := addVocabularyName(t, t.ElementNames, q); err != nil {
			return nil, err
		}
	}
	for _, q := range v.AttributeNames {
		if err := addVocabularyName(t, t.AttributeNames, q); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func addVocabularyName(t *vocab.Tables, names *vocab.NameTable, q QName) error {
	if q.Local == "" {
		return fierrors.New(fierrors.ErrInvalidEvent, "vocabulary name without local name")
	}
	if q.Prefix != "" && q.Namespace == "" {
		return fierrors.Newf(fierrors.ErrNotInScope, "vocabulary name %s has a prefix but no namespace", q)
	}
	prefixIndex, namespaceIndex := vocab.NoIndex, vocab.NoIndex
	var ok bool
	if q.Prefix != "" {
		if prefixIndex, _, ok = t.Prefixes.Intern(q.Prefix); !ok {
			return fierrors.New(fierrors.ErrTableFull, "prefix table full")
		}
	}
	if q.Namespace != "" {
		if namespaceIndex, _, ok = t.Namespaces.Intern(q.Namespace); !ok {
			return fierrors.New(fierrors.ErrTableFull, "namespace table full")
		}
	}
	localIndex, _, ok := t.LocalNames.Intern(q.Local)
	if !ok {
		return fierrors.New(fierrors.ErrTableFull, "local name table full")
	}
	if _, ok := names.Add(vocab.NewName(q.Prefix, q.Namespace, q.Local, prefixIndex, namespaceIndex, localIndex)); !ok {
		return fierrors.New(fierrors.ErrTableFull, "name table full")
	}
	return nil
}
