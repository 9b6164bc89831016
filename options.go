package fastinfoset

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/jacoelho/fastinfoset/internal/alphabet"
	"github.com/jacoelho/fastinfoset/internal/vocab"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

type boolOption struct {
	value bool
	set   bool
}

func (o boolOption) resolved(fallback bool) bool {
	if !o.set {
		return fallback
	}
	return o.value
}

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	external          *ExternalVocabulary
	logger            *slog.Logger
	algorithms        Algorithms
	inline            Vocabulary
	alphabets         []string
	attributeValueMax intOption
	chunkMax          intOption
	doubleTerminators boolOption
	utf16             bool
	xmlDeclaration    bool
	numericDetection  bool
}

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	vocabularies        map[string]*ExternalVocabulary
	logger              *slog.Logger
	algorithms          Algorithms
	maxDepth            intOption
	maxOctetString      intOption
	namespaceAttributes bool
}

type resolvedEncoderOptions struct {
	logger            *slog.Logger
	algorithms        Algorithms
	external          *ExternalVocabulary
	// inline holds the entries written in the initial vocabulary, layered on
	// the external vocabulary; nil when there are none.
	inline            *vocab.Tables
	base              *vocab.Tables
	attributeValueMax int
	chunkMax          int
	doubleTerminators bool
	utf16             bool
	xmlDeclaration    bool
	numericDetection  bool
}

type resolvedDecoderOptions struct {
	logger              *slog.Logger
	vocabularies        map[string]*ExternalVocabulary
	algorithms          Algorithms
	limits              decodeLimits
	namespaceAttributes bool
}

// NewEncoderOptions returns a default, valid encoder options value.
func NewEncoderOptions() EncoderOptions {
	return EncoderOptions{}
}

// NewDecoderOptions returns a default, valid decoder options value.
func NewDecoderOptions() DecoderOptions {
	return DecoderOptions{}
}

// Validate validates encoder options values.
func (o EncoderOptions) Validate() error {
	_, err := o.withDefaults()
	return err
}

// Validate validates decoder options values.
func (o DecoderOptions) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithAttributeValueSizeLimit sets the size, in characters, below which
// attribute values are added to the vocabulary (0 uses default).
func (o EncoderOptions) WithAttributeValueSizeLimit(value int) EncoderOptions {
	o.attributeValueMax = intOption{value: value, set: true}
	return o
}

// WithCharacterChunkSizeLimit sets the size, in characters, below which
// character chunks are added to the vocabulary (0 uses default).
func (o EncoderOptions) WithCharacterChunkSizeLimit(value int) EncoderOptions {
	o.chunkMax = intOption{value: value, set: true}
	return o
}

// WithExternalVocabulary makes every document refer to v by URI and start
// from its entries.
func (o EncoderOptions) WithExternalVocabulary(v *ExternalVocabulary) EncoderOptions {
	o.external = v
	return o
}

// WithInitialVocabulary writes v inline at the start of every document.
func (o EncoderOptions) WithInitialVocabulary(v Vocabulary) EncoderOptions {
	o.inline = v
	return o
}

// WithAlgorithms registers application encoding algorithms by URI.
// URIs missing from the external vocabulary are written inline.
func (o EncoderOptions) WithAlgorithms(value Algorithms) EncoderOptions {
	o.algorithms = value.clone()
	return o
}

// WithAlphabets registers application restricted alphabets.
// Alphabets missing from the external vocabulary are written inline.
func (o EncoderOptions) WithAlphabets(value ...string) EncoderOptions {
	o.alphabets = slices.Clone(value)
	return o
}

// WithUTF16 encodes literal character data as UTF-16 instead of UTF-8.
func (o EncoderOptions) WithUTF16(value bool) EncoderOptions {
	o.utf16 = value
	return o
}

// WithXMLDeclaration prefixes documents with an XML declaration naming the
// finf encoding.
func (o EncoderOptions) WithXMLDeclaration(value bool) EncoderOptions {
	o.xmlDeclaration = value
	return o
}

// WithDoubleTerminators controls whether two coinciding terminations are
// written as one double terminator octet (default true).
func (o EncoderOptions) WithDoubleTerminators(value bool) EncoderOptions {
	o.doubleTerminators = boolOption{value: value, set: true}
	return o
}

// WithNumericDetection packs character data made only of numeric alphabet
// characters with that alphabet.
func (o EncoderOptions) WithNumericDetection(value bool) EncoderOptions {
	o.numericDetection = value
	return o
}

// WithLogger sets the logger for document summaries (nil discards).
func (o EncoderOptions) WithLogger(value *slog.Logger) EncoderOptions {
	o.logger = value
	return o
}

// WithExternalVocabulary registers v under its URI.
func (o DecoderOptions) WithExternalVocabulary(v *ExternalVocabulary) DecoderOptions {
	vocabularies := make(map[string]*ExternalVocabulary, len(o.vocabularies)+1)
	maps.Copy(vocabularies, o.vocabularies)
	if v != nil {
		vocabularies[v.URI()] = v
	}
	o.vocabularies = vocabularies
	return o
}

// WithAlgorithms registers application encoding algorithms by URI.
func (o DecoderOptions) WithAlgorithms(value Algorithms) DecoderOptions {
	o.algorithms = value.clone()
	return o
}

// WithNamespaceAttributes reports namespace declarations as xmlns attributes
// of StartElement in addition to prefix mapping events.
func (o DecoderOptions) WithNamespaceAttributes(value bool) DecoderOptions {
	o.namespaceAttributes = value
	return o
}

// WithMaxDepth sets the element nesting limit (0 uses default).
func (o DecoderOptions) WithMaxDepth(value int) DecoderOptions {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// WithMaxOctetStringLength sets the octet string length limit (0 uses default).
func (o DecoderOptions) WithMaxOctetStringLength(value int) DecoderOptions {
	o.maxOctetString = intOption{value: value, set: true}
	return o
}

// WithLogger sets the logger for document summaries (nil discards).
func (o DecoderOptions) WithLogger(value *slog.Logger) DecoderOptions {
	o.logger = value
	return o
}

func (o EncoderOptions) withDefaults() (resolvedEncoderOptions, error) {
	limits, err := resolveIndexLimits(o.attributeValueMax.resolved(), o.chunkMax.resolved())
	if err != nil {
		return resolvedEncoderOptions{}, fmt.Errorf("encoder limits: %w", err)
	}
	base := o.external.baseTables()
	inline, err := o.inlineVocabulary(base)
	if err != nil {
		return resolvedEncoderOptions{}, fmt.Errorf("initial vocabulary: %w", err)
	}
	var inlineTables *vocab.Tables
	if !inline.IsZero() {
		inlineTables, err = compileVocabulary(inline, base)
		if err != nil {
			return resolvedEncoderOptions{}, fmt.Errorf("initial vocabulary: %w", err)
		}
		base = inlineTables
	}
	return resolvedEncoderOptions{
		logger:            resolveLogger(o.logger),
		algorithms:        o.algorithms,
		external:          o.external,
		inline:            inlineTables,
		base:              base,
		attributeValueMax: limits.attributeValueMax,
		chunkMax:          limits.chunkMax,
		doubleTerminators: o.doubleTerminators.resolved(true),
		utf16:             o.utf16,
		xmlDeclaration:    o.xmlDeclaration,
		numericDetection:  o.numericDetection,
	}, nil
}

// inlineVocabulary extends the configured initial vocabulary with registered
// algorithm URIs and alphabets the base does not already hold.
func (o EncoderOptions) inlineVocabulary(base *vocab.Tables) (Vocabulary, error) {
	v := o.inline
	known := func(table []string, s string) bool {
		return slices.Contains(table, s)
	}
	for _, chars := range o.alphabets {
		if _, err := alphabet.New(chars); err != nil {
			return Vocabulary{}, fmt.Errorf("alphabet %q: %w", chars, err)
		}
		if _, builtin := alphabet.BuiltinID(chars); builtin {
			continue
		}
		if _, ok := base.Alphabets.Lookup(chars); ok || known(v.RestrictedAlphabets, chars) {
			continue
		}
		v.RestrictedAlphabets = append(slices.Clone(v.RestrictedAlphabets), chars)
	}
	for _, uri := range slices.Sorted(maps.Keys(o.algorithms)) {
		if uri == "" {
			return Vocabulary{}, fmt.Errorf("algorithm registered with empty URI")
		}
		if _, ok := base.Algorithms.Lookup(uri); ok || known(v.EncodingAlgorithms, uri) {
			continue
		}
		v.EncodingAlgorithms = append(slices.Clone(v.EncodingAlgorithms), uri)
	}
	if n := base.Alphabets.Len() + len(v.RestrictedAlphabets); n > alphabet.MaxID-alphabet.ApplicationStart+1 {
		return Vocabulary{}, fmt.Errorf("too many restricted alphabets: %d", n)
	}
	if n := base.Algorithms.Len() + len(v.EncodingAlgorithms); n > maxApplicationAlgorithms {
		return Vocabulary{}, fmt.Errorf("too many encoding algorithms: %d", n)
	}
	return v, nil
}

func (o DecoderOptions) withDefaults() (resolvedDecoderOptions, error) {
	limits, err := resolveDecodeLimits(o.maxDepth.resolved(), o.maxOctetString.resolved())
	if err != nil {
		return resolvedDecoderOptions{}, fmt.Errorf("decoder limits: %w", err)
	}
	for uri := range o.algorithms {
		if uri == "" {
			return resolvedDecoderOptions{}, fmt.Errorf("algorithm registered with empty URI")
		}
	}
	return resolvedDecoderOptions{
		logger:              resolveLogger(o.logger),
		vocabularies:        o.vocabularies,
		algorithms:          o.algorithms,
		limits:              limits,
		namespaceAttributes: o.namespaceAttributes,
	}, nil
}

func resolveLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
