package fastinfoset

import (
	"maps"

	"github.com/jacoelho/fastinfoset/internal/algorithm"
	"github.com/jacoelho/fastinfoset/internal/alphabet"
)

// Built-in encoding algorithm identifiers.
const (
	AlgorithmHexadecimal = algorithm.Hexadecimal
	AlgorithmBase64      = algorithm.Base64
	AlgorithmShort       = algorithm.Short
	AlgorithmInt         = algorithm.Int
	AlgorithmLong        = algorithm.Long
	AlgorithmBoolean     = algorithm.Boolean
	AlgorithmFloat       = algorithm.Float
	AlgorithmDouble      = algorithm.Double
	AlgorithmUUID        = algorithm.UUID
	AlgorithmCDATA       = algorithm.CDATA

	// FirstApplicationAlgorithm is the identifier of the first application
	// algorithm URI in the vocabulary.
	FirstApplicationAlgorithm = algorithm.ApplicationStart
)

// Built-in restricted alphabets.
const (
	NumericAlphabet  = alphabet.NumericCharacters
	DateTimeAlphabet = alphabet.DateTimeCharacters
)

// Algorithm converts the values of an application encoding algorithm to and
// from octets.
type Algorithm interface {
	// Decode converts octets into a value. octets is only valid during the call.
	Decode(octets []byte) (any, error)
	// Append appends the octets of v to dst.
	Append(dst []byte, v any) ([]byte, error)
}

// TextAlgorithm is an Algorithm whose values have a character rendering.
// Decoders use it to report values to handlers without AlgorithmHandler.
type TextAlgorithm interface {
	Algorithm
	AppendText(dst []byte, v any) ([]byte, error)
}

// Algorithms maps algorithm URIs to implementations.
type Algorithms map[string]Algorithm

func (a Algorithms) clone() Algorithms {
	if len(a) == 0 {
		return nil
	}
	return maps.Clone(a)
}

// BuiltinAlgorithm returns the built-in algorithm with identifier id.
// The returned Algorithm also implements TextAlgorithm.
func BuiltinAlgorithm(id int) (Algorithm, bool) {
	if algorithm.Classify(id) != algorithm.ClassBuiltin {
		return nil, false
	}
	return builtinAlgorithm(id), true
}

// AlgorithmName returns the name of a built-in algorithm.
func AlgorithmName(id int) string {
	return algorithm.Name(id)
}

type builtinAlgorithm int

func (b builtinAlgorithm) Decode(octets []byte) (any, error) {
	return algorithm.Decode(int(b), octets)
}

func (b builtinAlgorithm) Append(dst []byte, v any) ([]byte, error) {
	return algorithm.Append(dst, int(b), v)
}

func (b builtinAlgorithm) AppendText(dst []byte, v any) ([]byte, error) {
	return algorithm.AppendText(dst, int(b), v)
}

var _ TextAlgorithm = builtinAlgorithm(0)
