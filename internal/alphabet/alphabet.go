// Package alphabet packs character data drawn from a small restricted alphabet
// into fixed-width bit groups.
package alphabet

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Built-in alphabet identifiers and the first application identifier.
const (
	Numeric          = 0
	DateTime         = 1
	BuiltinEnd       = 1
	ApplicationStart = 32
	MaxID            = 255
)

// Characters of the built-in alphabets.
const (
	NumericCharacters  = "0123456789-+.E "
	DateTimeCharacters = "0123456789-:TZ "
)

var (
	// ErrTooSmall reports an alphabet with fewer than two characters.
	ErrTooSmall = errors.New("alphabet must contain at least two characters")
	// ErrRepeated reports an alphabet listing a character twice.
	ErrRepeated = errors.New("alphabet repeats a character")
	// ErrNotInAlphabet reports a character or code outside the alphabet.
	ErrNotInAlphabet = errors.New("character not in alphabet")
	// ErrMisplacedTerminator reports padding that does not end the data.
	ErrMisplacedTerminator = errors.New("misplaced alphabet terminator")
)

// Alphabet is an immutable character set with its packing width.
type Alphabet struct {
	chars []rune
	codes map[rune]int
	bits  int
	text  string
}

var (
	numeric  = MustNew(NumericCharacters)
	dateTime = MustNew(DateTimeCharacters)
)

// Builtin returns the built-in alphabet with the given identifier.
func Builtin(id int) (*Alphabet, bool) {
	switch id {
	case Numeric:
		return numeric, true
	case DateTime:
		return dateTime, true
	default:
		return nil, false
	}
}

// BuiltinID returns the identifier of a built-in alphabet given its characters.
func BuiltinID(chars string) (int, bool) {
	switch chars {
	case NumericCharacters:
		return Numeric, true
	case DateTimeCharacters:
		return DateTime, true
	default:
		return 0, false
	}
}

// New validates chars and returns the alphabet.
func New(chars string) (*Alphabet, error) {
	runes := []rune(chars)
	if len(runes) < 2 {
		return nil, ErrTooSmall
	}
	codes := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := codes[r]; dup {
			return nil, fmt.Errorf("%w: %q", ErrRepeated, r)
		}
		codes[r] = i
	}
	bits := 1
	for 1<<bits <= len(runes) {
		bits++
	}
	return &Alphabet{chars: runes, codes: codes, bits: bits, text: chars}, nil
}

// MustNew is like New but panics on error.
func MustNew(chars string) *Alphabet {
	a, err := New(chars)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the characters of the alphabet.
func (a *Alphabet) String() string {
	return a.text
}

// Bits returns the width of one packed character.
func (a *Alphabet) Bits() int {
	return a.bits
}

// Contains reports whether every character of text belongs to the alphabet.
func (a *Alphabet) Contains(text []byte) bool {
	if len(text) == 0 {
		return false
	}
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		if _, ok := a.codes[r]; !ok {
			return false
		}
		text = text[size:]
	}
	return true
}

// EncodedLen returns the number of octets needed for n characters.
func (a *Alphabet) EncodedLen(n int) int {
	return (n*a.bits + 7) / 8
}

// Append packs text and appends it to dst. An incomplete final octet is
// padded with one bits, which also serves as the terminator.
func (a *Alphabet) Append(dst []byte, text []byte) ([]byte, error) {
	var acc uint32
	filled := 0
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		code, ok := a.codes[r]
		if !ok {
			return dst, fmt.Errorf("%w: %q", ErrNotInAlphabet, r)
		}
		text = text[size:]
		acc = acc<<a.bits | uint32(code)
		filled += a.bits
		for filled >= 8 {
			filled -= 8
			dst = append(dst, byte(acc>>filled))
		}
		acc &= 1<<filled - 1
	}
	if filled > 0 {
		pad := 8 - filled
		dst = append(dst, byte(acc<<pad|(1<<pad-1)))
	}
	return dst, nil
}

// AppendText unpacks octets and appends the UTF-8 characters to dst.
func (a *Alphabet) AppendText(dst []byte, octets []byte) ([]byte, error) {
	terminator := uint32(1)<<a.bits - 1
	total := len(octets) * 8
	var acc uint32
	filled := 0
	consumed := 0
	for i, b := range octets {
		acc = acc<<8 | uint32(b)
		filled += 8
		for filled >= a.bits {
			filled -= a.bits
			code := acc >> filled & terminator
			consumed += a.bits
			if int(code) >= len(a.chars) {
				if code != terminator || a.bits >= 8 {
					return dst, ErrNotInAlphabet
				}
				// padding must only occupy the final octet.
				if i != len(octets)-1 || total-consumed+a.bits > 7 {
					return dst, ErrMisplacedTerminator
				}
				return dst, nil
			}
			dst = utf8.AppendRune(dst, a.chars[code])
		}
		acc &= 1<<filled - 1
	}
	return dst, nil
}
