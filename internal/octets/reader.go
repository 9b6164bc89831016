package octets

import (
	"bufio"
	"errors"
	"io"
	"math"
)

var (
	// ErrTruncated reports input that ends inside an encoded value.
	ErrTruncated = errors.New("unexpected end of input")
	// ErrMalformedInteger reports an octet pattern that selects no integer tier
	// or decodes to a value outside the representable range.
	ErrMalformedInteger = errors.New("malformed integer")
	// ErrLengthOverflow reports an octet string longer than the reader allows.
	ErrLengthOverflow = errors.New("octet string length exceeds limit")
)

const defaultReaderSize = 16 << 10

// Reader reads encoded octets from a stream and tracks the input offset.
type Reader struct {
	r         *bufio.Reader
	own       *bufio.Reader
	scratch   []byte
	offset    int64
	maxLength int
}

// NewReader returns a reader over src that rejects octet strings longer than maxLength.
// A non-positive maxLength selects math.MaxInt32.
func NewReader(src io.Reader, maxLength int) *Reader {
	if maxLength <= 0 {
		maxLength = math.MaxInt32
	}
	r := &Reader{maxLength: maxLength}
	r.Reset(src)
	return r
}

// Reset prepares the reader for a new input stream.
func (r *Reader) Reset(src io.Reader) {
	r.offset = 0
	if br, ok := src.(*bufio.Reader); ok {
		r.r = br
		return
	}
	if r.own == nil {
		r.own = bufio.NewReaderSize(src, defaultReaderSize)
	} else {
		r.own.Reset(src)
	}
	r.r = r.own
}

// Offset returns the number of octets consumed since the last Reset.
func (r *Reader) Offset() int64 {
	return r.offset
}

// More reports whether at least one octet remains.
func (r *Reader) More() (bool, error) {
	_, err := r.r.Peek(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Peek returns the next n octets without consuming them.
// The result may be shorter than n at end of input.
func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.r.Peek(n)
	if err == io.EOF || err == bufio.ErrBufferFull {
		return b, nil
	}
	return b, err
}

// ReadByte consumes one octet.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	r.offset++
	return b, nil
}

// Next consumes n octets. The returned slice is only valid until the next read.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.maxLength {
		return nil, ErrLengthOverflow
	}
	if cap(r.scratch) < n {
		r.scratch = make([]byte, n)
	}
	buf := r.scratch[:n]
	read, err := io.ReadFull(r.r, buf)
	r.offset += int64(read)
	if err != nil {
		return nil, truncated(err)
	}
	return buf, nil
}

// Skip discards n octets.
func (r *Reader) Skip(n int) error {
	skipped, err := r.r.Discard(n)
	r.offset += int64(skipped)
	if err != nil {
		return truncated(err)
	}
	return nil
}

// SecondBitInteger decodes an integer that starts on the second bit of lead.
func (r *Reader) SecondBitInteger(lead byte) (int, error) {
	switch {
	case lead&0x40 == 0:
		return int(lead & 0x3F), nil
	case lead&0x60 == 0x40:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return (int(lead&0x1F)<<8 | int(b)) + secondBitSmallLimit, nil
	case lead&0x70 == 0x60:
		v, err := r.uint16()
		if err != nil {
			return 0, err
		}
		return checkIndex((int(lead&0x0F)<<16 | v) + secondBitMediumLimit)
	default:
		return 0, ErrMalformedInteger
	}
}

// ThirdBitInteger decodes an integer that starts on the third bit of lead.
func (r *Reader) ThirdBitInteger(lead byte) (int, error) {
	switch {
	case lead&0x20 == 0:
		return int(lead & 0x1F), nil
	case lead&0x38 == 0x20:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return (int(lead&0x07)<<8 | int(b)) + thirdBitSmallLimit, nil
	case lead&0x38 == 0x28:
		v, err := r.uint16()
		if err != nil {
			return 0, err
		}
		return (int(lead&0x07)<<16 | v) + thirdBitMediumLimit, nil
	case lead&0x3F == 0x30:
		v, err := r.uint20()
		if err != nil {
			return 0, err
		}
		return checkIndex(v + thirdBitLargeLimit)
	default:
		return 0, ErrMalformedInteger
	}
}

// FourthBitInteger decodes an integer that starts on the fourth bit of lead.
func (r *Reader) FourthBitInteger(lead byte) (int, error) {
	switch {
	case lead&0x10 == 0:
		return int(lead & 0x0F), nil
	case lead&0x1C == 0x10:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return (int(lead&0x03)<<8 | int(b)) + fourthBitSmallLimit, nil
	case lead&0x1C == 0x14:
		v, err := r.uint16()
		if err != nil {
			return 0, err
		}
		return (int(lead&0x03)<<16 | v) + fourthBitMediumLimit, nil
	case lead&0x1F == 0x18:
		v, err := r.uint20()
		if err != nil {
			return 0, err
		}
		return checkIndex(v + fourthBitLargeLimit)
	default:
		return 0, ErrMalformedInteger
	}
}

// SecondBitLength decodes a non-empty length that starts on the second bit of lead.
func (r *Reader) SecondBitLength(lead byte) (int, error) {
	switch {
	case lead&0x40 == 0:
		return int(lead&0x3F) + 1, nil
	case lead&0x7F == 0x40:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int(b) + secondBitLengthSmallLimit + 1, nil
	case lead&0x7F == 0x60:
		return r.largeLength(secondBitLengthMediumLimit + 1)
	default:
		return 0, ErrMalformedInteger
	}
}

// FifthBitLength decodes a non-empty length that starts on the fifth bit of lead.
func (r *Reader) FifthBitLength(lead byte) (int, error) {
	switch {
	case lead&0x08 == 0:
		return int(lead&0x07) + 1, nil
	case lead&0x0F == 0x08:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int(b) + fifthBitLengthSmallLimit + 1, nil
	case lead&0x0F == 0x0C:
		return r.largeLength(fifthBitLengthMediumLimit + 1)
	default:
		return 0, ErrMalformedInteger
	}
}

// SeventhBitLength decodes a non-empty length that starts on the seventh bit of lead.
func (r *Reader) SeventhBitLength(lead byte) (int, error) {
	switch lead & 0x03 {
	case 0x00, 0x01:
		return int(lead&0x01) + 1, nil
	case 0x02:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int(b) + seventhBitLengthSmallLimit + 1, nil
	default:
		return r.largeLength(seventhBitLengthMediumLimit + 1)
	}
}

// SequenceLength decodes the item count of a sequence.
func (r *Reader) SequenceLength() (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b&0x80 == 0 {
		return int(b) + 1, nil
	}
	if b&0x70 != 0 {
		return 0, ErrMalformedInteger
	}
	v, err := r.uint16()
	if err != nil {
		return 0, err
	}
	return (int(b&0x0F)<<16 | v) + sequenceSmallLimit + 1, nil
}

func (r *Reader) largeLength(base int) (int, error) {
	hi, err := r.uint16()
	if err != nil {
		return 0, err
	}
	lo, err := r.uint16()
	if err != nil {
		return 0, err
	}
	n := uint64(hi)<<16 | uint64(lo)
	n += uint64(base)
	if n > uint64(r.maxLength) {
		return 0, ErrLengthOverflow
	}
	return int(n), nil
}

func (r *Reader) uint16() (int, error) {
	hi, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return int(hi)<<8 | int(lo), nil
}

func (r *Reader) uint20() (int, error) {
	top, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if top&0xF0 != 0 {
		return 0, ErrMalformedInteger
	}
	v, err := r.uint16()
	if err != nil {
		return 0, err
	}
	return int(top)<<16 | v, nil
}

func checkIndex(v int) (int, error) {
	if v > MaxIndex {
		return 0, ErrMalformedInteger
	}
	return v, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
