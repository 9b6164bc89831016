package octets

// MaxIndex is the largest table index representable on the wire.
const MaxIndex = 1<<20 - 1

// Tier limits for integers, expressed as 0-based exclusive upper bounds.
const (
	secondBitSmallLimit  = 64
	secondBitMediumLimit = 8256

	thirdBitSmallLimit  = 32
	thirdBitMediumLimit = 2080
	thirdBitLargeLimit  = 526368

	fourthBitSmallLimit  = 16
	fourthBitMediumLimit = 1040
	fourthBitLargeLimit  = 263184
)

// Tier limits for non-empty lengths, expressed as inclusive upper bounds.
const (
	secondBitLengthSmallLimit  = 64
	secondBitLengthMediumLimit = 320

	fifthBitLengthSmallLimit  = 8
	fifthBitLengthMediumLimit = 264

	seventhBitLengthSmallLimit  = 2
	seventhBitLengthMediumLimit = 258

	sequenceSmallLimit = 128
)

// AppendSecondBitInteger appends v in [0, MaxIndex] starting on the second bit.
// The first bit is taken from lead.
func AppendSecondBitInteger(dst []byte, lead byte, v int) []byte {
	switch {
	case v < secondBitSmallLimit:
		return append(dst, lead|byte(v))
	case v < secondBitMediumLimit:
		v -= secondBitSmallLimit
		return append(dst, lead|0x40|byte(v>>8), byte(v))
	default:
		v -= secondBitMediumLimit
		return append(dst, lead|0x60|byte(v>>16), byte(v>>8), byte(v))
	}
}

// AppendThirdBitInteger appends v in [0, MaxIndex] starting on the third bit.
// The first two bits are taken from lead.
func AppendThirdBitInteger(dst []byte, lead byte, v int) []byte {
	switch {
	case v < thirdBitSmallLimit:
		return append(dst, lead|byte(v))
	case v < thirdBitMediumLimit:
		v -= thirdBitSmallLimit
		return append(dst, lead|0x20|byte(v>>8), byte(v))
	case v < thirdBitLargeLimit:
		v -= thirdBitMediumLimit
		return append(dst, lead|0x28|byte(v>>16), byte(v>>8), byte(v))
	default:
		v -= thirdBitLargeLimit
		return append(dst, lead|0x30, byte(v>>16), byte(v>>8), byte(v))
	}
}

// AppendFourthBitInteger appends v in [0, MaxIndex] starting on the fourth bit.
// The first three bits are taken from lead.
func AppendFourthBitInteger(dst []byte, lead byte, v int) []byte {
	switch {
	case v < fourthBitSmallLimit:
		return append(dst, lead|byte(v))
	case v < fourthBitMediumLimit:
		v -= fourthBitSmallLimit
		return append(dst, lead|0x10|byte(v>>8), byte(v))
	case v < fourthBitLargeLimit:
		v -= fourthBitMediumLimit
		return append(dst, lead|0x14|byte(v>>16), byte(v>>8), byte(v))
	default:
		v -= fourthBitLargeLimit
		return append(dst, lead|0x18, byte(v>>16), byte(v>>8), byte(v))
	}
}

// AppendSecondBitLength appends a non-empty length n starting on the second bit.
func AppendSecondBitLength(dst []byte, lead byte, n int) []byte {
	switch {
	case n <= secondBitLengthSmallLimit:
		return append(dst, lead|byte(n-1))
	case n <= secondBitLengthMediumLimit:
		return append(dst, lead|0x40, byte(n-secondBitLengthSmallLimit-1))
	default:
		return appendUint32(append(dst, lead|0x60), uint32(n-secondBitLengthMediumLimit-1))
	}
}

// AppendFifthBitLength appends a non-empty length n starting on the fifth bit.
func AppendFifthBitLength(dst []byte, lead byte, n int) []byte {
	switch {
	case n <= fifthBitLengthSmallLimit:
		return append(dst, lead|byte(n-1))
	case n <= fifthBitLengthMediumLimit:
		return append(dst, lead|0x08, byte(n-fifthBitLengthSmallLimit-1))
	default:
		return appendUint32(append(dst, lead|0x0C), uint32(n-fifthBitLengthMediumLimit-1))
	}
}

// AppendSeventhBitLength appends a non-empty length n starting on the seventh bit.
func AppendSeventhBitLength(dst []byte, lead byte, n int) []byte {
	switch {
	case n <= seventhBitLengthSmallLimit:
		return append(dst, lead|byte(n-1))
	case n <= seventhBitLengthMediumLimit:
		return append(dst, lead|0x02, byte(n-seventhBitLengthSmallLimit-1))
	default:
		return appendUint32(append(dst, lead|0x03), uint32(n-seventhBitLengthMediumLimit-1))
	}
}

// AppendSequenceLength appends the item count n of a sequence, 1 <= n <= MaxIndex+1.
func AppendSequenceLength(dst []byte, n int) []byte {
	if n <= sequenceSmallLimit {
		return append(dst, byte(n-1))
	}
	n -= sequenceSmallLimit + 1
	return append(dst, 0x80|byte(n>>16&0x0F), byte(n>>8), byte(n))
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
