package fastinfoset

import (
	"cmp"
	"fmt"

	"github.com/jacoelho/fastinfoset/internal/algorithm"
)

const (
	defaultMaxDepth          = 4096
	defaultMaxOctetString    = 64 << 20
	defaultAttributeValueMax = 32
	defaultChunkMax          = 32

	maxApplicationAlgorithms = algorithm.MaxID - algorithm.ApplicationStart + 1
)

type decodeLimits struct {
	maxDepth       int
	maxOctetString int
}

type indexLimits struct {
	attributeValueMax int
	chunkMax          int
}

func resolveDecodeLimits(maxDepth, maxOctetString int) (decodeLimits, error) {
	if maxDepth < 0 {
		return decodeLimits{}, fmt.Errorf("max depth must be >= 0")
	}
	if maxOctetString < 0 {
		return decodeLimits{}, fmt.Errorf("max octet string length must be >= 0")
	}
	return decodeLimits{
		maxDepth:       defaultLimit(maxDepth, defaultMaxDepth),
		maxOctetString: defaultLimit(maxOctetString, defaultMaxOctetString),
	}, nil
}

func resolveIndexLimits(attributeValueMax, chunkMax int) (indexLimits, error) {
	if attributeValueMax < 0 {
		return indexLimits{}, fmt.Errorf("attribute value size limit must be >= 0")
	}
	if chunkMax < 0 {
		return indexLimits{}, fmt.Errorf("character chunk size limit must be >= 0")
	}
	return indexLimits{
		attributeValueMax: defaultLimit(attributeValueMax, defaultAttributeValueMax),
		chunkMax:          defaultLimit(chunkMax, defaultChunkMax),
	}, nil
}

func defaultLimit(value, fallback int) int {
	return cmp.Or(value, fallback)
}
