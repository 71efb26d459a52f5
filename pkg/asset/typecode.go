package asset

import (
	"fmt"
	"math"

	"github.com/cyrogem/nodedialogue/pkg/dialogue"
	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// Type codes for the fixed node kinds. Codes at or above codeOptionBase are
// Option nodes.
const (
	CodeStart    = 0
	CodeDialogue = 1
	CodeEnd      = 2

	codeOptionBase = 3
)

// MaxPacked is the exclusive upper bound for both the option count and the
// pool offset packed into an Option type code. The offset lives in the
// fractional part scaled by 1e-6, so anything at or above 1e6 would bleed
// into the integer part.
const MaxPacked = 1_000_000

const offsetScale = 1e-6

// ErrTypeCodeOverflow is returned when an Option node has too many options,
// or sits too deep in the option pool, for its type code to round-trip.
var ErrTypeCodeOverflow = errors.New(errors.ErrCodeUnsupported, "type code overflow")

// EncodeTypeCode packs an Option node's option count and its offset into the
// option-line pool as 3 + count + offset*1e-6.
func EncodeTypeCode(count, offset int) (float64, error) {
	if count < 0 || offset < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "negative option count or offset (%d, %d)", count, offset)
	}
	if count >= MaxPacked || offset >= MaxPacked {
		return 0, fmt.Errorf("%w: option count %d or pool offset %d exceeds %d", ErrTypeCodeOverflow, count, offset, MaxPacked-1)
	}
	return float64(codeOptionBase+count) + float64(offset)*offsetScale, nil
}

// DecodeTypeCode unpacks an Option type code. The count is the integer part
// minus three and the offset is the fractional part scaled back up and
// rounded to the nearest integer.
func DecodeTypeCode(code float64) (count, offset int) {
	whole := math.Floor(code)
	count = int(whole) - codeOptionBase
	offset = int(math.Round((code - whole) * MaxPacked))
	return count, offset
}

// KindOf returns the node kind a type code stands for. Codes below 3 must be
// exact integers.
func KindOf(code float64) (dialogue.Kind, error) {
	if math.IsNaN(code) || math.IsInf(code, 0) || code < 0 {
		return 0, errors.New(errors.ErrCodeCorruptAsset, "invalid type code %v", code)
	}
	if code >= codeOptionBase {
		return dialogue.KindOption, nil
	}
	switch code {
	case CodeStart:
		return dialogue.KindStart, nil
	case CodeDialogue:
		return dialogue.KindDialogue, nil
	case CodeEnd:
		return dialogue.KindEnd, nil
	}
	return 0, errors.New(errors.ErrCodeCorruptAsset, "invalid type code %v", code)
}

// CodeOf returns the fixed type code for a non-Option kind.
func CodeOf(k dialogue.Kind) float64 {
	switch k {
	case dialogue.KindStart:
		return CodeStart
	case dialogue.KindEnd:
		return CodeEnd
	default:
		return CodeDialogue
	}
}
