// Package fp8 implements the E4M3 8-bit floating point codec used by the
// quantized GEMM path: 1 sign bit, 4 exponent bits (bias 7), 3 mantissa bits,
// no infinities, 0x7F/0xFF reserved for NaN.
package fp8

import (
	"math"
	"sort"
)

// MaxValue is the largest finite magnitude representable in E4M3 (code 0x7E).
// Quantization scales are derived from it: scale = amax / MaxValue.
const MaxValue = 448.0

const (
	signMask = 0x80
	nanCode  = 0x7f
	maxCode  = 0x7e
)

// decodeTable maps every positive code (0x00..0x7F) to its float32 value.
// Negative codes mirror with the sign bit.
var decodeTable [128]float32

func init() {
	for code := 0; code < 128; code++ {
		decodeTable[code] = decode(byte(code))
	}
}

func decode(code byte) float32 {
	if code == nanCode {
		return float32(math.NaN())
	}
	exp := int(code>>3) & 0xf
	mant := int(code) & 0x7
	if exp == 0 {
		// Subnormal: mant * 2^-9
		return float32(mant) * 0x1p-9
	}
	return float32(math.Ldexp(float64(8+mant)/8, exp-7))
}

// ToFloat32 decodes an E4M3 byte.
func ToFloat32(b byte) float32 {
	v := decodeTable[b&0x7f]
	if b&signMask != 0 {
		return -v
	}
	return v
}

// FromFloat32 encodes f as E4M3, rounding to the nearest representable value
// with ties to even. Magnitudes above MaxValue saturate to the max finite
// code rather than producing NaN.
func FromFloat32(f float32) byte {
	var sign byte
	if math.Signbit(float64(f)) {
		sign = signMask
	}
	if math.IsNaN(float64(f)) {
		return sign | nanCode
	}
	a := float32(math.Abs(float64(f)))
	if a >= MaxValue {
		return sign | maxCode
	}

	// decodeTable[0..maxCode] is strictly increasing; find the first code
	// whose value is >= a, then round between it and its predecessor.
	hi := sort.Search(maxCode+1, func(i int) bool { return decodeTable[i] >= a })
	if decodeTable[hi] == a {
		return sign | byte(hi)
	}
	lo := hi - 1
	dLo := a - decodeTable[lo]
	dHi := decodeTable[hi] - a
	switch {
	case dLo < dHi:
		return sign | byte(lo)
	case dHi < dLo:
		return sign | byte(hi)
	case lo&1 == 0: // exact tie: keep the even code
		return sign | byte(lo)
	default:
		return sign | byte(hi)
	}
}

// DecodeSlice decodes src into dst. Lengths must match.
func DecodeSlice(dst []float32, src []byte) {
	for i, b := range src {
		dst[i] = ToFloat32(b)
	}
}

// EncodeSlice encodes src into dst. Lengths must match.
func EncodeSlice(dst []byte, src []float32) {
	for i, v := range src {
		dst[i] = FromFloat32(v)
	}
}
