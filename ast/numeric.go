package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeInt parses a WAT-format integer literal: optionally signed, decimal
// or 0x-prefixed hexadecimal, with optional '_' digit-group separators. bits
// is the target integer width (32 or 64); the returned value is sign-
// extended/truncated to that width the same way i32.createValue/
// i64.createValue would, so callers can feed the result straight into
// values.CreateValue.
func DecodeInt(raw string, bits int) (float64, error) {
	s := strings.ReplaceAll(raw, "_", "")
	neg := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("ast: empty integer literal %q", raw)
	}

	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		// Value may exceed 64 bits in magnitude if huge; WAT allows this for
		// memory/table limits parsed elsewhere, but as a bare integer
		// literal it's an error.
		return 0, fmt.Errorf("ast: invalid integer literal %q: %w", raw, err)
	}

	var mask uint64
	if bits == 32 {
		mask = 0xffffffff
	} else {
		mask = 0xffffffffffffffff
	}
	v := u & mask

	if neg {
		signed := -int64(v)
		return float64(signed), nil
	}
	// Values at/above the signed max wrap into negative range, matching
	// i32/i64.createValue's modulo-2^n semantics when fed back through
	// values.CreateValue.
	if bits == 32 && v > math.MaxInt32 {
		return float64(int32(uint32(v))), nil
	}
	if bits == 64 && v > math.MaxInt64 {
		return float64(int64(v)), nil
	}
	return float64(v), nil
}

// ParseI32 decodes raw as a signed 32-bit integer, clamping/sign-extending
// per the text-format grammar. Used for memory offsets and similar
// positions where only a plain 32-bit index is accepted.
func ParseI32(raw string) (int32, error) {
	v, err := DecodeInt(raw, 32)
	if err != nil {
		return 0, err
	}
	return int32(int64(v)), nil
}

// DecodeFloat parses a WAT-format float literal: decimal with optional 'e'
// exponent, hexadecimal with a mandatory 'p' binary exponent, or one of the
// special tokens inf/nan/nan:0x<hex-payload>, with an optional leading sign
// on all forms. bits is 32 or 64 and controls NaN-payload canonicalization
// width for the "nan:0x..." form.
func DecodeFloat(raw string, bits int) (float64, error) {
	s := strings.ReplaceAll(raw, "_", "")
	neg := false
	body := s
	if strings.HasPrefix(body, "+") {
		body = body[1:]
	} else if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	}

	lower := strings.ToLower(body)
	switch {
	case lower == "inf":
		if neg {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	case lower == "nan":
		return math.NaN(), nil
	case strings.HasPrefix(lower, "nan:0x"):
		payload, err := strconv.ParseUint(lower[len("nan:0x"):], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("ast: invalid nan payload %q: %w", raw, err)
		}
		return nanWithPayload(bits, payload, neg), nil
	}

	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, fmt.Errorf("ast: invalid float literal %q: %w", raw, err)
	}
	if neg {
		f = -f
	}
	if bits == 32 {
		f = float64(float32(f))
	}
	return f, nil
}

func nanWithPayload(bits int, payload uint64, neg bool) float64 {
	if bits == 32 {
		bitsU32 := uint32(0x7fc00000) | (uint32(payload) & 0x7fffff)
		if neg {
			bitsU32 |= 0x80000000
		}
		return float64(math.Float32frombits(bitsU32))
	}
	bitsU64 := uint64(0x7ff8000000000000) | (payload & 0xfffffffffffff)
	if neg {
		bitsU64 |= 0x8000000000000000
	}
	return math.Float64frombits(bitsU64)
}
