package backend

import (
	"fmt"
	"math/big"
	"strings"
)

// NormalizeCounts rewrites device counts into binary keys of exactly nBits
// characters. Register separators (spaces) are removed, hexadecimal keys
// ("0x1f" or any key with non-binary hex digits) are converted to binary and
// short keys are zero-padded. A key whose value needs more than nBits bits
// is an ErrInvalidCounts. Keys that collide after normalisation are merged.
// nBits <= 0 disables the width handling.
func NormalizeCounts(counts map[string]int, nBits int) (Counts, error) {
	out := make(Counts, len(counts))
	for raw, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d for %q", ErrInvalidCounts, n, raw)
		}
		key, err := normalizeKey(raw, nBits)
		if err != nil {
			return nil, err
		}
		out[key] += n
	}
	return out, nil
}

func normalizeKey(raw string, nBits int) (string, error) {
	key := strings.Join(strings.Fields(raw), "")

	if hex, ok := strings.CutPrefix(key, "0x"); ok {
		return hexToBinary(raw, hex, nBits)
	}
	if !isBinary(key) {
		if !isHex(key) {
			return "", fmt.Errorf("%w: key %q is neither binary nor hexadecimal", ErrInvalidCounts, raw)
		}
		return hexToBinary(raw, key, nBits)
	}
	if nBits > 0 && len(key) > nBits {
		// leading zeros from a wider classical register are harmless
		trimmed := strings.TrimLeft(key, "0")
		if len(trimmed) > nBits {
			return "", fmt.Errorf("%w: key %q has more than %d bits", ErrInvalidCounts, raw, nBits)
		}
		key = trimmed
	}
	return pad(key, nBits), nil
}

func hexToBinary(raw, digits string, nBits int) (string, error) {
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return "", fmt.Errorf("%w: bad hexadecimal key %q", ErrInvalidCounts, raw)
	}
	if nBits <= 0 {
		return pad(v.Text(2), 4*len(digits)), nil
	}
	if v.BitLen() > nBits {
		return "", fmt.Errorf("%w: hexadecimal key %q needs %d bits, circuit has %d", ErrInvalidCounts, raw, v.BitLen(), nBits)
	}
	return pad(v.Text(2), nBits), nil
}

func pad(key string, width int) string {
	if len(key) >= width {
		return key
	}
	return strings.Repeat("0", width-len(key)) + key
}

func isBinary(s string) bool {
	for _, r := range s {
		if r != '0' && r != '1' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
