package domain

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const ShortCodeLength = 6

// 36^6, the number of distinct six-character base36 codes.
const shortCodeSpace = 2176782336

// ShortCode derives the human-facing code for an application id. The mapping is
// one-way and may collide; codes are only ever resolved within a guild.
func ShortCode(id uuid.UUID) string {
	sum := blake2b.Sum256(id[:])
	n := binary.BigEndian.Uint64(sum[:8]) % shortCodeSpace
	code := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(code) < ShortCodeLength {
		code = strings.Repeat("0", ShortCodeLength-len(code)) + code
	}
	return code
}

// NormalizeShortCode upper-cases typed input and checks its shape.
func NormalizeShortCode(input string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "#")))
	if len(code) != ShortCodeLength {
		return "", ErrMalformedShortCode
	}
	for _, r := range code {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return "", ErrMalformedShortCode
		}
	}
	return code, nil
}
