// Package question implements the Question Engine: pure, deterministic
// (given an RNG) generation and validation of conversion-trainer prompts.
// Nothing here touches a Room, a connection, or the Store.
package question

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"convtrainer/internal/models"
)

// Generated is the visible prompt and its canonical answer. Answer is
// never sent to a client; callers hold onto it server-side only.
type Generated struct {
	Value  string
	Answer string
}

// Generate produces a fresh question for the given conversion kind and
// mode. Mode only matters for binary/hex, where nibble-sprint narrows
// the range to a single nibble.
func Generate(conv models.Conv, mode models.Mode) Generated {
	switch conv {
	case models.ConvBinaryStandalone:
		n := randRange(0, 255)
		if mode == models.ModeNibbleSprint {
			n = randRange(0, 15)
		}
		return Generated{Value: strconv.Itoa(n), Answer: toBinary(n, nibbleWidth(mode))}
	case models.ConvHexStandalone:
		n := randRange(0, 255)
		if mode == models.ModeNibbleSprint {
			n = randRange(0, 15)
		}
		return Generated{Value: strconv.Itoa(n), Answer: toHex(n, hexWidth(mode))}
	case models.ConvIPv6Hextet:
		n := randRange(0, 65535)
		return Generated{Value: strconv.Itoa(n), Answer: toHex(n, 4)}
	case models.ConvIPv4Full:
		a := randRange(1, 223)
		b := randRange(0, 255)
		c := randRange(0, 255)
		d := randRange(1, 254)
		value := fmt.Sprintf("%d.%d.%d.%d", a, b, c, d)
		answer := fmt.Sprintf("%s.%s.%s.%s", toBinary(a, 8), toBinary(b, 8), toBinary(c, 8), toBinary(d, 8))
		return Generated{Value: value, Answer: answer}
	default:
		return Generated{}
	}
}

func nibbleWidth(mode models.Mode) int {
	if mode == models.ModeNibbleSprint {
		return 4
	}
	return 8
}

func hexWidth(mode models.Mode) int {
	if mode == models.ModeNibbleSprint {
		return 1
	}
	return 2
}

func randRange(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

func toBinary(n, width int) string {
	s := strconv.FormatInt(int64(n), 2)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func toHex(n, width int) string {
	s := strings.ToUpper(strconv.FormatInt(int64(n), 16))
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// Normalize trims, lowercases, strips an optional "0x" prefix for hex
// conversions, and maps the numpad alias "2" to "0". It never fails; it
// always returns *some* string, possibly one that will not compare equal
// to a canonical answer.
func Normalize(input string, conv models.Conv) string {
	s := strings.TrimSpace(input)
	s = strings.ToLower(s)
	if s == "2" {
		s = "0"
	}
	switch conv {
	case models.ConvHexStandalone, models.ConvIPv6Hextet:
		s = strings.TrimPrefix(s, "0x")
		s = strings.ToUpper(s)
	case models.ConvBinaryStandalone:
		// left as-is; binary has no prefix convention
	case models.ConvIPv4Full:
		// left as-is; compared byte-for-byte against an octet-dotted binary string
	}
	return s
}

// IsCorrect compares a raw submission against a canonical answer for the
// given conversion kind. Hex compares case-insensitively (both sides are
// upper-cased by Normalize); binary and IPv4 compare byte-for-byte.
func IsCorrect(input, answer string, conv models.Conv) bool {
	return Normalize(input, conv) == Normalize(answer, conv)
}
