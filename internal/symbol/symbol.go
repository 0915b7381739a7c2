// Package symbol normalizes A-share stock codes.
//
// Accepted forms: "sh.600000", "sz.000001", or a bare 6-digit code. Bare
// codes get a market prefix from the leading digit: 6 is Shanghai, 0 and 3
// are Shenzhen.
package symbol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCode = errors.New("invalid stock code")

// Normalize validates a stock code and returns its canonical prefixed form.
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrInvalidCode)
	}

	if strings.HasPrefix(code, "sh.") || strings.HasPrefix(code, "sz.") {
		if !isSixDigits(code[3:]) {
			return "", fmt.Errorf("%w: %q must carry a 6-digit code", ErrInvalidCode, code)
		}
		return code, nil
	}

	if !isSixDigits(code) {
		return "", fmt.Errorf("%w: %q is not a 6-digit code", ErrInvalidCode, code)
	}

	switch code[0] {
	case '6':
		return "sh." + code, nil
	case '0', '3':
		return "sz." + code, nil
	default:
		return "", fmt.Errorf("%w: %q has an unknown market prefix digit (6 is Shanghai, 0/3 is Shenzhen)", ErrInvalidCode, code)
	}
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatMoney renders an amount with Chinese unit suffixes for CLI output.
func FormatMoney(amount float64) string {
	switch {
	case amount >= 1e8:
		return fmt.Sprintf("%.2f亿", amount/1e8)
	case amount >= 1e4:
		return fmt.Sprintf("%.2f万", amount/1e4)
	default:
		return fmt.Sprintf("%.2f", amount)
	}
}
