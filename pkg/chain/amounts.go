package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// Fungible amounts cross the API boundary as decimal strings and live
// on-chain as atomic integers scaled by the token's decimals. These two
// helpers are the only conversion points.

// parseAmount converts a decimal string into an atomic integer amount for
// a token with the given decimals. Fractional digits beyond the declared
// precision are truncated. Negative, empty, and non-numeric inputs error.
func parseAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, fmt.Errorf("amount %q must be an unsigned decimal", amount)
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("amount %q is not a decimal number", amount)
	}

	// Truncate extraneous precision, pad the rest to the atomic scale.
	if len(frac) > int(decimals) {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	atomic, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a decimal number", amount)
	}
	return atomic, nil
}

// formatAmount renders an atomic integer amount as a decimal string.
// Trailing zeros in the fraction are trimmed down to a single digit, so
// whole values read "500.0" rather than "500" or "500.000000000000000000".
func formatAmount(atomic *big.Int, decimals uint8) string {
	if decimals == 0 {
		return atomic.String()
	}

	digits := atomic.String()
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	split := len(digits) - int(decimals)
	whole, frac := digits[:split], digits[split:]

	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return whole + "." + frac
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
