package classify

import (
	"math/big"
	"strings"
)

// defaultDecimals applies to tokens missing from the table.
const defaultDecimals = 8

// Token describes one supported token standard.
type Token struct {
	Symbol   string
	Decimals int
}

// TokenTable maps token standard identifiers to token metadata.
type TokenTable map[string]Token

// Supported reports whether the token standard is in the table.
func (t TokenTable) Supported(zts string) bool {
	_, ok := t[zts]
	return ok
}

// Symbol returns the display symbol for a token standard, falling back to a
// truncated identifier for unknown tokens.
func (t TokenTable) Symbol(zts string) string {
	if tok, ok := t[zts]; ok && tok.Symbol != "" {
		return tok.Symbol
	}
	if len(zts) > 8 {
		return zts[:8]
	}
	return zts
}

// Format renders a raw integer amount scaled by the token's decimal places,
// with thousands separators and two fractional digits. Anything that fails
// to parse falls back to the raw string: formatting must never break
// classification.
func (t TokenTable) Format(raw, zts string) string {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return raw
	}

	decimals := defaultDecimals
	if tok, found := t[zts]; found {
		decimals = tok.Decimals
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f := new(big.Float).SetInt(n)
	f.Quo(f, new(big.Float).SetInt(scale))

	return groupThousands(f.Text('f', 2))
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
