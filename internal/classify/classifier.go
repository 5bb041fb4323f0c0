package classify

import (
	"bytes"
	"encoding/hex"
	"math/big"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// sigLen is the length of the method signature prefix in contract call data.
const sigLen = 4

// Config holds the classification tables. Both tables are injected data so
// deployments can revise them without touching classifier logic.
type Config struct {
	BridgeAddress string
	Signatures    map[string]domain.TxType // hex-encoded signature -> type
	Tokens        TokenTable
}

// Classifier turns raw account blocks into classified transactions. It is
// stateless after construction; Classify is a pure function of its input.
type Classifier struct {
	bridge     string
	signatures map[string]domain.TxType
	tokens     TokenTable
}

// New creates a classifier from the given tables.
func New(cfg Config) *Classifier {
	sigs := make(map[string]domain.TxType, len(cfg.Signatures))
	for sig, t := range cfg.Signatures {
		sigs[sig] = t
	}
	return &Classifier{
		bridge:     cfg.BridgeAddress,
		signatures: sigs,
		tokens:     cfg.Tokens,
	}
}

// Classify derives a transaction from one account block.
func (c *Classifier) Classify(b *domain.AccountBlock) *domain.Transaction {
	tx := &domain.Transaction{
		Hash:        b.Hash,
		From:        b.Address,
		To:          b.ToAddress,
		Token:       b.TokenStandard,
		Amount:      b.Amount,
		BlockHeight: b.Height,
		Timestamp:   b.Timestamp(),
	}
	if tx.Amount == "" {
		tx.Amount = "0"
	}

	tx.Type = c.resolveType(b)
	tx.EthAddress = ExtractEthAddress(b.Data)
	tx.FormattedAmount = c.tokens.Format(tx.Amount, tx.Token)
	return tx
}

// resolveType applies the resolution order: a method signature match is
// unambiguous and wins over every heuristic below it.
func (c *Classifier) resolveType(b *domain.AccountBlock) domain.TxType {
	if len(b.Data) >= sigLen {
		sig := hex.EncodeToString(b.Data[:sigLen])
		if t, ok := c.signatures[sig]; ok {
			return t
		}
	}

	supported := c.tokens.Supported(b.TokenStandard)
	nonZero := !AmountIsZero(b.Amount)

	if b.ToAddress == c.bridge && supported && nonZero {
		return domain.TxTypeWrapToken
	}
	// Unsigned bridge-originated transfers default to UnwrapToken. This is
	// a policy choice; a revised signature table overrides it per-method.
	if b.Address == c.bridge && supported && nonZero {
		return domain.TxTypeUnwrapToken
	}
	if b.Address != c.bridge && b.ToAddress != c.bridge &&
		b.Address != b.ToAddress && len(b.Data) == 0 {
		return domain.TxTypeTransfer
	}
	return domain.TxTypeUnknown
}

// ExtractEthAddress scans call data for an embedded 0x-prefixed 40-hex-digit
// address and returns the first syntactically valid one, or "".
func ExtractEthAddress(data []byte) string {
	const addrLen = 42 // "0x" + 40 hex digits

	for off := 0; off+addrLen <= len(data); {
		idx := bytes.Index(data[off:], []byte("0x"))
		if idx < 0 {
			return ""
		}
		start := off + idx
		if start+addrLen > len(data) {
			return ""
		}
		candidate := data[start : start+addrLen]
		if isHex(candidate[2:]) {
			return string(candidate)
		}
		off = start + 2
	}
	return ""
}

func isHex(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return len(b) > 0
}

// AmountIsZero reports whether a raw decimal amount string is zero or
// unparseable.
func AmountIsZero(raw string) bool {
	if raw == "" {
		return true
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return true
	}
	return n.Sign() == 0
}
