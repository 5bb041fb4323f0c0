package classify

import "github.com/znnlabs/bridgewatch/internal/core/domain"

// Validator decides which classified transactions are bridge activity worth
// persisting and alerting on.
type Validator struct {
	burn   string
	tokens TokenTable
}

// NewValidator creates a validity filter.
func NewValidator(burnAddress string, tokens TokenTable) *Validator {
	return &Validator{burn: burnAddress, tokens: tokens}
}

// Accepts reports whether a transaction may reach persistence and fanout.
// Transfer and Unknown are observational noise; burns are not bridge
// activity.
func (v *Validator) Accepts(tx *domain.Transaction) bool {
	switch tx.Type {
	case domain.TxTypeWrapToken, domain.TxTypeUnwrapToken:
		if !v.tokens.Supported(tx.Token) {
			return false
		}
		if AmountIsZero(tx.Amount) {
			return false
		}
	case domain.TxTypeRedeem:
		// Redeem is a contract call that may carry zero value and no
		// token; a missing token is not grounds for rejection.
	default:
		return false
	}

	if v.burn != "" && tx.To == v.burn {
		return false
	}
	return true
}
