package domain

import "time"

// AccountBlock is a raw ledger event as pushed by the node. It is owned by
// the stream layer until handed to the classifier and never mutated after
// decode.
type AccountBlock struct {
	Hash               string              `json:"hash"`
	Address            string              `json:"address"`
	ToAddress          string              `json:"toAddress"`
	TokenStandard      string              `json:"tokenStandard"`
	Amount             string              `json:"amount"`
	Data               []byte              `json:"data"`
	Height             uint64              `json:"height"`
	ConfirmationDetail *ConfirmationDetail `json:"confirmationDetail,omitempty"`
	PairedAccountBlock *AccountBlock       `json:"pairedAccountBlock,omitempty"`
}

// ConfirmationDetail carries the momentum that confirmed the block.
// Absent for unconfirmed blocks.
type ConfirmationDetail struct {
	MomentumHeight    uint64 `json:"momentumHeight"`
	MomentumHash      string `json:"momentumHash"`
	MomentumTimestamp int64  `json:"momentumTimestamp"`
}

// Timestamp returns the confirmation time, or nil if the block has no
// confirmation detail yet.
func (b *AccountBlock) Timestamp() *time.Time {
	if b.ConfirmationDetail == nil || b.ConfirmationDetail.MomentumTimestamp == 0 {
		return nil
	}
	t := time.Unix(b.ConfirmationDetail.MomentumTimestamp, 0).UTC()
	return &t
}
