package domain

import "time"

// Transaction is a classified bridge transaction derived from one account
// block. Classification is a pure function of the block, so two
// transactions with the same hash are structurally identical.
type Transaction struct {
	Hash            string     `json:"hash"`
	Type            TxType     `json:"type"`
	From            string     `json:"from_addr"`
	To              string     `json:"to_addr"`
	Token           string     `json:"token"`
	Amount          string     `json:"amount"`
	FormattedAmount string     `json:"formatted_amount"`
	EthAddress      string     `json:"eth_addr,omitempty"`
	BlockHeight     uint64     `json:"block_height"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

type TxType string

const (
	TxTypeWrapToken         TxType = "WrapToken"
	TxTypeUnwrapToken       TxType = "UnwrapToken"
	TxTypeRedeem            TxType = "Redeem"
	TxTypeUpdateWrapRequest TxType = "UpdateWrapRequest"
	TxTypeTransfer          TxType = "Transfer"
	TxTypeUnknown           TxType = "Unknown"
)

// ParseTxType maps a type name to its TxType. Lower-case spellings used by
// subscriber filters are accepted. Unrecognized names map to Unknown.
func ParseTxType(s string) TxType {
	switch s {
	case string(TxTypeWrapToken), "wraptoken", "wrap":
		return TxTypeWrapToken
	case string(TxTypeUnwrapToken), "unwraptoken", "unwrap":
		return TxTypeUnwrapToken
	case string(TxTypeRedeem), "redeem":
		return TxTypeRedeem
	case string(TxTypeUpdateWrapRequest):
		return TxTypeUpdateWrapRequest
	case string(TxTypeTransfer), "transfer":
		return TxTypeTransfer
	default:
		return TxTypeUnknown
	}
}

// RecordOutcome reports what the store did with a transaction.
type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota
	RecordAlreadyPresent
)

func (o RecordOutcome) String() string {
	switch o {
	case RecordInserted:
		return "inserted"
	case RecordAlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// StatRow is one aggregate row of store statistics: transactions of one
// type/token pair inside the queried window. Volume is the exact sum of raw
// (unscaled) amounts as a decimal string; bridge volumes exceed what
// float64 carries losslessly.
type StatRow struct {
	Type   TxType
	Token  string
	Count  int64
	Volume string
}
