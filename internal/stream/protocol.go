package stream

import (
	"encoding/json"
	"fmt"

	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// Ledger subscription methods of the node's JSON-RPC surface.
const (
	methodSubscribe    = "ledger.subscribe"
	methodUnsubscribe  = "ledger.unsubscribe"
	methodSubscription = "ledger.subscription"

	channelByAddress = "accountBlocksByAddress"
	channelAll       = "allAccountBlocks"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rpcEnvelope covers both call responses and push notifications; which one
// arrived is decided by the Method field.
type rpcEnvelope struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      uint64              `json:"id,omitempty"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *rpcError           `json:"error,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  *subscriptionParams `json:"params,omitempty"`
}

type subscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// decodeBlocks accepts both the single-block and the batched notification
// payload shapes the node emits.
func decodeBlocks(raw json.RawMessage) ([]*domain.AccountBlock, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty notification payload")
	}

	var blocks []*domain.AccountBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks, nil
	}

	var single domain.AccountBlock
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("undecodable notification payload: %w", err)
	}
	return []*domain.AccountBlock{&single}, nil
}
