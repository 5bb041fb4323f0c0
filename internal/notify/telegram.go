package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/znnlabs/bridgewatch/internal/classify"
	"github.com/znnlabs/bridgewatch/internal/core/domain"
)

// TelegramNotifier delivers alerts through the Telegram Bot API. The
// subscriber ID doubles as the chat ID.
type TelegramNotifier struct {
	token   string
	apiBase string
	tokens  classify.TokenTable
	client  *http.Client
}

// NewTelegramNotifier creates a Telegram notifier. apiBase is overridable
// for tests.
func NewTelegramNotifier(token, apiBase string, tokens classify.TokenTable) *TelegramNotifier {
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		token:   token,
		apiBase: strings.TrimRight(apiBase, "/"),
		tokens:  tokens,
		client:  &http.Client{},
	}
}

// Send posts a sendMessage request for one subscriber. The per-delivery
// timeout comes in through the context.
func (n *TelegramNotifier) Send(
	ctx context.Context,
	sub *domain.Subscriber,
	tx *domain.Transaction,
) error {
	payload := map[string]any{
		"chat_id":                  sub.ID,
		"text":                     n.renderText(tx),
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded %d", resp.StatusCode)
	}
	return nil
}

func (n *TelegramNotifier) renderText(tx *domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s\n", tx.Type, tx.FormattedAmount, n.tokens.Symbol(tx.Token))
	fmt.Fprintf(&b, "From: %s\n", tx.From)
	fmt.Fprintf(&b, "To: %s\n", tx.To)
	if tx.EthAddress != "" {
		fmt.Fprintf(&b, "ETH: %s\n", tx.EthAddress)
	}
	fmt.Fprintf(&b, "Hash: %s", tx.Hash)
	return b.String()
}
