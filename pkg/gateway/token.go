package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const tokenScope = "payment"

type TokenRequest struct {
	InvoiceID   string
	AmountCents int64
	Currency    string
}

// TokenClient obtains the short-lived bearer token the widget needs, scoped to
// one invoice and amount.
type TokenClient struct {
	endpoint string
	terminal string
	secret   string
	client   *http.Client
}

func NewTokenClient(endpoint, terminal, secret string, client *http.Client) *TokenClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenClient{endpoint: endpoint, terminal: terminal, secret: secret, client: client}
}

func (c *TokenClient) Token(ctx context.Context, req TokenRequest) (string, error) {
	if req.InvoiceID == "" {
		return "", errors.New("token request without invoice id")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", tokenScope)
	form.Set("invoiceID", req.InvoiceID)
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", req.Currency)
	form.Set("terminal", c.terminal)
	form.Set("secret_hash", c.secretHash(req.InvoiceID, req.AmountCents))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}
	if payload.AccessToken == "" {
		return "", errors.New("token endpoint returned empty access_token")
	}
	return payload.AccessToken, nil
}

func (c *TokenClient) secretHash(invoiceID string, amountCents int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s;%s;%s;%d", c.terminal, c.secret, invoiceID, amountCents)))
	return hex.EncodeToString(sum[:])
}
