// ABOUTME: JSON-RPC client submitting receipts to an external receipt ledger
// ABOUTME: Wraps the submit call in bounded retries with its own timeout

package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/bootgate/bootgate/internal/store"
)

const submitTool = "receiptgate.submit_receipt"

// Client submits receipts to a ledger speaking the JSON-RPC tools/call
// protocol.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a ledger client. The endpoint is normalized to end in
// /mcp. Timeout bounds each individual attempt.
func NewClient(endpoint, authToken string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   normalizeEndpoint(endpoint),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string    `json:"name"`
	Arguments store.Doc `json:"arguments"`
}

type rpcResponse struct {
	Error *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Submit sends one receipt, retrying transient failures a few times before
// giving up. A JSON-RPC level error is terminal: the ledger saw the payload
// and rejected it.
func (c *Client) Submit(ctx context.Context, receipt store.Doc) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: rpcParams{
			Name:      submitTool,
			Arguments: store.Doc{"receipt": receipt},
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling receipt request: %w", err)
	}

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
	)
	return r.Do(func() error { return c.post(ctx, body) })
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting receipt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("ledger returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return retry.Unrecoverable(fmt.Errorf("ledger rejected receipt with %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading ledger response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("decoding ledger response: %w", err)
	}
	if rpcResp.Error != nil {
		return retry.Unrecoverable(fmt.Errorf("ledger error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	return nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint != "" && !strings.HasSuffix(endpoint, "/mcp") {
		endpoint += "/mcp"
	}
	return endpoint
}
