package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/google/uuid"
)

// Client calls a marketd JSON-RPC endpoint.
type Client struct {
	url  string
	http *http.Client
	key  *crypto.KeyPair
}

// NewClient returns a client for the endpoint at url. key signs RoleSigned
// calls and may be nil for guest-only use.
func NewClient(url string, timeout time.Duration, key *crypto.KeyPair) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		key:  key,
	}
}

type response struct {
	Result json.RawMessage `json:"result"`
	ID     interface{}     `json:"id,omitempty"`
}

type resultStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorCode    int    `json:"error_code"`
	ErrorClass   string `json:"error_class"`
	ErrorMessage string `json:"error_message"`
	Retry        bool   `json:"retry"`
}

// Call invokes method with params and decodes the result into out, which may
// be nil. Error results come back as *RpcError.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	var list []interface{}
	if params != nil {
		list = []interface{}{params}
	}
	body, err := json.Marshal(map[string]interface{}{
		"method": method,
		"params": list,
		"id":     uuid.NewString(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http status code %d: %s", resp.StatusCode, data)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	var status resultStatus
	if err := json.Unmarshal(r.Result, &status); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if status.Status == "error" {
		return &RpcError{
			Code:        status.ErrorCode,
			ErrorString: status.Error,
			Class:       status.ErrorClass,
			Message:     status.ErrorMessage,
			Retry:       status.Retry,
		}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(r.Result, out)
}

// CallSigned signs tx for method with the client key and invokes it. The
// sequence is the next one the server expects from the key's account.
func (c *Client) CallSigned(ctx context.Context, method string, tx interface{}, out interface{}) error {
	if c.key == nil {
		return errors.New("rpc: client has no signing key")
	}
	seq, err := c.NextSequence(ctx, c.key.Address())
	if err != nil {
		return fmt.Errorf("fetch sequence: %w", err)
	}
	params, err := SignParams(c.key, method, seq, tx)
	if err != nil {
		return err
	}
	return c.Call(ctx, method, params, out)
}

// NextSequence returns the sequence the next signed tx from a must carry.
func (c *Client) NextSequence(ctx context.Context, a account.Address) (uint64, error) {
	var info struct {
		Sequence uint64 `json:"sequence"`
	}
	if err := c.Call(ctx, "account_info", map[string]interface{}{"account": a}, &info); err != nil {
		return 0, err
	}
	return info.Sequence, nil
}
