package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rentacar/crypto"
)

// Client talks to a rentacard node.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx reply decoded from the server.
type APIError struct {
	Status int
	ErrorResponse
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s (code %d, http %d): %s", e.Name, e.Code, e.Status, e.ErrorResponse.Error)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.ErrorResponse.Error)
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Call signs params for method with every key and submits the envelope. The
// nonce is one past the highest nonce any signer has used.
func (c *Client) Call(ctx context.Context, method string, params interface{}, keys ...*crypto.PrivateKey) (*CallResponse, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("rpc: at least one signing key required")
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode params: %w", err)
	}
	var nonce uint64
	for _, key := range keys {
		var resp NonceResponse
		if err := c.Get(ctx, "/v1/nonces/"+key.PubKey().Address().String(), &resp); err != nil {
			return nil, err
		}
		if resp.Nonce > nonce {
			nonce = resp.Nonce
		}
	}
	env := Envelope{Method: method, Params: raw, Nonce: nonce + 1}
	for _, key := range keys {
		if err := env.Sign(key); err != nil {
			return nil, err
		}
	}
	var out CallResponse
	if err := c.do(ctx, http.MethodPost, "/v1/call", env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get decodes the JSON reply of a read endpoint into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.ErrorResponse); err != nil {
			apiErr.ErrorResponse.Error = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
