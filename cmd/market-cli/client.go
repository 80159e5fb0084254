package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nftmarket/core/types"
)

// apiError mirrors the gateway error body.
type apiError struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Message)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.RequestID != "" {
		msg += " request " + e.RequestID
	}
	return msg
}

type apiClient struct {
	base string
	http *http.Client
}

func newClient(server string) *apiClient {
	base := strings.TrimSpace(server)
	if base == "" {
		base = strings.TrimSpace(os.Getenv(serverEnv))
	}
	if base == "" {
		base = defaultServer
	}
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body []byte, out interface{}) error {
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, c.base+path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// submit posts a signed transaction and returns the raw receipt.
func (c *apiClient) submit(tx *types.Transaction) (json.RawMessage, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	var receipt json.RawMessage
	if err := c.do(http.MethodPost, "/v1/transactions", body, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *apiClient) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, out)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
