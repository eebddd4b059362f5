// Package stacks provides a minimal client for read-only contract calls
// against a Stacks node API. Results come back as decoded tagged values;
// the raw on-chain encoding is the node's concern, not ours.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for call failures
var (
	ErrCallRejected      = errors.New("read-only call rejected by node")
	ErrUnexpectedStatus  = errors.New("unexpected response status")
	ErrResponseMalformed = errors.New("malformed node response")
	ErrInvalidContract   = errors.New("contract identifier must be address.name")
)

// Call identifies a single read-only contract function invocation
type Call struct {
	Contract string   // fully qualified contract identifier, "SP....name"
	Function string   // read-only function name
	Args     []string // positional encoded arguments
	Sender   string   // principal used as the call's sender (auth context)
}

// Client calls read-only contract functions over the node's HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a read-only call client for the given node
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// callReadRequest is the node's call-read request body
type callReadRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// callReadResponse is the node's call-read response envelope
type callReadResponse struct {
	Okay   bool    `json:"okay"`
	Result *Value  `json:"result,omitempty"`
	Cause  *string `json:"cause,omitempty"`
}

// CallReadOnly performs a single read-only function call and returns the
// decoded result value. The call is idempotent and has no on-chain effects.
func (c *Client) CallReadOnly(ctx context.Context, call Call) (Value, error) {
	// The node addresses contracts by deployer address and contract name
	address, name, ok := strings.Cut(call.Contract, ".")
	if !ok || address == "" || name == "" {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidContract, call.Contract)
	}
	url := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s", c.baseURL, address, name, call.Function)

	args := call.Args
	if args == nil {
		args = []string{}
	}
	body, err := json.Marshal(callReadRequest{
		Sender:    call.Sender,
		Arguments: args,
	})
	if err != nil {
		return Value{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Value{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Value{}, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Value{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var decoded callReadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrResponseMalformed, err)
	}

	if !decoded.Okay {
		cause := "unknown cause"
		if decoded.Cause != nil {
			cause = *decoded.Cause
		}
		return Value{}, fmt.Errorf("%w: %s: %s", ErrCallRejected, call.Function, cause)
	}

	if decoded.Result == nil {
		return Value{}, fmt.Errorf("%w: missing result", ErrResponseMalformed)
	}

	return *decoded.Result, nil
}
