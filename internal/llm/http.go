package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PACSamericana/poly/internal/util"
)

// restClient speaks JSON over HTTP for providers without an SDK here
type restClient struct {
	provider string
	baseURL  string
	header   http.Header
	client   *http.Client
}

func newRestClient(provider, baseURL string, timeout time.Duration, config Config) *restClient {
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}
	return &restClient{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		header:   http.Header{"Content-Type": {"application/json"}},
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)},
		},
	}
}

// post sends in as JSON and decodes a 200 reply into out. detail pulls the
// service's own error text out of a non-200 body; it may return nil.
func (c *restClient) post(ctx context.Context, path string, in, out any, detail func([]byte) error) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &GatewayError{Provider: c.provider, Op: "request", Err: fmt.Errorf("marshal request: %w", err)}
	}
	raw, err := c.do(ctx, http.MethodPost, path, body, detail)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Provider: c.provider, Op: "parse", Raw: string(raw), Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return nil
}

// get succeeds when path answers 200
func (c *restClient) get(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, nil)
	return err
}

func (c *restClient) do(ctx context.Context, method, path string, body []byte, detail func([]byte) error) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &GatewayError{Provider: c.provider, Op: "request", Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, requestError(c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, requestError(c.provider, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		var cause error
		if detail != nil {
			cause = detail(raw)
		}
		return nil, statusError(c.provider, resp.StatusCode, string(raw), cause)
	}
	return raw, nil
}

// emptyReply is returned when the service answered 200 with no usable text
func emptyReply(provider, what string) *GatewayError {
	return &GatewayError{Provider: provider, Op: "empty", Err: errors.New(what)}
}
