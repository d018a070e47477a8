// Package httpjson is the shared GET/POST-JSON helper used by coin
// adapters that talk to HTTP-based wallet backends. Failures are typed:
// TransportError for network problems and timeouts, ProtocolError for
// non-2xx responses, DecodeError for unparseable bodies.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/custodia/walletcore/pkg/errors"
)

// Client performs JSON requests with a per-request timeout.
type Client struct {
	hc     *http.Client
	logger *zap.Logger
}

// NewClient creates a client whose requests time out after the given
// duration.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		hc:     &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetJSON performs a GET request and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON performs a POST request with a JSON body and decodes the
// response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.KindDecodeError, "failed to encode request body", err)
	}
	body, err := c.do(ctx, http.MethodPost, url, headers, raw)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransportError, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransportError, fmt.Sprintf("%s %s failed", method, url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindTransportError, "failed to read response body", err)
	}

	c.logger.Debug("http request completed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf(errors.KindProtocolError, "%s %s returned status %d", method, url, resp.StatusCode)
	}
	return body, nil
}

func decode(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(errors.KindDecodeError, "invalid JSON response", err)
	}
	return nil
}
