// server.go 包括客户端与服务端交互的接口和函数

package clientlib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CamberLoid/FHEVault/internal/restfulpayload"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/pkg/errors"
)

const (
	DefaultServerURL string = "http://127.0.0.1:16001"
	DefaultTimeout          = 90 * time.Second

	SubmitEndpoint     string = "/api/strategies/submit"
	StrategiesEndpoint string = "/api/strategies"
	StatsEndpoint      string = "/api/stats"
	VersionEndpoint    string = "/version"
)

// APIError 是服务端返回的失败响应
type APIError struct {
	StatusCode int
	Message    string
	Details    []strategy.FieldError
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	for _, d := range e.Details {
		msg += fmt.Sprintf("; %s: %s", d.Field, d.Message)
	}
	return msg
}

// Client 是 REST 接口的客户端
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

func strategyPath(id string, suffix ...string) string {
	return StrategiesEndpoint + "/" + url.PathEscape(id) + strings.Join(suffix, "")
}

func (c *Client) SubmitStrategy(ctx context.Context, req restfulpayload.SubmitStrategyReq) (resp restfulpayload.SubmitResp, err error) {
	err = c.do(ctx, http.MethodPost, SubmitEndpoint, req, &resp)
	return
}

func (c *Client) ComputeStrategy(ctx context.Context, id string) (resp restfulpayload.ComputeResp, err error) {
	err = c.do(ctx, http.MethodPost, strategyPath(id, "/compute"), nil, &resp)
	return
}

func (c *Client) GetStrategy(ctx context.Context, id string) (*strategy.Record, error) {
	var resp restfulpayload.StrategyResp
	if err := c.do(ctx, http.MethodGet, strategyPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategy, nil
}

func (c *Client) ListStrategies(ctx context.Context) ([]*strategy.Record, error) {
	var resp restfulpayload.ListResp
	if err := c.do(ctx, http.MethodGet, StrategiesEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

func (c *Client) ReportDecrypted(ctx context.Context, id string, score int) (*strategy.Record, error) {
	var resp restfulpayload.StrategyResp
	body := restfulpayload.ReportDecryptedReq{DecryptedScore: &score}
	if err := c.do(ctx, http.MethodPost, strategyPath(id, "/decrypted"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Strategy, nil
}

func (c *Client) Stats(ctx context.Context) (resp restfulpayload.StatsResp, err error) {
	err = c.do(ctx, http.MethodGet, StatsEndpoint, nil, &resp)
	return
}

func (c *Client) Version(ctx context.Context) (resp restfulpayload.VersionResp, err error) {
	err = c.do(ctx, http.MethodGet, VersionEndpoint, nil, &resp)
	return
}

// do 发送请求并解码 JSON 响应，非 2xx 时返回 *APIError
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure restfulpayload.FailureResp
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			failure.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: failure.Error, Details: failure.Details}
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
