package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Do performs a single HTTP request. Cancelling ctx aborts the call and the
// returned error wraps the context error.
func (r *RestyClient) Do(ctx context.Context, url string, cfg RequestConfig) (Response, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	req := r.client.R().SetContext(ctx)
	if len(cfg.Headers) > 0 {
		req.SetHeaders(cfg.Headers)
	}
	if len(cfg.Query) > 0 {
		req.SetQueryParams(cfg.Query)
	}
	if cfg.Body != nil {
		req.SetBody(cfg.Body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}

	out := &restyResponseAdapter{resp: resp}
	validate := cfg.ValidateStatus
	if validate == nil {
		validate = DefaultValidateStatus
	}
	if !validate(resp.StatusCode()) {
		return nil, &StatusError{Method: method, URL: url, Response: out}
	}
	return out, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
