package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/reqwatch/pkg/httpclient"
)

// httpPublisher posts events as JSON through the shared transport.
type httpPublisher struct {
	id      string
	url     string
	request httpclient.RequestConfig
	client  httpclient.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("missing http configuration")
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}

	return &httpPublisher{
		id:  cfg.ID,
		url: cfg.HTTP.URL,
		request: httpclient.RequestConfig{
			Method:  cfg.HTTP.Method,
			Headers: headers,
			Timeout: timeout,
		},
		client: httpclient.NewRestyClient(timeout),
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event; any non-2xx answer is an error.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.request
	req.Body = evt

	resp, err := h.client.Do(ctx, h.url, req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	h.log.DebugObj("http publisher delivered event", "publisher_delivery", deliveryFields(h, evt, map[string]any{
		"status_code": resp.StatusCode(),
	}))
	return nil
}
