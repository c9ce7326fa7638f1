package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/reqwatch/internal/config"
	"github.com/samvad-hq/reqwatch/internal/logger"
	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/payload"
	"github.com/samvad-hq/reqwatch/pkg/request"
)

type fetchOptions struct {
	method       string
	headers      []string
	query        []string
	data         string
	debounce     time.Duration
	throttle     time.Duration
	timeout      time.Duration
	deadline     time.Duration
	refetch      int
	responseType string
	logLevel     string
}

// result is the JSON document printed after the last attempt settles.
type result struct {
	URL        string `json:"url"`
	Attempt    uint64 `json:"attempt"`
	Finished   bool   `json:"finished"`
	Canceled   bool   `json:"canceled"`
	StatusCode int    `json:"status_code,omitempty"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a URL through a request controller",
		Long: "Fetch issues a request through a request controller, optionally refetching it\n" +
			"under a debounce or throttle policy, and prints the final state as JSON.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), args[0], opts, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as key=value (repeatable)")
	flags.StringArrayVarP(&opts.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	flags.StringVarP(&opts.data, "data", "d", "", "request body")
	flags.DurationVar(&opts.debounce, "debounce", 0, "debounce window for refetches")
	flags.DurationVar(&opts.throttle, "throttle", 0, "throttle window for refetches")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "per-attempt timeout")
	flags.DurationVar(&opts.deadline, "deadline", time.Minute, "overall deadline")
	flags.IntVar(&opts.refetch, "refetch", 0, "number of refetches after the first attempt")
	flags.StringVar(&opts.responseType, "response-type", string(payload.TypeAuto), "payload decoding: auto, json, yaml, html, text or bytes")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	return cmd
}

func runFetch(ctx context.Context, target string, opts *fetchOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.refetch < 0 {
		return errors.New("--refetch must not be negative")
	}
	typ, err := payload.ParseType(opts.responseType)
	if err != nil {
		return err
	}
	headers, err := parsePairs("header", opts.headers)
	if err != nil {
		return err
	}
	query, err := parsePairs("query", opts.query)
	if err != nil {
		return err
	}

	log, err := logger.InitWithWriter(&config.Config{LogLevel: opts.logLevel}, stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(ctx, opts.deadline)
	defer cancel()

	cfg := httpclient.RequestConfig{
		Method:  opts.method,
		Headers: headers,
		Query:   query,
		Timeout: opts.timeout,
	}
	if opts.data != "" {
		cfg.Body = opts.data
	}

	ctrl, err := request.New(ctx, httpclient.NewRestyClient(opts.timeout), target, cfg, request.Options{
		Debounce:     opts.debounce,
		Throttle:     opts.throttle,
		ResponseType: typ,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	st, err := settle(ctx, ctrl, opts)
	if err != nil {
		return fmt.Errorf("wait for settlement: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toResult(ctrl.Target(), st)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if st.Err != nil {
		return st.Err
	}
	return nil
}

// settle waits for the first attempt and then for each refetch. Debounced
// refetches collapse into one trailing attempt, so the burst is issued first
// and only its final attempt is awaited.
func settle(ctx context.Context, ctrl *request.Controller, opts *fetchOptions) (request.State, error) {
	st, err := ctrl.Wait(ctx)
	if err != nil || opts.refetch == 0 {
		return st, err
	}

	if opts.debounce > 0 {
		for i := 0; i < opts.refetch; i++ {
			ctrl.Refetch()
		}
		return ctrl.Wait(ctx)
	}

	for i := 0; i < opts.refetch; i++ {
		ctrl.Refetch()
		if st, err = ctrl.Wait(ctx); err != nil {
			return st, err
		}
	}
	return st, nil
}

func toResult(url string, st request.State) result {
	out := result{
		URL:      url,
		Attempt:  st.Attempt,
		Finished: st.Finished,
		Canceled: st.Canceled,
	}
	if st.Err != nil {
		out.Error = st.Err.Error()
		var statusErr *httpclient.StatusError
		if errors.As(st.Err, &statusErr) {
			out.StatusCode = statusErr.StatusCode()
		}
		return out
	}
	if st.Response != nil {
		out.StatusCode = st.Response.StatusCode()
	}
	out.Data = st.Data
	return out
}

func parsePairs(flag string, raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --%s %q (expected key=value)", flag, kv)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
