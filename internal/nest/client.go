package nest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/redec/homebridge-nest/internal/infrastructure/config"
)

// maxRedirects matches net/http's default limit.
const maxRedirects = 10

// maxEventSize bounds a single stream line. A full tree for a large
// account runs to a few hundred kilobytes.
const maxEventSize = 4 << 20

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Logger defines the logging interface used by Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to the Nest developer API.
type Client struct {
	base   *url.URL
	token  string
	logger Logger

	// http carries writes and has the configured request timeout.
	http *http.Client

	// stream has no timeout; the event stream stays open indefinitely.
	stream *http.Client
}

// New creates a Client from configuration.
//
// Parameters:
//   - cfg: Nest API URL, token and request timeout
//   - logger: May be nil
//
// Returns:
//   - *Client: Ready client; no connection is made until first use
//   - error: ErrMissingToken or ErrInvalidURL
func New(cfg config.NestConfig, logger Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	base, err := url.Parse(cfg.APIURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.APIURL)
	}
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Client{
		base:   base,
		token:  cfg.Token,
		logger: logger,
	}
	c.http = &http.Client{
		Timeout:       cfg.GetRequestTimeout(),
		CheckRedirect: c.checkRedirect,
	}
	c.stream = &http.Client{
		CheckRedirect: c.checkRedirect,
	}
	return c, nil
}

// checkRedirect keeps the auth parameter on redirected requests. The API
// redirects to shard hosts and does not always repeat the query string.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	q := req.URL.Query()
	if q.Get("auth") == "" {
		q.Set("auth", c.token)
		req.URL.RawQuery = q.Encode()
	}
	c.logger.Debug("following nest redirect", "host", req.URL.Host)
	return nil
}

// url builds the absolute URL for a data path.
func (c *Client) url(path string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	q := u.Query()
	q.Set("auth", c.token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Update stores value at path.
//
// Parameters:
//   - ctx: Cancels the request
//   - path: Data path, e.g. "devices/thermostats/<id>/hvac_mode"
//   - value: Any JSON-encodable value
//
// Returns:
//   - error: ErrUpdateFailed wrapping the API's message on a non-2xx answer
func (c *Client) Update(ctx context.Context, path string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUpdateFailed, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: %s", ErrUpdateFailed, path, apiError(resp))
	}

	//nolint:errcheck // Drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	c.logger.Debug("nest update sent",
		"path", path,
		"value", string(body),
		"duration", time.Since(start),
	)
	return nil
}

// apiError extracts the API's error message from a failed response.
func apiError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if msg := gjson.GetBytes(data, "error").String(); msg != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// Stream opens the event stream and calls handler with every snapshot the
// server sends. It blocks until the stream ends.
//
// Returns:
//   - error: ctx.Err() on cancellation, ErrAuthRevoked (also for a 401 or
//     403 on open), ErrStreamCancelled, ErrStreamFailed, or nil if the
//     server closed the stream cleanly
func (c *Client) Stream(ctx context.Context, handler func(Snapshot)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(""), nil)
	if err != nil {
		return fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		// Reopening with the same token cannot succeed.
		return fmt.Errorf("%w: %s", ErrAuthRevoked, apiError(resp))
	default:
		return fmt.Errorf("%w: %s", ErrStreamFailed, apiError(resp))
	}

	c.logger.Info("nest stream opened")

	err = readEvents(resp.Body, func(ev event) error {
		return c.handleEvent(ev, handler)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// handleEvent dispatches one server-sent event.
func (c *Client) handleEvent(ev event, handler func(Snapshot)) error {
	switch ev.name {
	case "put":
		snap, err := ParseEvent([]byte(ev.data))
		if err != nil {
			c.logger.Warn("ignoring nest event", "error", err)
			return nil
		}
		c.logger.Debug("nest snapshot received",
			"thermostats", len(snap.Thermostats),
			"structures", len(snap.Structures),
		)
		handler(snap)
	case "keep-alive":
	case "auth_revoked":
		return ErrAuthRevoked
	case "cancel":
		return ErrStreamCancelled
	default:
		c.logger.Debug("unhandled nest event", "event", ev.name)
	}
	return nil
}

// event is one server-sent event.
type event struct {
	name string
	data string
}

// readEvents parses a text/event-stream body. Events end at a blank line;
// multiple data lines are joined with newlines.
func readEvents(r io.Reader, fn func(event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	var (
		ev   event
		data []string
	)
	flush := func() error {
		if ev.name == "" && len(data) == 0 {
			return nil
		}
		if ev.name == "" {
			ev.name = "message"
		}
		ev.data = strings.Join(data, "\n")
		err := fn(ev)
		ev, data = event{}, nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading nest stream: %w", err)
	}
	return flush()
}
