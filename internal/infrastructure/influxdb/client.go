package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/redec/homebridge-nest/internal/infrastructure/config"
)

const (
	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// server is the part of influxdb2.Client the recorder needs.
type server interface {
	Ping(ctx context.Context) (bool, error)
	Close()
}

// pointWriter is the part of api.WriteAPI the recorder needs. Writes are
// buffered and sent in batches; failures arrive on Errors.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}

// Client records thermostat samples in an InfluxDB v2 bucket.
//
// All methods are safe for concurrent use. A zero Client drops every sample
// and reports ErrClosed.
type Client struct {
	server server
	writer pointWriter
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	onError func(err error)
}

// Connect pings the server described by cfg and returns a Client writing
// to cfg.Bucket.
//
// Returns:
//   - *Client: client ready for WriteThermostatSample
//   - error: ErrDisabled, or ErrConnectionFailed if the ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize, flushInterval := batching(cfg)
	srv := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(uint(flushInterval.Milliseconds())))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(pingCtx, srv); err != nil {
		srv.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return newClient(srv, srv.WriteAPI(cfg.Org, cfg.Bucket)), nil
}

// batching returns the write batch size and flush interval for cfg,
// substituting defaults for unset values.
func batching(cfg config.InfluxDBConfig) (uint, time.Duration) {
	size := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		size = uint(cfg.BatchSize)
	}
	interval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return size, interval
}

func newClient(srv server, writer pointWriter) *Client {
	c := &Client{server: srv, writer: writer, now: time.Now}
	go c.forwardErrors(writer.Errors())
	return c
}

// forwardErrors hands batch failures to the SetOnError callback. The
// channel closes when the server client is closed.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for failed batch writes. Samples are sent
// in the background, so this is the only place those failures surface.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.open() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.server); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

func ping(ctx context.Context, srv server) error {
	healthy, err := srv.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}

// Close flushes buffered samples and closes the connection. Samples
// written afterwards are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed || c.server == nil {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writer.Flush()
	c.server.Close()
	return nil
}

func (c *Client) open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.writer != nil
}
