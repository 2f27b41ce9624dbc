// SPDX-License-Identifier: BSL-1.1
// Copyright (c) 2026 MuVeraAI Corporation

package pkarr

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tv42/zbase32"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aumos-ai/did-pkarr/packet"
)

// DefaultRelays are public pkarr relays.
var DefaultRelays = []string{
	"https://relay.pkarr.org",
	"https://pkarr.pubky.org",
}

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3

	payloadContentType = "application/pkarr.org/relays#payload"
)

// RelayClient speaks the pkarr relay HTTP API:
//
//	GET /<z-base-32 key>  returns signature || timestamp || DNS message
//	PUT /<z-base-32 key>  stores the same body
//
// Requests go to every relay concurrently. Each relay is retried with
// exponential backoff on network errors and 5xx responses.
type RelayClient struct {
	relays     []string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// Option configures a RelayClient.
type Option func(*RelayClient)

// WithRelays replaces the relay list.
func WithRelays(relays ...string) Option {
	return func(c *RelayClient) { c.relays = append([]string(nil), relays...) }
}

// WithHTTPClient sets the HTTP client used for every request. The default
// client traces requests through the global OpenTelemetry provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RelayClient) { c.httpClient = hc }
}

// WithTimeout bounds each HTTP request. Ignored when WithHTTPClient is given.
func WithTimeout(d time.Duration) Option {
	return func(c *RelayClient) { c.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *RelayClient) { c.logger = l }
}

// WithMaxRetries caps retries per relay and request.
func WithMaxRetries(n uint64) Option {
	return func(c *RelayClient) { c.maxRetries = n }
}

// WithBackOff overrides the retry schedule. f is called once per request.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *RelayClient) { c.newBackOff = f }
}

// NewRelayClient returns a client for DefaultRelays unless WithRelays is given.
func NewRelayClient(opts ...Option) (*RelayClient, error) {
	c := &RelayClient{
		relays:     append([]string(nil), DefaultRelays...),
		timeout:    defaultTimeout,
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if len(c.relays) == 0 {
		return nil, errors.New("pkarr: at least one relay is required")
	}
	for i, r := range c.relays {
		u, err := url.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("pkarr: relay %q: %w", r, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("pkarr: relay %q: scheme must be http or https", r)
		}
		c.relays[i] = strings.TrimSuffix(r, "/")
	}
	return c, nil
}

// Relays returns the configured relay URLs.
func (c *RelayClient) Relays() []string { return append([]string(nil), c.relays...) }

// Resolve returns the first valid packet any relay answers with.
func (c *RelayClient) Resolve(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		first *packet.SignedPacket
		errs  []error
		g     errgroup.Group
	)
	for _, relay := range c.relays {
		g.Go(func() error {
			p, err := c.get(ctx, relay, pub)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if first == nil {
				first = p
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if first != nil {
		return first, nil
	}
	return nil, c.resolveError(ctx, errs)
}

// ResolveMostRecent waits for every relay and returns the newest packet.
func (c *RelayClient) ResolveMostRecent(ctx context.Context, pub ed25519.PublicKey) (*packet.SignedPacket, error) {
	var (
		mu   sync.Mutex
		best *packet.SignedPacket
		errs []error
		g    errgroup.Group
	)
	for _, relay := range c.relays {
		g.Go(func() error {
			p, err := c.get(ctx, relay, pub)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if p.MoreRecentThan(best) {
				best = p
			}
			return nil
		})
	}
	_ = g.Wait()

	if best != nil {
		return best, nil
	}
	return nil, c.resolveError(ctx, errs)
}

// resolveError reports ErrNotFound if any relay said so, otherwise every
// relay failed for another reason.
func (c *RelayClient) resolveError(ctx context.Context, errs []error) error {
	for _, err := range errs {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("pkarr: all relays failed: %w", errors.Join(errs...))
}

// Publish sends p to every relay and succeeds if at least one accepts it.
func (c *RelayClient) Publish(ctx context.Context, p *packet.SignedPacket) error {
	var (
		mu       sync.Mutex
		accepted int
		errs     []error
		g        errgroup.Group
	)
	for _, relay := range c.relays {
		g.Go(func() error {
			err := c.put(ctx, relay, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			accepted++
			return nil
		})
	}
	_ = g.Wait()

	if accepted > 0 {
		if len(errs) > 0 {
			c.logger.WarnContext(ctx, "pkarr: some relays rejected publish",
				slog.String("key", p.Origin()),
				slog.Int("accepted", accepted),
				slog.Any("errors", errors.Join(errs...)))
		}
		return nil
	}
	return fmt.Errorf("pkarr: publish failed on all relays: %w", errors.Join(errs...))
}

func (c *RelayClient) get(ctx context.Context, relay string, pub ed25519.PublicKey) (*packet.SignedPacket, error) {
	endpoint := relay + "/" + zbase32.EncodeToString(pub)

	op := func() (*packet.SignedPacket, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("pkarr: GET %s: status %d", endpoint, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, backoff.Permanent(fmt.Errorf("pkarr: GET %s: status %d", endpoint, resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, packet.MaxSize))
		if err != nil {
			return nil, err
		}
		p, err := packet.FromRelayPayload(pub, body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("pkarr: GET %s: %w", endpoint, err))
		}
		return p, nil
	}

	p, err := backoff.RetryNotifyWithData(op, c.policy(ctx), c.notify(ctx, http.MethodGet, endpoint))
	if err != nil && !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
		c.logger.WarnContext(ctx, "pkarr: relay resolve failed",
			slog.String("relay", relay), slog.Any("error", err))
	}
	return p, err
}

func (c *RelayClient) put(ctx context.Context, relay string, p *packet.SignedPacket) error {
	endpoint := relay + "/" + p.Origin()
	payload := p.RelayPayload()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", payloadContentType)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode == http.StatusConflict:
			return backoff.Permanent(ErrNotMostRecent)
		case resp.StatusCode >= 500:
			return fmt.Errorf("pkarr: PUT %s: status %d", endpoint, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("pkarr: PUT %s: status %d", endpoint, resp.StatusCode))
		}
	}

	err := backoff.RetryNotify(op, c.policy(ctx), c.notify(ctx, http.MethodPut, endpoint))
	if err == nil {
		c.logger.DebugContext(ctx, "pkarr: published", slog.String("relay", relay),
			slog.String("key", p.Origin()), slog.Uint64("timestamp", uint64(p.Timestamp())))
	}
	return err
}

func (c *RelayClient) policy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
}

func (c *RelayClient) notify(ctx context.Context, method, endpoint string) backoff.Notify {
	return func(err error, wait time.Duration) {
		c.logger.DebugContext(ctx, "pkarr: retrying relay request",
			slog.String("method", method),
			slog.String("url", endpoint),
			slog.Duration("wait", wait),
			slog.Any("error", err))
	}
}
