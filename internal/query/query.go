package query

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"github.com/woozymasta/gsquery/internal/protocol"
	"github.com/woozymasta/gsquery/internal/result"
	"github.com/woozymasta/gsquery/internal/socket"
)

// Options tune the orchestrator. Zero values fall back to the defaults below.
type Options struct {
	// betteralign:ignore

	// Logger receives per-server trace logs. The zero logger discards everything.
	Logger zerolog.Logger

	// Timeout is the deadline of one server, handshake and decoding included.
	Timeout time.Duration
	// StreamTimeout is the read slice that ends a collection stage.
	StreamTimeout time.Duration
	// WriteWait is the minimum gap between two writes on one connection.
	WriteWait time.Duration
	// HTTPTimeout bounds out-of-band HTTP requests of supplementing drivers.
	HTTPTimeout time.Duration

	// Workers is the size of the batch worker pool.
	Workers int
	// Rate limits query starts per second across the batch. Zero is unlimited.
	Rate float64
	// PerHost limits query starts per second on one IP address. Zero is unlimited.
	PerHost int
}

// Defaults.
const (
	DefaultTimeout       = 3 * time.Second
	DefaultStreamTimeout = 200 * time.Millisecond
	DefaultWriteWait     = 500 * time.Microsecond
	DefaultHTTPTimeout   = 2 * time.Second
	DefaultWorkers       = 10
)

// Outcome is the result of one server query. On failure Result holds the defaults
// and Err tells why.
type Outcome struct {
	Server   Server
	Err      error
	Result   result.Snapshot
	Duration time.Duration
}

// Querier runs queries. It is safe for concurrent use.
type Querier struct {
	dialer socket.Dialer
	client *http.Client
	log    zerolog.Logger
	opts   Options
}

// New returns a querier that dials through dialer.
func New(dialer socket.Dialer, opts Options) *Querier {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = DefaultStreamTimeout
	}
	if opts.WriteWait < 0 {
		opts.WriteWait = 0
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = DefaultHTTPTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	return &Querier{
		dialer: dialer,
		client: &http.Client{Timeout: opts.HTTPTimeout},
		log:    opts.Logger,
		opts:   opts,
	}
}

// Query runs the full state machine against one server. It never returns an
// error directly; failures are carried by the outcome.
func (q *Querier) Query(ctx context.Context, srv Server) Outcome {
	start := time.Now()

	logger := q.log.With().
		Str("driver", srv.driver.Name()).
		Str("address", srv.Address()).
		Int("query_port", srv.queryPort).
		Logger()

	snap, err := q.run(ctx, srv, logger)
	if err != nil {
		logger.Debug().Err(err).Msg("Query aborted")
		snap = srv.defaultResult().Snapshot()
	} else {
		logger.Trace().Msg("Done")
	}

	return Outcome{
		Server:   srv,
		Result:   snap,
		Err:      err,
		Duration: time.Since(start),
	}
}

func (q *Querier) run(ctx context.Context, srv Server, logger zerolog.Logger) (result.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
	defer cancel()

	d := srv.driver
	target := srv.Target()

	logger.Trace().Str("transport", string(d.Transport())).Msg("Start")

	conn, err := q.dialer.Dial(ctx, d.Transport(), srv.QueryAddress())
	if err != nil {
		if !errors.Is(err, socket.ErrConnection) {
			err = &socket.ConnectionError{Transport: d.Transport(), Address: srv.QueryAddress(), Err: err}
		}
		return result.Snapshot{}, err
	}
	defer func() { _ = conn.Close() }()

	ex := &exchange{
		conn:    conn,
		limiter: newWriteLimiter(q.opts.WriteWait),
		collect: socket.CollectOptions{StreamTimeout: q.opts.StreamTimeout, Blocking: d.Blocking()},
	}

	var challenge []byte
	if req := d.ChallengeRequest(); req != nil {
		logger.Trace().Msg("Challenge requested")

		frames, err := ex.roundTrip(ctx, req)
		if err != nil {
			return result.Snapshot{}, err
		}
		if len(frames) == 0 {
			return result.Snapshot{}, ErrNoResponse
		}

		if challenge, err = d.ParseChallenge(frames); err != nil {
			return result.Snapshot{}, errors.Wrap(err, "parse challenge")
		}

		logger.Trace().Hex("challenge", challenge).Msg("Challenge received")
	}

	var resp protocol.Response
	rechallenger, _ := d.(protocol.Rechallenger)

	for _, kind := range d.Kinds() {
		req := d.Request(kind, target, challenge)
		if req == nil {
			continue
		}

		frames, err := ex.roundTrip(ctx, req)
		if err != nil {
			return result.Snapshot{}, err
		}

		if rechallenger != nil {
			request := func(c []byte) []byte { return d.Request(kind, target, c) }
			kindLog := logger.With().Str("kind", string(kind)).Logger()

			frames, challenge, err = ex.rechallenge(ctx, rechallenger, request, challenge, frames, kindLog)
			if err != nil {
				return result.Snapshot{}, err
			}
		}

		logger.Trace().Str("kind", string(kind)).Int("frames", len(frames)).Msg("Frames collected")
		resp.Frames = append(resp.Frames, frames...)
	}

	logger.Trace().Int("frames", len(resp.Frames)).Msg("Requests sent")

	if len(resp.Frames) == 0 {
		return result.Snapshot{}, ErrNoResponse
	}

	if sup, ok := d.(protocol.Supplementer); ok {
		extra, err := sup.Supplement(ctx, q.client, target)
		if err != nil {
			logger.Debug().Err(err).Msg("Supplement failed")
		} else {
			resp.Extra = extra
		}
	}

	res := srv.defaultResult()
	if err := decode(d, res, target, resp); err != nil {
		return result.Snapshot{}, err
	}

	logger.Trace().Msg("Decoded")

	return res.Snapshot(), nil
}

// rechallenge drops challenge frames from a reply and returns the data frames
// with the current challenge. The request is sent again when the challenge
// changed or nothing but challenges came back.
func (e *exchange) rechallenge(
	ctx context.Context,
	rc protocol.Rechallenger,
	request func(challenge []byte) []byte,
	challenge []byte,
	frames [][]byte,
	logger zerolog.Logger,
) ([][]byte, []byte, error) {
	fresh, data, found := rc.Rechallenge(frames)
	if !found {
		return frames, challenge, nil
	}

	if bytes.Equal(fresh, challenge) {
		if len(data) > 0 {
			return data, challenge, nil
		}
	} else {
		logger.Trace().Hex("challenge", fresh).Msg("Challenge renewed")
		challenge = fresh
	}

	retry, err := e.roundTrip(ctx, request(challenge))
	if err != nil {
		return nil, challenge, err
	}
	if _, rest, ok := rc.Rechallenge(retry); ok {
		retry = rest
	}
	if len(retry) == 0 {
		return data, challenge, nil
	}

	return retry, challenge, nil
}

// decode runs the driver and turns a panic from a misused result key into an error.
func decode(d protocol.Driver, res *result.Result, t protocol.Target, resp protocol.Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrapf(e, "decode %s", d.Name())
				return
			}
			err = errors.Errorf("decode %s: %v", d.Name(), r)
		}
	}()

	if err := d.Decode(res, t, resp); err != nil {
		return errors.Wrapf(err, "decode %s", d.Name())
	}

	return nil
}

// exchange is one connection with its write pacing.
type exchange struct {
	conn    socket.Conn
	limiter ratelimit.Limiter
	collect socket.CollectOptions
}

func (e *exchange) roundTrip(ctx context.Context, req []byte) ([][]byte, error) {
	e.limiter.Take()

	if _, err := e.conn.Write(req); err != nil {
		return nil, errors.Wrap(err, "write request")
	}

	return socket.Collect(ctx, e.conn, e.collect), nil
}

func newWriteLimiter(wait time.Duration) ratelimit.Limiter {
	if wait <= 0 {
		return ratelimit.NewUnlimited()
	}

	return ratelimit.New(1, ratelimit.Per(wait), ratelimit.WithoutSlack)
}
