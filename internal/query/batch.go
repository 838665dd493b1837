package query

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

// QueryAll queries every server once. Duplicate driver/address pairs are dropped;
// outcomes follow the order of the first occurrence of each server.
func (q *Querier) QueryAll(ctx context.Context, servers []Server) []Outcome {
	unique := Dedup(servers)
	outcomes := make([]Outcome, len(unique))
	if len(unique) == 0 {
		return outcomes
	}

	var global *rate.Limiter
	if q.opts.Rate > 0 {
		global = rate.NewLimiter(rate.Limit(q.opts.Rate), 1)
	}
	hosts := newHostLimiter(q.opts.PerHost)

	workers := min(q.opts.Workers, len(unique))
	jobs := make(chan int, len(unique))
	var wg sync.WaitGroup

	q.log.Debug().Int("servers", len(unique)).Int("workers", workers).Msg("Starting batch")

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = q.queryPaced(ctx, unique[i], global, hosts)
			}
		}()
	}

	for i := range unique {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return outcomes
}

func (q *Querier) queryPaced(ctx context.Context, srv Server, global *rate.Limiter, hosts *hostLimiter) Outcome {
	abort := func(err error) Outcome {
		return Outcome{Server: srv, Result: srv.defaultResult().Snapshot(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	if global != nil {
		if err := global.Wait(ctx); err != nil {
			return abort(err)
		}
	}
	if err := hosts.wait(ctx, srv.ip); err != nil {
		return abort(err)
	}

	return q.Query(ctx, srv)
}

// Dedup drops repeated driver/address pairs, keeping the first occurrence.
// Server files can list thousands of entries, so the seen set holds 8-byte
// digests instead of the joined strings.
func Dedup(servers []Server) []Server {
	seen := make(map[uint64]struct{}, len(servers))
	out := make([]Server, 0, len(servers))

	d := xxhash.New()
	for _, s := range servers {
		key := dedupKey(d, s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}

	return out
}

// dedupKey digests the canonical driver name, the IP and the game port.
func dedupKey(d *xxhash.Digest, s Server) uint64 {
	d.Reset()
	_, _ = d.WriteString(s.driver.Name())
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(s.ip)
	_, _ = d.Write(binary.BigEndian.AppendUint16(nil, uint16(s.port))) //nolint:gosec // port is validated

	return d.Sum64()
}

// hostLimiter keeps one token bucket per IP address so that many ports on one
// host are not hit at once.
type hostLimiter struct {
	limiters map[string]*rate.Limiter
	perHost  int
	mu       sync.Mutex
}

func newHostLimiter(perHost int) *hostLimiter {
	return &hostLimiter{limiters: make(map[string]*rate.Limiter), perHost: perHost}
}

func (h *hostLimiter) wait(ctx context.Context, ip string) error {
	if h.perHost <= 0 {
		return nil
	}

	h.mu.Lock()
	l, found := h.limiters[ip]
	if !found {
		l = rate.NewLimiter(rate.Limit(h.perHost), h.perHost)
		h.limiters[ip] = l
	}
	h.mu.Unlock()

	return l.Wait(ctx)
}
