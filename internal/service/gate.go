package service

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/dungeonstory/internal/config"
)

// Gate admits WebSocket clients under the per-IP and total connection
// limits, and bounds how many pipeline runs execute at once.
type Gate struct {
	mu      sync.Mutex
	clients map[string]int // Open connections by client IP
	open    int
	limits  config.ConnectionsConfig
	runs    chan struct{}
}

// NewGate creates a Gate. Zero connection limits mean unlimited; fewer than
// one worker is treated as one.
func NewGate(limits config.ConnectionsConfig, workers int) *Gate {
	if workers < 1 {
		workers = 1
	}
	return &Gate{
		clients: make(map[string]int),
		limits:  limits,
		runs:    make(chan struct{}, workers),
	}
}

// Admit opens a connection slot for ip. The returned release closes it and
// may be called more than once; only the first call counts.
func (g *Gate) Admit(ip string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limits.MaxTotal > 0 && g.open >= g.limits.MaxTotal {
		return nil, false
	}
	if g.limits.MaxPerIP > 0 && g.clients[ip] >= g.limits.MaxPerIP {
		return nil, false
	}
	g.clients[ip]++
	g.open++

	var once sync.Once
	return func() { once.Do(func() { g.leave(ip) }) }, true
}

// leave closes one slot held by ip. A client holding nothing frees nothing.
func (g *Gate) leave(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	held := g.clients[ip]
	if held == 0 {
		return
	}
	if held == 1 {
		delete(g.clients, ip)
	} else {
		g.clients[ip] = held - 1
	}
	g.open--
}

// Run waits for a free worker, then calls fn. It gives up when ctx ends
// first.
func (g *Gate) Run(ctx context.Context, fn func()) error {
	select {
	case g.runs <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.runs }()
	fn()
	return nil
}

// Stats returns the open connection count and the number of distinct
// client IPs.
func (g *Gate) Stats() (open int, clients int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open, len(g.clients)
}

func hostOnly(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// realIP prefers the first X-Forwarded-For entry, then X-Real-IP, then the
// socket address, so limits apply per client behind a reverse proxy.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return hostOnly(r.RemoteAddr)
}
