// Package service annotates layouts sent over a WebSocket. Each text message
// is one layout record; each reply carries the annotated record and a run
// report, or the error that stopped the run.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/dungeonstory/internal/archive"
	"github.com/lawnchairsociety/dungeonstory/internal/config"
	"github.com/lawnchairsociety/dungeonstory/internal/layout"
	"github.com/lawnchairsociety/dungeonstory/internal/logger"
	"github.com/lawnchairsociety/dungeonstory/internal/pipeline"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Store is the part of the archive the service needs.
type Store interface {
	Get(ctx context.Context, fingerprint string) (archive.Record, error)
	Save(ctx context.Context, rec archive.Record) error
}

// Reply is the message sent back for every layout received.
type Reply struct {
	OK          bool             `json:"ok"`
	Error       string           `json:"error,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Key         string           `json:"key,omitempty"`
	Cached      bool             `json:"cached,omitempty"`
	Report      *pipeline.Report `json:"report,omitempty"`
	Layout      json.RawMessage  `json:"layout,omitempty"`
}

// Service serves the annotation pipeline over WebSocket.
type Service struct {
	cfg         config.ServiceConfig
	newPipeline func() *pipeline.Pipeline
	keyOf       func(raw []byte) string
	store       Store
	gate        *Gate
	upgrader    websocket.Upgrader

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Service. store may be nil to run without an archive.
// newPipeline is called once up front to fix the archive key, then once
// per layout processed.
func New(cfg config.ServiceConfig, newPipeline func() *pipeline.Pipeline, store Store) *Service {
	s := &Service{
		cfg:         cfg,
		newPipeline: newPipeline,
		keyOf:       newPipeline().Key,
		store:       store,
		gate:        NewGate(cfg.Connections, cfg.Workers),
		done:        make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Handler returns the HTTP handler with the WebSocket endpoint at /ws.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	return mux
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then closes open connections and shuts the listener down.
func (s *Service) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Address, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		logger.Info("WebSocket service listening", "address", s.cfg.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.doneOnce.Do(func() { close(s.done) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := realIP(r)

	release, ok := s.gate.Admit(clientIP)
	if !ok {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warning("WebSocket upgrade failed", "error", err, "client_ip", clientIP)
		release()
		return
	}

	go s.serveConn(conn, clientIP, release)
}

func (s *Service) serveConn(conn *websocket.Conn, clientIP string, release func()) {
	stop := make(chan struct{})
	defer func() {
		close(stop)
		conn.Close()
		release()
	}()
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-stop:
		}
	}()

	if s.cfg.WebSocket.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}

	log := logger.With("client_ip", clientIP)
	log.Debug("WebSocket client connected")

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := s.Process(context.Background(), message)
		if !reply.OK {
			log.Warn("Layout rejected", "error", reply.Error)
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("WebSocket write failed", "error", err)
			return
		}
	}
}

// Process annotates one raw layout record. A layout already in the store
// under the same record and pipeline settings is returned as stored.
func (s *Service) Process(ctx context.Context, raw []byte) Reply {
	fingerprint := layout.Fingerprint(raw)
	key := s.keyOf(raw)
	reply := Reply{Fingerprint: fingerprint, Key: key}

	if s.store != nil {
		if rec, err := s.store.Get(ctx, key); err == nil {
			return s.cached(reply, rec)
		} else if !errors.Is(err, archive.ErrNotFound) {
			logger.Warning("Archive lookup failed", "key", key, "error", err)
		}
	}

	d, err := layout.Unmarshal(raw)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	d.Name = fingerprint[:12]

	var report *pipeline.Report
	if runErr := s.gate.Run(ctx, func() { report, err = s.newPipeline().Run(d) }); runErr != nil {
		reply.Error = runErr.Error()
		return reply
	}
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	body, err := layout.Marshal(d)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	if s.store != nil {
		rec, err := archive.NewRecord(key, d)
		if err == nil {
			err = s.store.Save(ctx, rec)
		}
		if err != nil {
			logger.Warning("Archive save failed", "key", key, "error", err)
		}
	}

	reply.OK = true
	reply.Report = report
	reply.Layout = body
	return reply
}

func (s *Service) cached(reply Reply, rec archive.Record) Reply {
	d, err := rec.Dungeon()
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	reply.OK = true
	reply.Cached = true
	reply.Report = &pipeline.Report{
		Name:       rec.Name,
		Rooms:      rec.Rooms,
		Ramps:      rec.Ramps,
		Stories:    d.Stories(),
		Deepest:    rec.Deepest,
		Unassigned: rec.Unassigned,
	}
	reply.Layout = rec.Body
	return reply
}
