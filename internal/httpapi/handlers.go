package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
)

const diagnosticPreview = 256

// ── Distance ─────────────────────────────────────────────────────────────────

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	body, tooLong, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "could not read body")
		return
	}

	var meters float64
	switch {
	case tooLong:
		err = service.ErrMalformedSample
	case isProtobuf(r):
		meters, err = decodeProtoSample(body)
	default:
		meters, err = decodeRawSample(body)
	}
	if err != nil {
		if s.observer != nil {
			s.observer.SampleRejected()
		}
		writeError(w, http.StatusBadRequest, "malformed_sample", err.Error())
		return
	}

	_, err = s.engine.Ingest(r.Context(), meters)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMalformedSample):
		writeError(w, http.StatusBadRequest, "malformed_sample", err.Error())
		return
	default:
		// The lock decision stands even when actuation was incomplete; the
		// sender only needs to know the sample was taken.
		s.logger.Error("lock actuation incomplete", "err", err, "request_id", requestID(r.Context()))
	}

	writeOK(w)
}

// ── Diagnostics ──────────────────────────────────────────────────────────────

// handleDiagnostic accepts anything POSTed to a path other than the distance
// endpoints. The companion uses this to report its own status text.
func (s *Server) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	body, _, err := readBody(r)
	if err != nil {
		writeOK(w)
		return
	}

	if !s.diagLimiter.Allow() {
		s.diagDropped.Add(1)
		writeOK(w)
		return
	}

	preview := body
	if len(preview) > diagnosticPreview {
		preview = preview[:diagnosticPreview]
	}
	text := strings.ToValidUTF8(string(preview), string(utf8.RuneError))

	attrs := []any{"path", r.URL.Path, "bytes", len(body), "text", text}
	if n := s.diagDropped.Swap(0); n > 0 {
		attrs = append(attrs, "suppressed", n)
	}
	s.logger.Info("companion.diagnostic", attrs...)
	writeOK(w)
}

// ── Status ───────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()

	if wantsProtobuf(r) {
		msg, err := snapshotToProto(snap)
		if err != nil {
			s.logger.Error("status proto conversion failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleStatusStream pushes a snapshot immediately and then on every tick
// until the client goes away. Client messages are ignored.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("status stream upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(s.streamEvery)
	defer ticker.Stop()

	for {
		if err := s.pushSnapshot(ctx, conn); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.logger.Debug("status stream write failed", "err", err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) pushSnapshot(parent context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, s.engine.Snapshot())
}
