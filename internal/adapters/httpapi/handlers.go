package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/app"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/buildinfo"
	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/httpjson"
)

const defaultRequestTimeout = 30 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

type progressResponse struct {
	Progress app.ProgressSnapshot `json:"progress"`
	Limiter  *app.LimiterStats    `json:"limiter,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	resp := progressResponse{Progress: s.tracker.Snapshot()}
	if s.limiter != nil {
		st := s.limiter.Stats()
		resp.Limiter = &st
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Debug().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
