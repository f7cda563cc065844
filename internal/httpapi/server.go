// Package httpapi exposes a View over HTTP so a simulated or remote tracking
// surface can be driven without a device.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/anchorkit"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
)

// Options configures the handler.
type Options struct {
	// Gatherer serves GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

// Server routes HTTP requests to one view of a kit.
type Server struct {
	kit    *anchorkit.Kit
	view   *anchorkit.View
	opts   Options
	router *chi.Mux
}

// New builds the router.
func New(kit *anchorkit.Kit, view *anchorkit.View, optFns ...func(o *Options)) *Server {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{kit: kit, view: view, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/status", s.handleStatus)
	r.Post("/tap", s.handleTap)
	r.Post("/model", s.handleModel)
	r.Post("/animations/restart", s.handleRestartAnimations)
	r.Route("/step", func(r chi.Router) {
		r.Post("/next", s.handleStep(true))
		r.Post("/prev", s.handleStep(false))
	})
	r.Route("/reset", func(r chi.Router) {
		r.Post("/", s.handleReset)
		r.Post("/all", s.handleResetAll)
	})
	r.Post("/session/{event}", s.handleSession)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// TapRequest is the body for POST /tap. X and Y are normalized screen
// coordinates.
type TapRequest struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// TapResponse reports whether the tap created an anchor.
type TapResponse struct {
	Placed bool `json:"placed"`
}

// ModelRequest is the body for POST /model.
type ModelRequest struct {
	Model string `json:"model"`
}

// StepResponse is returned by POST /step/next and /step/prev.
type StepResponse struct {
	Moved bool   `json:"moved"`
	Step  int    `json:"step"`
	Model string `json:"model"`
	Text  string `json:"text,omitempty"`
	Last  bool   `json:"last"`
}

// ResetRequest is the optional body for POST /reset. An empty key resets
// this server's view.
type ResetRequest struct {
	Key string `json:"key"`
}

// SessionRequest is the optional body for POST /session/fail.
type SessionRequest struct {
	Error string `json:"error"`
}

// StatusResponse mirrors anchor.Status with a flattened position.
type StatusResponse struct {
	Key            string      `json:"key"`
	State          string      `json:"state"`
	Placed         bool        `json:"placed"`
	Model          string      `json:"model"`
	AnchorID       string      `json:"anchor_id,omitempty"`
	Position       *[3]float32 `json:"position,omitempty"`
	Content        string      `json:"content,omitempty"`
	Children       int         `json:"children"`
	Placeholder    bool        `json:"placeholder"`
	ActiveClip     string      `json:"active_clip,omitempty"`
	RestorePending bool        `json:"restore_pending"`
	Degraded       bool        `json:"degraded"`
	Failure        string      `json:"failure,omitempty"`
	Step           *int        `json:"step,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.view.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := StatusResponse{
		Key:            string(st.Key),
		State:          st.StateName,
		Placed:         st.Placed,
		Model:          st.Model,
		AnchorID:       st.AnchorID,
		Content:        st.Content,
		Children:       st.Children,
		Placeholder:    st.Placeholder,
		ActiveClip:     st.ActiveClip,
		RestorePending: st.RestorePending,
		Degraded:       st.Degraded,
		Failure:        st.Failure,
	}
	if st.AnchorID != "" {
		t := core.Translation(st.Transform)
		resp.Position = &[3]float32{t.X(), t.Y(), t.Z()}
	}
	if seq := s.view.Sequence(); seq != nil {
		step := seq.Step()
		resp.Step = &step
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	placed, err := s.view.Tap(r.Context(), mgl32.Vec2{req.X, req.Y})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TapResponse{Placed: placed})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	var req ModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		http.Error(w, "model required", http.StatusBadRequest)
		return
	}
	if err := s.view.SetModel(r.Context(), req.Model); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRestartAnimations(w http.ResponseWriter, r *http.Request) {
	if err := s.view.Controller().RestartAnimations(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStep(forward bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			moved bool
			err   error
		)
		if forward {
			moved, err = s.view.Next(r.Context())
		} else {
			moved, err = s.view.Prev(r.Context())
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		seq := s.view.Sequence()
		writeJSON(w, http.StatusOK, StepResponse{
			Moved: moved,
			Step:  seq.Step(),
			Model: seq.Current(),
			Text:  seq.Text(),
			Last:  seq.IsLast(),
		})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	key := core.AnchorKey(req.Key)
	if key == "" {
		key = s.view.Controller().Key()
	}
	if err := s.kit.Reset(r.Context(), key); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.kit.ResetAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var ev core.SessionEvent
	switch chi.URLParam(r, "event") {
	case "interrupt":
		ev = core.NewSessionEvent(core.SessionInterrupted, nil)
	case "resume":
		ev = core.NewSessionEvent(core.SessionInterruptionEnded, nil)
	case "fail":
		var req SessionRequest
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if req.Error == "" {
			req.Error = "tracking failed"
		}
		ev = core.NewSessionEvent(core.SessionFailed, errors.New(req.Error))
	default:
		http.NotFound(w, r)
		return
	}
	if err := s.view.Bridge().Handle(r.Context(), ev); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, anchorkit.ErrNoSequence):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrSurfaceNotSupported), errors.Is(err, core.ErrCameraUnavailable):
		status = http.StatusConflict
	case errors.Is(err, core.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.opts.Logger.Error("Request failed", "error", err.Error())
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
