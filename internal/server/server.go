// Package server exposes sessions and rendered pages over HTTP.
//
// Each request resolves its session, applies at most one event under the
// session lock, and answers with the new state or page.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"cteview/internal/dataset"
	"cteview/internal/logging"
	"cteview/internal/session"
	"cteview/internal/view"
)

// Server is the HTTP surface.
type Server struct {
	Echo     *echo.Echo
	Sessions *Store

	router *view.Router
	log    logging.Logger
}

// Options configures New.
type Options struct {
	SessionTTL time.Duration
	Loader     dataset.Loader
	Router     *view.Router
	Log        logging.Logger
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:     e,
		Sessions: NewStore(opts.SessionTTL, opts.Loader, log),
		router:   opts.Router,
		log:      log,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	s.Echo.GET("/healthz", s.Health)

	g := s.Echo.Group("/api/v1/sessions")
	g.POST("", s.CreateSession)
	g.GET("/:id", s.GetSession)
	g.DELETE("/:id", s.DeleteSession)
	g.POST("/:id/events", s.PostEvent)
	g.POST("/:id/navigate", s.Navigate)
	g.POST("/:id/select", s.Select)
	g.GET("/:id/page", s.GetPage)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("listening", logging.String("addr", addr))
	err := s.Echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for in-flight ones and tears down
// every session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	s.Sessions.Close()
	return err
}

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// HandleError logs err and answers with an ErrorResponse.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
	if err != nil {
		resp.Error = err.Error()
	}

	s.log.Warn("api error",
		logging.String("correlation_id", resp.CorrelationID),
		logging.String("message", message),
		logging.String("error", resp.Error),
		logging.Int("code", code),
		logging.String("path", c.Request().URL.Path),
		logging.String("method", c.Request().Method),
	)
	return c.JSON(code, resp)
}

// SessionResponse is a session id with its current state.
type SessionResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

func (s *Server) lookup(c echo.Context) (*session.Session, error) {
	sess, ok := s.Sessions.Get(c.Param("id"))
	if !ok {
		return nil, s.HandleError(c, nil, "session not found", http.StatusNotFound)
	}
	return sess, nil
}

// Health answers liveness probes.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Len(),
		"views":    s.router.Names(),
	})
}

// CreateSession starts a session on the home view.
func (s *Server) CreateSession(c echo.Context) error {
	sess := s.Sessions.Create()
	return c.JSON(http.StatusCreated, SessionResponse{ID: sess.ID, State: sess.State()})
}

// GetSession returns the session state.
func (s *Server) GetSession(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	return c.JSON(http.StatusOK, SessionResponse{ID: sess.ID, State: sess.State()})
}

// DeleteSession tears the session down.
func (s *Server) DeleteSession(c echo.Context) error {
	if !s.Sessions.Delete(c.Param("id")) {
		return s.HandleError(c, nil, "session not found", http.StatusNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// PostEvent applies a JSON-encoded navigate or select event.
func (s *Server) PostEvent(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
	if err != nil {
		return s.HandleError(c, err, "read body", http.StatusBadRequest)
	}
	ev, err := session.DecodeEvent(body)
	if err != nil {
		return s.HandleError(c, err, "invalid event", http.StatusBadRequest)
	}
	return s.apply(c, sess, ev)
}

// Navigate applies {"target_view": ...}.
func (s *Server) Navigate(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	var ev session.Navigate
	if err := c.Bind(&ev); err != nil {
		return s.HandleError(c, err, "invalid navigate body", http.StatusBadRequest)
	}
	return s.apply(c, sess, ev)
}

// Select applies {"field": ..., "value": ...}.
func (s *Server) Select(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	var ev session.Select
	if err := c.Bind(&ev); err != nil {
		return s.HandleError(c, err, "invalid select body", http.StatusBadRequest)
	}
	return s.apply(c, sess, ev)
}

func (s *Server) apply(c echo.Context, sess *session.Session, ev session.Event) error {
	st, err := sess.Apply(ev)
	if err != nil {
		return s.HandleError(c, err, "event rejected", http.StatusBadRequest)
	}
	s.log.Debug("event applied",
		logging.String("session", sess.ID),
		logging.String("view", st.View),
	)
	return c.JSON(http.StatusOK, SessionResponse{ID: sess.ID, State: st})
}

// GetPage renders the session's active view.
func (s *Server) GetPage(c echo.Context) error {
	sess, err := s.lookup(c)
	if sess == nil {
		return err
	}
	var page view.Page
	sess.Do(func(st session.State) {
		page = s.router.Dispatch(c.Request().Context(), view.Request{State: st, Data: sess.Data})
	})
	return c.JSON(http.StatusOK, page)
}
