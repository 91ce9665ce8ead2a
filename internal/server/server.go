// Package server exposes the chat engine and the course catalog over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yuin/goldmark"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/advisor"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
)

var md = goldmark.New()

// Chat answers questions.
type Chat interface {
	Ask(ctx context.Context, req advisor.Request) *advisor.ChatTurn
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Chat           Chat
	Courses        catalog.Store
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	chat    Chat
	courses catalog.Store
	metrics *metrics.Metrics
	log     *logger.Logger
	timeout time.Duration
	e       *echo.Echo
}

type chatRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	StudyPlanID string `json:"study_plan_id,omitempty"`
}

type chatResponse struct {
	Response    string   `json:"response"`
	ModuleIDs   []string `json:"module_ids"`
	CourseCodes []string `json:"course_codes"`
	AnswerHTML  string   `json:"answer_html"`
}

type healthResponse struct {
	Status      string `json:"status"`
	VectorIndex string `json:"vector_index"`
	CourseStore string `json:"course_store"`
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	if opts.Chat == nil || opts.Courses == nil {
		return nil, errors.New("server: chat engine and course store are required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{
		chat:    opts.Chat,
		courses: opts.Courses,
		metrics: opts.Metrics,
		log:     opts.Logger.With("component", "http"),
		timeout: opts.RequestTimeout,
		e:       echo.New(),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.handleError
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	s.e.Use(s.observe)
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) routes() {
	s.e.POST("/chat/", s.handleChat)
	s.e.POST("/chat", s.handleChat)
	s.e.GET("/course/:code", s.handleCourse)
	s.e.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	turn := s.chat.Ask(ctx, advisor.Request{
		Question:    req.Message,
		SessionID:   req.SessionID,
		StudyPlanID: req.StudyPlanID,
		Bearer:      bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)),
	})
	codes := turn.CourseCodes
	if codes == nil {
		codes = []string{}
	}
	return c.JSON(http.StatusOK, chatResponse{
		Response:    turn.Answer,
		ModuleIDs:   codes,
		CourseCodes: codes,
		AnswerHTML:  renderMarkdown(turn.Answer),
	})
}

func (s *Server) handleCourse(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "course code is required")
	}
	course, err := s.courses.Course(c.Request().Context(), code)
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("course %s not found", code))
	}
	if err != nil {
		s.log.Error("course lookup failed", "code", code, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "course data is temporarily unavailable")
	}
	return c.JSON(http.StatusOK, course)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", VectorIndex: "ok", CourseStore: "ok"}
	if err := s.chat.Ping(ctx); err != nil {
		resp.Status, resp.VectorIndex = "degraded", err.Error()
	}
	if p, ok := s.courses.(catalog.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			resp.Status, resp.CourseStore = "degraded", err.Error()
		}
	}
	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "error", err)
	} else {
		s.log.Debug("request rejected", "status", code, "method", req.Method, "path", req.URL.Path, "error", msg)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// observe records request counts by route template.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request().Method, route, status)
		return err
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return html.EscapeString(text)
	}
	return buf.String()
}

// Serve listens on port until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}
