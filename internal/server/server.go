// Package server exposes a record store over HTTP so that remote clients can
// use it as their backend.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskflow/internal/recordstore"
)

// Options configures the HTTP surface.
type Options struct {
	// ProjectID and Secret enable bearer-token checks. Empty Secret disables them.
	ProjectID string
	Secret    string
}

// Server routes record store calls.
type Server struct {
	store  recordstore.Client
	log    *slog.Logger
	engine *gin.Engine
}

type mutationRequest struct {
	Records []recordstore.Record `json:"records" binding:"required,min=1"`
}

type deleteRequest struct {
	RecordIDs []int64 `json:"RecordIds" binding:"required,min=1"`
}

// New builds the gin engine for store.
func New(store recordstore.Client, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{store: store, log: log.With("component", "server")}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(s.log), cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Api is running!"})
	})

	api := router.Group("/api/records/:kind")
	if opts.Secret != "" {
		api.Use(ProjectTokenMiddleware(opts.ProjectID, []byte(opts.Secret)))
	}
	api.POST("/fetch", s.fetch)
	api.GET("/:id", s.get)
	api.POST("", s.create)
	api.PUT("", s.update)
	api.DELETE("", s.delete)

	s.engine = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func kindParam(c *gin.Context) recordstore.Kind {
	return recordstore.Kind(c.Param("kind"))
}

func (s *Server) fetch(c *gin.Context) {
	var params recordstore.FetchParams
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			abort(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}
	resp, err := s.store.FetchRecords(c.Request.Context(), kindParam(c), params)
	s.respond(c, resp, err)
}

func (s *Server) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "Invalid record id")
		return
	}
	var params recordstore.GetParams
	if raw := strings.TrimSpace(c.Query("fields")); raw != "" {
		params.Fields = strings.Split(raw, ",")
	}
	resp, err := s.store.GetRecordByID(c.Request.Context(), kindParam(c), id, params)
	s.respond(c, resp, err)
}

func (s *Server) create(c *gin.Context) {
	var req mutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	resp, err := s.store.CreateRecord(c.Request.Context(), kindParam(c), recordstore.CreateParams{Records: req.Records})
	s.respond(c, resp, err)
}

func (s *Server) update(c *gin.Context) {
	var req mutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	resp, err := s.store.UpdateRecord(c.Request.Context(), kindParam(c), recordstore.UpdateParams{Records: req.Records})
	s.respond(c, resp, err)
}

func (s *Server) delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	resp, err := s.store.DeleteRecord(c.Request.Context(), kindParam(c), recordstore.DeleteParams{RecordIDs: req.RecordIDs})
	s.respond(c, resp, err)
}

// respond reports store failures with success=false and a 500; logical
// failures keep 200 and carry their own success flag.
func (s *Server) respond(c *gin.Context, resp any, err error) {
	if err != nil {
		s.log.Error("store call failed", "path", c.FullPath(), "kind", c.Param("kind"), "error", err)
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}
