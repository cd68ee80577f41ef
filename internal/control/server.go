// Package control serves a small HTTP API for inspecting playback and
// overriding channels while a show runs.
package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scoobymooch/lightgen/internal/player"
	"github.com/scoobymooch/lightgen/universe"
)

// Controller is the part of a player the API drives.
type Controller interface {
	Status() player.Status
	LastFrame() (start int, values []float32)
	Override(start int, values []universe.Value) error
	ClearOverrides()
	Configure(doc []byte)
}

// Server routes the control API to a Controller.
type Server struct {
	ctl    Controller
	logger *slog.Logger
	engine *gin.Engine
}

// valuesRequest installs overrides. A null value marks the channel auto.
type valuesRequest struct {
	Start  *int       `json:"start"`
	Values []*float32 `json:"values"`
}

// NewServer builds the gin engine and registers the routes.
func NewServer(ctl Controller, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{ctl: ctl, logger: logger, engine: gin.New()}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/status", s.getStatus)
	s.engine.GET("/frame", s.getFrame)
	s.engine.PUT("/values", s.putValues)
	s.engine.DELETE("/values", s.deleteValues)
	s.engine.PUT("/config", s.putConfig)
	return s
}

// Handler exposes the routes for embedding or tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("control API listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) getStatus(c *gin.Context) {
	st := s.ctl.Status()
	c.JSON(http.StatusOK, gin.H{
		"kind":      st.Kind,
		"frames":    st.Frames,
		"show_time": st.ShowTime.Seconds(),
		"start":     st.Start,
		"length":    st.Length,
		"overrides": st.Overrides,
	})
}

func (s *Server) getFrame(c *gin.Context) {
	start, values := s.ctl.LastFrame()
	if values == nil {
		values = []float32{}
	}
	c.JSON(http.StatusOK, gin.H{"start": start, "values": values})
}

func (s *Server) putValues(c *gin.Context) {
	var req valuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Start == nil || len(req.Values) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and values are required"})
		return
	}
	values := make([]universe.Value, len(req.Values))
	for i, v := range req.Values {
		if v == nil {
			values[i] = universe.AutoValue
		} else {
			values[i] = universe.Explicit(*v)
		}
	}
	if err := s.ctl.Override(*req.Start, values); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, player.ErrOutOfRange) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.logger.Debug("overrides installed", "start", *req.Start, "count", len(values))
	c.JSON(http.StatusOK, gin.H{"message": "overrides installed", "count": len(values)})
}

func (s *Server) deleteValues(c *gin.Context) {
	s.ctl.ClearOverrides()
	c.JSON(http.StatusOK, gin.H{"message": "overrides cleared"})
}

func (s *Server) putConfig(c *gin.Context) {
	doc, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctl.Configure(doc)
	s.logger.Info("configuration replaced", "bytes", len(doc))
	c.JSON(http.StatusOK, gin.H{"message": "configuration sent"})
}
