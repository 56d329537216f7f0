package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/danmuck/amlctl/internal/archive"
	"github.com/danmuck/amlctl/internal/auth"
	"github.com/danmuck/amlctl/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": Version,
			"archive": s.archive != nil,
		})
	})
	if s.metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/v1")
	if s.guard != nil {
		v1.Use(auth.Middleware(s.guard))
	}
	v1.POST("/parse", s.handleParse)
	if s.archive != nil {
		v1.GET("/messages", s.handleListMessages)
		v1.GET("/messages/:id", s.handleGetMessage)
	}
}

// ParseFailure is the 422 body of POST /v1/parse.
type ParseFailure struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	Attribute string `json:"attribute,omitempty"`
}

type ParseResult struct {
	ID      string      `json:"id,omitempty"`
	Message aml.Message `json:"message"`
	Summary string      `json:"summary"`
}

func (s *Server) handleParse(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Line endings are transport framing, never part of an AML message.
	raw := strings.TrimRight(string(body), "\r\n")

	msg, err := s.parser.Parse(raw)
	if s.metrics {
		observability.RecordParse(s.ID, aml.MessageLength(raw), err)
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, failureFor(err))
		return
	}

	result := ParseResult{Message: msg, Summary: msg.String()}
	if s.archive != nil {
		rec, err := s.archive.Save(c.Request.Context(), raw, msg)
		if err != nil {
			log.Error().
				Str("request_id", observability.RequestIDFrom(c)).
				Err(err).
				Msg("archive save failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
			return
		}
		result.ID = rec.ID
	}
	c.JSON(http.StatusOK, result)
}

func failureFor(err error) ParseFailure {
	out := ParseFailure{Error: err.Error(), Reason: aml.Reason(err)}
	var parseErr *aml.ParseError
	var validationErr *aml.ValidationError
	switch {
	case errors.As(err, &parseErr):
		out.Kind = "parse"
		out.Attribute = parseErr.Attribute
	case errors.As(err, &validationErr):
		out.Kind = "validation"
		out.Attribute = validationErr.Field
	case errors.Is(err, aml.ErrValidation):
		out.Kind = "validation"
	default:
		out.Kind = "parse"
	}
	return out
}

func (s *Server) handleListMessages(c *gin.Context) {
	limit := 0
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records, err := s.archive.List(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("archive list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": records})
}

func (s *Server) handleGetMessage(c *gin.Context) {
	rec, err := s.archive.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("id", c.Param("id")).Msg("archive get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
