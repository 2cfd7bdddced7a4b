package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/store"
)

const maxListLimit = 200

// Content must be present but may be empty
type analyzeRequest struct {
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Content *string `json:"content" binding:"required"`
}

type detectRequest struct {
	Content *string `json:"content" binding:"required"`
}

type healthResponse struct {
	Provider  string `json:"provider"`
	Available bool   `json:"available"`
	Store     bool   `json:"store"`
}

func (s *Server) analyzeDocument(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	doc := model.Document{Title: req.Title, Type: req.Type, Content: *req.Content}
	report := s.analyzer.Run(c.Request.Context(), doc)
	if report.Err != nil {
		c.Header("X-Analysis-Degraded", degradedReason(report.Err))
	}

	if s.store != nil {
		rec := &store.Record{
			Title:       doc.Title,
			DocType:     doc.Type,
			Format:      report.Format,
			Status:      report.Result.Status,
			ContentHash: store.ContentHash(doc.Content),
			Result:      report.Result,
		}
		if err := s.store.Save(c.Request.Context(), rec); err != nil {
			s.log.WithError(err).Warn("failed to save analysis")
		} else {
			c.Header("X-Analysis-ID", rec.ID)
		}
	}

	success(c, report.Result)
}

func (s *Server) detectDocument(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	detected := s.detector.Detect(*req.Content)
	if detected == nil {
		fail(c, http.StatusNotFound, "no HURIDOCS fields detected")
		return
	}
	success(c, detected)
}

func (s *Server) listAnalyses(c *gin.Context) {
	if s.store == nil {
		fail(c, http.StatusNotFound, "analysis history is disabled")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("failed to list analyses")
		fail(c, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	success(c, records)
}

func (s *Server) getAnalysis(c *gin.Context) {
	if s.store == nil {
		fail(c, http.StatusNotFound, "analysis history is disabled")
		return
	}

	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to load analysis")
		fail(c, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	success(c, rec)
}

func (s *Server) health(c *gin.Context) {
	resp := healthResponse{Store: s.store != nil}
	if s.provider != nil {
		resp.Provider = s.provider.Name()
		resp.Available = s.provider.IsAvailable(c.Request.Context())
	}
	success(c, resp)
}

func degradedReason(err error) string {
	switch {
	case errors.Is(err, analyze.ErrNoProvider):
		return "no-provider"
	case errors.Is(err, analyze.ErrParse):
		return "parse"
	default:
		return "upstream"
	}
}
