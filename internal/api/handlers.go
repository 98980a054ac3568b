package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/logger"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/session"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
	defaultChangeLimit  = 50
	maxChangeLimit      = 500

	apiInitiator = "api"
)

// CrawlService starts and resumes crawls.
type CrawlService interface {
	Running() bool
	StartScraping(ctx context.Context, initiator string) domain.Summary
	ResumeFailedCrawl(ctx context.Context, sessionID, initiator string) domain.Summary
}

// SessionReader reads crawl sessions.
type SessionReader interface {
	FindSession(ctx context.Context, id string) (*domain.CrawlSession, error)
	ListSessions(ctx context.Context, limit int) ([]domain.CrawlSession, error)
}

// ChangeReader reads the change log.
type ChangeReader interface {
	ListRecentChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.ChangeEntry, error)
}

// Dependencies are the services behind the API routes.
type Dependencies struct {
	Crawls   CrawlService
	Sessions SessionReader
	Changes  ChangeReader

	// RunContext parents crawls started over HTTP, so they outlive the request
	// but stop with the process. Defaults to context.Background().
	RunContext context.Context
}

type handler struct {
	deps Dependencies
	log  logger.Interface
	runs *sync.WaitGroup
}

func newHandler(deps Dependencies, log logger.Interface, runs *sync.WaitGroup) *handler {
	if deps.RunContext == nil {
		deps.RunContext = context.Background()
	}
	return &handler{deps: deps, log: log, runs: runs}
}

func (h *handler) register(g *gin.RouterGroup) {
	crawls := g.Group("/crawls")
	crawls.POST("", h.startCrawl)
	crawls.GET("", h.listSessions)
	crawls.GET("/:session_id", h.getSession)
	crawls.POST("/:session_id/resume", h.resumeCrawl)

	g.GET("/changes/recent", h.recentChanges)
}

func initiator(c *gin.Context) string {
	if claims, ok := GetClaims(c); ok && claims.Sub != "" {
		return claims.Sub
	}
	return apiInitiator
}

// startCrawl handles POST /api/v1/crawls.
func (h *handler) startCrawl(c *gin.Context) {
	if h.deps.Crawls.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl is already running"})
		return
	}

	who := initiator(c)
	h.background(func(ctx context.Context) {
		sum := h.deps.Crawls.StartScraping(ctx, who)
		h.log.Info("Crawl finished", "session_id", sum.SessionID, "status", sum.Status, "message", sum.Message)
	})

	c.JSON(http.StatusAccepted, gin.H{"message": "Crawl started", "initiator": who})
}

// resumeCrawl handles POST /api/v1/crawls/:session_id/resume.
func (h *handler) resumeCrawl(c *gin.Context) {
	id := c.Param("session_id")

	s, err := h.deps.Sessions.FindSession(c.Request.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load session", err)
		return
	}
	if !session.CanResume(s) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "session is not in failed state",
			"status": s.Status,
		})
		return
	}
	if h.deps.Crawls.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl is already running"})
		return
	}

	who := initiator(c)
	h.background(func(ctx context.Context) {
		sum := h.deps.Crawls.ResumeFailedCrawl(ctx, id, who)
		h.log.Info("Resume finished", "session_id", id, "status", sum.Status, "message", sum.Message)
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Resume started",
		"session_id": id,
		"from_page":  s.ProcessedPages + 1,
	})
}

// listSessions handles GET /api/v1/crawls.
func (h *handler) listSessions(c *gin.Context) {
	limit, ok := parseLimit(c, defaultSessionLimit, maxSessionLimit)
	if !ok {
		return
	}

	sessions, err := h.deps.Sessions.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "Failed to list sessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// getSession handles GET /api/v1/crawls/:session_id.
func (h *handler) getSession(c *gin.Context) {
	s, err := h.deps.Sessions.FindSession(c.Request.Context(), c.Param("session_id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load session", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// recentChanges handles GET /api/v1/changes/recent.
func (h *handler) recentChanges(c *gin.Context) {
	limit, ok := parseLimit(c, defaultChangeLimit, maxChangeLimit)
	if !ok {
		return
	}

	entries, err := h.deps.Changes.ListRecentChanges(c.Request.Context(), domain.ChangeFilter{
		Kind:  c.Query("kind"),
		Limit: limit,
	})
	if err != nil {
		h.internalError(c, "Failed to list changes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": entries, "count": len(entries)})
}

// background runs fn detached from the request.
func (h *handler) background(fn func(ctx context.Context)) {
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		fn(h.deps.RunContext)
	}()
}

func (h *handler) internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	h.log.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// parseLimit reads ?limit=, clamping it to max. It writes a 400 and returns
// false when the value is not a positive integer.
func parseLimit(c *gin.Context, def, maxLimit int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxLimit), true
}
