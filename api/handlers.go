package api

import (
	"net/http"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/browserscript/browserscript/config"
	"github.com/browserscript/browserscript/downloads"
	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/executor"
	"github.com/browserscript/browserscript/models"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/browserscript/browserscript/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	db      *storage.BoltDB
	rod     *driver.Rod
	watcher *downloads.Watcher
	config  *config.Config

	// The driver is single-session; one script runs at a time.
	runMu sync.Mutex
}

func NewHandler(db *storage.BoltDB, rod *driver.Rod, watcher *downloads.Watcher, cfg *config.Config) *Handler {
	return &Handler{
		db:      db,
		rod:     rod,
		watcher: watcher,
		config:  cfg,
	}
}

// newInterpreter builds a fresh interpreter for one run. Each run gets
// its own session state; the delay can be overridden per script.
func (h *Handler) newInterpreter(delaySeconds int) *executor.Interpreter {
	opts := executor.Options{
		DefaultWait:      time.Duration(h.config.Runner.DefaultWait) * time.Second,
		PauseOnException: time.Duration(h.config.Runner.PauseOnException) * time.Second,
		Delay:            time.Duration(h.config.Runner.Delay) * time.Second,
		Watcher:          h.watcher,
	}
	if delaySeconds > 0 {
		opts.Delay = time.Duration(delaySeconds) * time.Second
	}
	return executor.New(h.rod, opts)
}

// ============= Browser control =============

// StartBrowser launches the browser session.
func (h *Handler) StartBrowser(c *gin.Context) {
	if h.rod.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "browser already running"})
		return
	}

	if err := h.rod.Start(c.Request.Context()); err != nil {
		logger.Error(c.Request.Context(), "Failed to start browser: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start browser"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "browser started"})
}

// StopBrowser closes the browser session.
func (h *Handler) StopBrowser(c *gin.Context) {
	if !h.rod.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "browser not running"})
		return
	}

	if err := h.rod.Stop(); err != nil {
		logger.Error(c.Request.Context(), "Failed to stop browser: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop browser"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "browser stopped"})
}

// BrowserStatus reports whether the browser session is live.
func (h *Handler) BrowserStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.rod.IsRunning()})
}

// PageContent returns the current page, as raw HTML or converted to
// Markdown (the default, format=markdown).
func (h *Handler) PageContent(c *gin.Context) {
	if !h.rod.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "browser not running"})
		return
	}

	html, err := h.rod.PageHTML()
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to read page: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read page"})
		return
	}

	if c.DefaultQuery("format", "markdown") == "html" {
		c.JSON(http.StatusOK, gin.H{"content": html, "format": "html"})
		return
	}

	markdown, err := md.NewConverter("", true, nil).ConvertString(html)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to convert page to markdown: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to convert page"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": markdown, "format": "markdown"})
}

// WaitDownload blocks until a new download matching glob completes.
func (h *Handler) WaitDownload(c *gin.Context) {
	if h.watcher == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no download directory configured"})
		return
	}

	var req struct {
		Glob    string `json:"glob"`
		Timeout int    `json:"timeout"` // seconds, default 60
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Timeout <= 0 {
		req.Timeout = 60
	}

	file, err := h.watcher.WaitFor(c.Request.Context(), req.Glob, time.Duration(req.Timeout)*time.Second)
	if err != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": file})
}

// ============= Scripts =============

type scriptRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Format      string `json:"format" binding:"required"`
	Document    string `json:"document" binding:"required"`
	Delay       int    `json:"delay"`
}

// validate parses the document so broken scripts are rejected at save
// time instead of at playback.
func (r *scriptRequest) validate() (*models.Script, error) {
	script := &models.Script{
		Name:        r.Name,
		Description: r.Description,
		Format:      r.Format,
		Document:    []byte(r.Document),
		Delay:       r.Delay,
	}
	if _, err := script.Actions(); err != nil {
		return nil, err
	}
	return script, nil
}

// ListScripts returns all stored scripts.
func (h *Handler) ListScripts(c *gin.Context) {
	scripts, err := h.db.ListScripts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scripts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scripts": scripts})
}

// GetScript returns one stored script.
func (h *Handler) GetScript(c *gin.Context) {
	script, err := h.db.GetScript(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"script": script})
}

// CreateScript validates and stores a new script.
func (h *Handler) CreateScript(c *gin.Context) {
	var req scriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	script, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	script.ID = uuid.New().String()

	if err := h.db.SaveScript(script); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save script"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"script": script})
}

// UpdateScript validates and replaces an existing script.
func (h *Handler) UpdateScript(c *gin.Context) {
	existing, err := h.db.GetScript(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}

	var req scriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	script, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	script.ID = existing.ID
	script.CreatedAt = existing.CreatedAt

	if err := h.db.SaveScript(script); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save script"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"script": script})
}

// DeleteScript removes a script and its execution history.
func (h *Handler) DeleteScript(c *gin.Context) {
	if err := h.db.DeleteScript(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete script"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "script deleted"})
}

// PlayScript runs a stored script and records the outcome.
func (h *Handler) PlayScript(c *gin.Context) {
	script, err := h.db.GetScript(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}

	actions, err := script.Actions()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	execution := &models.ScriptExecution{
		ID:        uuid.New().String(),
		ScriptID:  script.ID,
		StartedAt: time.Now(),
	}

	runErr := h.newInterpreter(script.Delay).Run(c.Request.Context(), actions)
	execution.FinishedAt = time.Now()
	if runErr != nil {
		execution.Status = models.ExecutionFailed
		execution.Error = runErr.Error()
	} else {
		execution.Status = models.ExecutionSucceeded
	}

	if err := h.db.SaveExecution(execution); err != nil {
		logger.Error(c.Request.Context(), "Failed to record execution: %v", err)
	}

	if runErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     runErr.Error(),
			"execution": execution,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "script completed",
		"script":    script.Name,
		"execution": execution,
	})
}

// RunDocument runs an inline action document without storing it.
func (h *Handler) RunDocument(c *gin.Context) {
	var req struct {
		Format   string `json:"format" binding:"required"`
		Document string `json:"document" binding:"required"`
		Delay    int    `json:"delay"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	script := &models.Script{Format: req.Format, Document: []byte(req.Document)}
	actions, err := script.Actions()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	if err := h.newInterpreter(req.Delay).Run(c.Request.Context(), actions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "document completed"})
}

// ListExecutions returns execution records for one script.
func (h *Handler) ListExecutions(c *gin.Context) {
	executions, err := h.db.ListExecutions(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list executions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions})
}
