package main

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"pathfinder/backend/internal/app"
	"pathfinder/backend/internal/constants"
	"pathfinder/backend/internal/state"
	"pathfinder/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// newRouter builds the HTTP surface over a wired container.
func newRouter(c *app.Container, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(httpMetrics(c))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(ctx *gin.Context) {
		ctx.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		ctx.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+requestIDHeader)
		ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	})

	// Health check
	router.GET("/health", func(ctx *gin.Context) {
		body := gin.H{"status": "ok"}
		for k, v := range c.Health(ctx.Request.Context()) {
			body[k] = v
			if v == "unreachable" {
				body["status"] = "degraded"
			}
		}
		ctx.JSON(http.StatusOK, body)
	})

	router.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	h := &handlers{c: c, log: log}
	api := router.Group("/api/users/:id")
	{
		api.POST("/survey", h.ingestSurvey)
		api.POST("/survey/preview", h.previewSurvey)
		api.GET("/graph", h.userGraph)
		api.POST("/chat", h.chat)
		api.GET("/chat/history", h.chatHistory)
	}

	return router
}

type handlers struct {
	c   *app.Container
	log *zap.Logger
}

func (h *handlers) ingestSurvey(ctx *gin.Context) {
	var raw map[string]any
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "survey must be a JSON object"})
		return
	}

	result, err := h.c.Pipeline.IngestSurvey(ctx.Request.Context(), ctx.Param("id"), raw)
	if err != nil {
		h.fail(ctx, "Failed to ingest survey", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (h *handlers) previewSurvey(ctx *gin.Context) {
	var raw map[string]any
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "survey must be a JSON object"})
		return
	}

	g, err := h.c.Pipeline.Preview(ctx.Request.Context(), raw)
	if err != nil {
		h.fail(ctx, "Failed to preview survey", err)
		return
	}

	ctx.JSON(http.StatusOK, g)
}

func (h *handlers) userGraph(ctx *gin.Context) {
	g, err := h.c.Pipeline.UserGraph(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.fail(ctx, "Failed to read user graph", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"nodes":         g.Nodes,
		"relationships": g.Relationships,
		"profile":       state.ProfileFromGraph(g),
	})
}

func (h *handlers) chat(ctx *gin.Context) {
	if h.c.Counselor == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "counselor is not configured"})
		return
	}

	var req struct {
		Message  string `json:"message" binding:"required"`
		Category string `json:"category"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if utf8.RuneCountInString(req.Message) > constants.MaxMessageLength {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too long"})
		return
	}

	result, err := h.c.Counselor.RunTurn(ctx.Request.Context(), ctx.Param("id"), req.Message, req.Category)
	if err != nil {
		h.fail(ctx, "Failed to run counselor turn", err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (h *handlers) chatHistory(ctx *gin.Context) {
	if h.c.History == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "conversation history is not configured"})
		return
	}

	userID := strings.TrimSpace(ctx.Param("id"))
	if userID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history, err := h.c.History.ConversationHistory(ctx.Request.Context(), userID, query.Limit)
	if err != nil {
		h.fail(ctx, "Failed to read conversation history", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"history": history})
}

// fail maps typed errors to a status and logs the rest.
func (h *handlers) fail(ctx *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	var invalid *errors.ErrInvalidGraphItem
	switch {
	case stderrors.As(err, &invalid), errors.IsErrorType(err, errors.ErrorTypeInput):
		status = http.StatusBadRequest
	case stderrors.Is(err, errors.ErrLLMUnavailable):
		status = http.StatusServiceUnavailable
	case errors.IsErrorType(err, errors.ErrorTypeLLM):
		status = http.StatusBadGateway
	case errors.IsErrorType(err, errors.ErrorTypeGraph):
		status = http.StatusServiceUnavailable
	case errors.IsErrorType(err, errors.ErrorTypeContext):
		status = http.StatusRequestTimeout
	}

	h.log.Error(msg,
		zap.String("user_id", ctx.Param("id")),
		zap.String("request_id", ctx.GetString("request_id")),
		zap.Int("status", status),
		zap.Error(err),
	)
	ctx.JSON(status, gin.H{"error": msg, "retryable": errors.IsRetryable(err)})
}

// requestID propagates or assigns X-Request-ID.
func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set("request_id", id)
		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Next()
	}
}

func httpMetrics(c *app.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.Metrics.HTTPRequest(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status()))
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
