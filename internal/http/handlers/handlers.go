package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/ai"
	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/service"
)

const WelcomeMessage = "Welcome to the AI Assistant!"

// AuditLog is the read side of the audit store.
type AuditLog interface {
	Ping(ctx context.Context) error
	ListPublishes(ctx context.Context, limit int) ([]models.PublishRecord, error)
}

type Handler struct {
	Responder      *ai.Responder
	Tickets        *service.TicketService
	Publisher      *service.Publisher
	Connectivity   *service.Connectivity
	Audit          AuditLog
	Validator      *validator.Validate
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

type ChatRequest struct {
	Text string `json:"text" validate:"required,max=8000"`
}

type ChatResponse struct {
	Turn   models.ChatTurn `json:"turn"`
	Source string          `json:"source"`
	Notice string          `json:"notice,omitempty"`
}

type TicketRequest struct {
	Text       string `json:"text" validate:"required"`
	ProjectKey string `json:"project_key" validate:"required"`
}

type PublishTicket struct {
	Key string `json:"key" validate:"required"`
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PublishRequest struct {
	Ticket     PublishTicket `json:"ticket"`
	Text       string        `json:"text"`
	ProjectKey string        `json:"project_key"`
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Audit != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Audit.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Welcome text
// @Tags chat
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/welcome [get]
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": WelcomeMessage})
}

// @Summary Chat with the assistant
// @Description Replies conversationally or with an "Issue Summary / Next Steps" triage text
// @Tags chat
// @Accept json
// @Produce json
// @Param request body ChatRequest true "Chat request"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} map[string]any
// @Failure 504 {object} map[string]any
// @Router /api/chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if !h.bind(c, &req) {
		return
	}

	reply, err := h.Responder.Respond(c.Request.Context(), req.Text)
	if err != nil {
		if apperr.Is(err, apperr.CodeTimeout) {
			e, _ := apperr.As(err)
			writeError(c, http.StatusGatewayTimeout, string(apperr.CodeTimeout), ai.UserMessage(ai.CategoryTimeout), e.Details)
			return
		}
		h.Logger.Error().Err(err).Msg("chat failed")
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Turn: models.ChatTurn{
			ID:        uuid.NewString(),
			Text:      reply.Text,
			Role:      models.RoleAssistant,
			CreatedAt: time.Now().UTC(),
		},
		Source: reply.Source,
		Notice: reply.Notice(),
	})
}

// @Summary Create a tracked issue
// @Tags tickets
// @Accept json
// @Produce json
// @Param request body TicketRequest true "Ticket request"
// @Success 201 {object} models.TicketResult
// @Failure 400 {object} models.TicketResult
// @Failure 502 {object} models.TicketResult
// @Router /api/tickets [post]
func (h *Handler) CreateTicket(c *gin.Context) {
	var req TicketRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res := h.Tickets.Submit(ctx, req.Text, req.ProjectKey)
	if !res.Success {
		c.JSON(statusFor(req), res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// @Summary Publish a knowledge article
// @Description Tries the primary content API, then the legacy one, then comments on the ticket
// @Tags knowledge
// @Accept json
// @Produce json
// @Param request body PublishRequest true "Publish request"
// @Success 200 {object} models.PublishResult
// @Failure 502 {object} models.PublishResult
// @Router /api/knowledge/publish [post]
func (h *Handler) Publish(c *gin.Context) {
	var req PublishRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	ref := models.TicketRef{Key: req.Ticket.Key, ID: req.Ticket.ID, URL: req.Ticket.URL}
	res := h.Publisher.Publish(ctx, ref, req.Text, req.ProjectKey)
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Content platform connectivity
// @Tags knowledge
// @Produce json
// @Success 200 {object} models.ConnectivityReport
// @Failure 502 {object} models.ConnectivityReport
// @Router /api/knowledge/connectivity [get]
func (h *Handler) ConnectivityCheck(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rep := h.Connectivity.Test(ctx)
	if !rep.Success {
		c.JSON(http.StatusBadGateway, rep)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// @Summary Recent publish outcomes
// @Tags knowledge
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/publishes [get]
func (h *Handler) PublishesList(c *gin.Context) {
	if h.Audit == nil {
		writeError(c, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Audit store is not configured", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.Audit.ListPublishes(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list publishes", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, string(apperr.CodeInvalidRequest), "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
}

// statusFor maps a failed ticket result onto an HTTP status. Blank fields
// pass the required tag, so they are checked again here.
func statusFor(req TicketRequest) int {
	if strings.TrimSpace(req.ProjectKey) == "" || strings.TrimSpace(req.Text) == "" {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeAppError(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		writeError(c, e.Status, string(e.Code), e.Message, e.Details)
		return
	}
	writeError(c, http.StatusInternalServerError, string(apperr.CodeInternal), "Internal error", err.Error())
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
