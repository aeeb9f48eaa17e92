package reconciliation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abaflow/practice-api/internal/handler"
	"github.com/abaflow/practice-api/internal/middleware"
	"github.com/abaflow/practice-api/internal/model"
	reconciliationService "github.com/abaflow/practice-api/internal/service/reconciliation"
)

type Handler struct {
	service *reconciliationService.Service
}

func NewHandler(service *reconciliationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rec := r.Group("/reconciliation")
	{
		rec.GET("/report", h.Report)
		rec.POST("/auto-resolve", h.AutoResolve)
		rec.POST("/sessions/:id/appointment", h.CreateRetroactive)
		rec.POST("/retroactive-batch", h.CreateRetroactiveBatch)
	}
}

func parseRange(c *gin.Context) (model.DateRange, bool) {
	var rng model.DateRange

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid or missing from date"))
		return rng, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid or missing to date"))
		return rng, false
	}

	rng.From = from
	rng.To = to
	return rng, true
}

func (h *Handler) Report(c *gin.Context) {
	rng, ok := parseRange(c)
	if !ok {
		return
	}

	report, err := h.service.Detect(c.Request.Context(), middleware.ActorFromContext(c), rng)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

type resolveRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

func (h *Handler) AutoResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from date"))
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to date"))
		return
	}

	result, err := h.service.AutoResolve(c.Request.Context(), middleware.ActorFromContext(c), model.DateRange{From: from, To: to})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) CreateRetroactive(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	var req reconciliationService.RetroactiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if req.DisciplineID != nil && !middleware.HasProAccess(c) {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("discipline-scoped scheduling requires a pro subscription"))
		return
	}

	apt, err := h.service.CreateRetroactive(c.Request.Context(), middleware.ActorFromContext(c), sessionID, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

type retroactiveBatchRequest struct {
	SessionIDs []uuid.UUID                              `json:"session_ids" binding:"required,min=1"`
	Defaults   reconciliationService.RetroactiveRequest `json:"defaults"`
}

func (h *Handler) CreateRetroactiveBatch(c *gin.Context) {
	var req retroactiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if req.Defaults.DisciplineID != nil && !middleware.HasProAccess(c) {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("discipline-scoped scheduling requires a pro subscription"))
		return
	}

	result, err := h.service.CreateRetroactiveBatch(c.Request.Context(), middleware.ActorFromContext(c), req.SessionIDs, req.Defaults)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
