package registration

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sdmydbr9/EVMR-sub001/internal/handler"
	"github.com/sdmydbr9/EVMR-sub001/internal/middleware"
	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	registrationService "github.com/sdmydbr9/EVMR-sub001/internal/service/registration"
)

type Handler struct {
	service registrationService.Servicer
}

func NewHandler(service registrationService.Servicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the registration endpoints. Ingestion is gated by the
// shared-secret check; everything else requires an authenticated admin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, ingest *middleware.IngestAuthMiddleware, auth *middleware.AuthMiddleware) {
	registrations := r.Group("/registrations")
	{
		registrations.POST("", ingest.RequireSharedSecret(), h.IngestRegistration)

		reviewed := registrations.Group("")
		reviewed.Use(auth.Authenticate(), auth.RequireAdmin())
		{
			reviewed.GET("", h.ListRegistrations)
			reviewed.GET("/:id", h.GetRegistration)
			reviewed.POST("/:id/approve", h.ApproveRegistration)
			reviewed.POST("/:id/reject", h.RejectRegistration)
		}
	}
}

type ingestRequest struct {
	AccountID string           `json:"account_id" binding:"required"`
	Payload   model.Submission `json:"payload" binding:"required"`
}

func (h *Handler) IngestRegistration(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid account ID"))
		return
	}

	if _, err := h.service.Ingest(c.Request.Context(), accountID, req.Payload); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListRegistrations(c *gin.Context) {
	stage, ok := model.ParseStage(c.DefaultQuery("stage", string(model.RegistrationStatusPending)))
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid stage"))
		return
	}

	views, err := h.service.List(c.Request.Context(), stage)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"registrations": views}))
}

func (h *Handler) GetRegistration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration ID"))
		return
	}

	view, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}

func (h *Handler) ApproveRegistration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration ID"))
		return
	}

	result, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	message := fmt.Sprintf("Registration for %s approved", result.Account.Name)
	c.JSON(http.StatusOK, handler.NewMessageResponse(message, gin.H{
		"account_id": result.Account.ID,
		"unique_id":  result.Account.UniqueID(),
	}))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectRegistration(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration ID"))
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	message := fmt.Sprintf("Registration for %s rejected", result.Account.Name)
	c.JSON(http.StatusOK, handler.NewMessageResponse(message, gin.H{
		"account_id": result.Account.ID,
		"reason":     result.Account.RejectionReason(),
	}))
}
