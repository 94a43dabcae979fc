package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/services"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

type TicketHandler struct {
	*BaseHandler
	ticketService services.TicketService
}

func NewTicketHandler(base *BaseHandler, ticketService services.TicketService) *TicketHandler {
	return &TicketHandler{
		BaseHandler:   base,
		ticketService: ticketService,
	}
}

func (h *TicketHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	tickets := rg.Group("/tickets", authed)
	{
		tickets.GET("", h.List)
		tickets.POST("", h.Create)
		tickets.GET("/assigned", middleware.RequireRoles(models.UserRoleModerator, models.UserRoleAdmin), h.ListAssigned)
		tickets.GET("/:id", h.Get)
		tickets.PUT("/:id/status", middleware.RequireRoles(models.UserRoleModerator, models.UserRoleAdmin), h.UpdateStatus)
		tickets.DELETE("/:id", h.Delete)
	}
}

func (h *TicketHandler) List(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	tickets, err := h.ticketService.List(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) Create(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.CreateTicketRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.ticketService.Create(c.Request.Context(), p, &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TicketHandler) Get(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	ticket, err := h.ticketService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.UpdateTicketStatusRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	ticket, err := h.ticketService.UpdateStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func (h *TicketHandler) Delete(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	if err := h.ticketService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket deleted"})
}

func (h *TicketHandler) ListAssigned(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	resp, err := h.ticketService.ListAssigned(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
