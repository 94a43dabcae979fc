package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/services"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

// webhookSignatureHeader carries the gateway's HMAC over the raw body.
const webhookSignatureHeader = "X-Razorpay-Signature"

type PaymentHandler struct {
	*BaseHandler
	paymentService services.PaymentService
}

func NewPaymentHandler(base *BaseHandler, paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	payments := rg.Group("/payments")
	{
		payments.GET("/config", h.Config)
		// The webhook authenticates itself via signature, not bearer token.
		payments.POST("/webhook", h.Webhook)

		payments.GET("/credits", authed, h.Credits)
		payments.GET("/history", authed, h.History)
		payments.POST("/create-order", authed, h.CreateOrder)
		payments.POST("/verify", authed, h.Verify)
	}
}

func (h *PaymentHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, h.paymentService.Config(c.Request.Context()))
}

func (h *PaymentHandler) Credits(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	info, err := h.paymentService.Credits(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *PaymentHandler) History(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.History(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	resp, err := h.paymentService.CreateOrder(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.VerifyPaymentRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.Verify(c.Request.Context(), p, &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook reads the raw body before any parsing: the signature covers the
// exact bytes the gateway sent.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Could not read request body"))
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if err := h.paymentService.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		logger.CtxWithError(c.Request.Context(), "webhook rejected", err)
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
