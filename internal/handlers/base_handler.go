package handlers

import (
	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/validator"
	"helpdesk_backend/pkg/apperrors"
)

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{validator: v}
}

// BindAndValidateJSON binds the request body and runs struct validation,
// writing the error response itself. Returns false when the handler should
// bail out.
func (h *BaseHandler) BindAndValidateJSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWithError(ctx, "failed to bind request body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// Principal returns the authenticated principal, failing the request with
// 401 when the auth middleware did not run.
func (h *BaseHandler) Principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Access denied, no token found."))
		return auth.Principal{}, false
	}
	return p, true
}
