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

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

// RegisterRoutes mounts the auth endpoints. The authed parameter carries the
// token middleware applied to protected routes.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password/:token", h.ResetPassword)

		auth.GET("/users", authed, middleware.RequireRoles(models.UserRoleAdmin), h.ListUsers)
		auth.POST("/update-user", authed, middleware.RequireRoles(models.UserRoleAdmin), h.UpdateUser)
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout is stateless: tokens expire on their own, the client just drops
// its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	users, err := h.authService.ListUsers(c.Request.Context(), p)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AuthHandler) UpdateUser(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.authService.UpdateUser(c.Request.Context(), p, &req); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}
