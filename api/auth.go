package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/auth"
	"github.com/vpetrenko/courtbooking/internal/service/account"
)

type AuthHandler struct {
	accounts account.AccountUseCase
	tokens   *auth.Tokens
}

func NewAuthHandler(accounts account.AccountUseCase, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.POST("/otp", h.requestCode)
	router.POST("/otp/login", h.loginWithCode)
}

// RegisterValidation mounts the account validation endpoint on an
// admin-guarded group.
func (h *AuthHandler) RegisterValidation(router *gin.RouterGroup) {
	router.POST("/users/:id/validation", h.validate)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	Token  string `json:"token"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req account.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "tier": string(user.Tier)})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.LoginWithCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.tokens.Create(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{UserID: user.ID, Tier: string(user.Tier), Token: token})
}

type codeRequest struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
	Code        string `json:"code,omitempty"`
}

func (h *AuthHandler) requestCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.RequestOneTimeCode(c.Request.Context(), req.Channel, req.Destination); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *AuthHandler) loginWithCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.LoginWithOneTimeCode(c.Request.Context(), req.Channel, req.Destination, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.tokens.Create(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{UserID: user.ID, Tier: string(user.Tier), Token: token})
}

type validateRequest struct {
	EmailOK *bool `json:"email_ok"`
	PhoneOK *bool `json:"phone_ok"`
}

func (h *AuthHandler) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.ValidateAccount(c.Request.Context(), actorID(c), c.Param("id"), req.EmailOK, req.PhoneOK)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":        user.ID,
		"email_verified": user.EmailVerified,
		"phone_verified": user.PhoneVerified,
	})
}
