package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rolodexhq/rolodex/internal/auth"
	"github.com/rolodexhq/rolodex/internal/avatar"
	"github.com/rolodexhq/rolodex/internal/mail"
	"github.com/rolodexhq/rolodex/internal/security"
	"github.com/rolodexhq/rolodex/internal/storage"
)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, avatar *string) (*storage.User, error)
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, email, url string) (*storage.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type AuthHandler struct {
	Store   UserStore
	Tokens  *security.TokenService
	Mailer  mail.Sender
	Logger  *slog.Logger
	BaseURL string

	// MailTimeout bounds the detached confirmation-mail goroutine.
	MailTimeout time.Duration
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signupResponse struct {
	User   userResponse `json:"user"`
	Detail string       `json:"detail"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type requestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func NewAuthHandler(store UserStore, tokens *security.TokenService, mailer mail.Sender, logger *slog.Logger, baseURL string) *AuthHandler {
	return &AuthHandler{
		Store:       store,
		Tokens:      tokens,
		Mailer:      mailer,
		Logger:      logger,
		BaseURL:     baseURL,
		MailTimeout: 10 * time.Second,
	}
}

func (h *AuthHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/auth")
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.GET("/refresh_token", h.Refresh)
	g.GET("/confirmed_email/:token", h.ConfirmedEmail)
	g.POST("/request_email", h.RequestEmail)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	_, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusConflict, errorResponse{Code: "CONFLICT", Message: "account already exists"})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		h.Logger.Error("signup lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		h.Logger.Error("password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	// The default avatar is a nicety; the account is created without one if
	// anything goes sideways.
	av := avatar.GravatarURL(req.Email)

	user, err := h.Store.CreateUser(c.Request.Context(), req.Email, hash, &av)
	if err != nil {
		h.Logger.Error("create user failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	h.dispatchConfirmation(user.Email)

	c.JSON(http.StatusCreated, signupResponse{
		User:   newUserResponse(user),
		Detail: "user successfully created, check your email for confirmation",
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid email"})
			return
		}
		h.Logger.Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	if !user.Confirmed {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "email not confirmed"})
		return
	}

	if !security.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid password"})
		return
	}

	pair, err := h.issuePair(c.Request.Context(), user)
	if err != nil {
		h.Logger.Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token := auth.ExtractBearer(c.GetHeader("Authorization"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	email, err := h.Tokens.VerifyRefresh(token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidScope) {
			c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid scope for token"})
			return
		}
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
			return
		}
		h.Logger.Error("refresh lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	// A presented token that verified but does not match the stored one is
	// stale: a later login or refresh rotated it. Clearing the stored token
	// forces a fresh login on the next attempt.
	if user.RefreshToken == nil || *user.RefreshToken != token {
		if err := h.Store.UpdateRefreshToken(c.Request.Context(), user.ID, nil); err != nil {
			h.Logger.Error("refresh token clear failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid refresh token"})
		return
	}

	pair, err := h.issuePair(c.Request.Context(), user)
	if err != nil {
		h.Logger.Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) ConfirmedEmail(c *gin.Context) {
	email, err := h.Tokens.VerifyEmail(c.Param("token"))
	if err != nil {
		if errors.Is(err, security.ErrInvalidScope) {
			c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid scope for token"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Code: "UNPROCESSABLE_TOKEN", Message: "invalid token for email verification"})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "verification error"})
			return
		}
		h.Logger.Error("confirm lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	if user.Confirmed {
		c.JSON(http.StatusOK, gin.H{"message": "your email is already confirmed"})
		return
	}

	if err := h.Store.ConfirmEmail(c.Request.Context(), email); err != nil {
		h.Logger.Error("confirm email failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email confirmed"})
}

func (h *AuthHandler) RequestEmail(c *gin.Context) {
	var req requestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	user, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Logger.Error("request email lookup failed", "error", err)
		}
		// Unknown address gets the same answer as a known one.
		c.JSON(http.StatusOK, gin.H{"message": "check your email for confirmation"})
		return
	}

	if user.Confirmed {
		c.JSON(http.StatusOK, gin.H{"message": "your email is already confirmed"})
		return
	}

	h.dispatchConfirmation(user.Email)
	c.JSON(http.StatusOK, gin.H{"message": "check your email for confirmation"})
}

func (h *AuthHandler) issuePair(ctx context.Context, user *storage.User) (*tokenResponse, error) {
	access, err := h.Tokens.IssueAccessToken(user.Email, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := h.Tokens.IssueRefreshToken(user.Email, 0)
	if err != nil {
		return nil, err
	}
	if err := h.Store.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, err
	}
	return &tokenResponse{TokenType: "bearer", AccessToken: access, RefreshToken: refresh}, nil
}

// dispatchConfirmation sends the confirmation link off the request path.
// Failures are logged and never surface: the account exists either way.
func (h *AuthHandler) dispatchConfirmation(email string) {
	token, err := h.Tokens.IssueEmailToken(email)
	if err != nil {
		h.Logger.Error("email token issue failed", "error", err, "email", email)
		return
	}
	confirmURL := h.BaseURL + "/api/auth/confirmed_email/" + token

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.MailTimeout)
		defer cancel()
		if err := h.Mailer.SendConfirmation(ctx, email, confirmURL); err != nil {
			h.Logger.Error("confirmation mail failed", "error", err, "email", email)
		}
	}()
}
