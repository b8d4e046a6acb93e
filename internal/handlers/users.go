package handlers

import (
	"context"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/rolodexhq/rolodex/internal/auth"
	"github.com/rolodexhq/rolodex/internal/avatar"
)

type SessionCache interface {
	Invalidate(ctx context.Context, email string) error
}

type UsersHandler struct {
	Store    UserStore
	Uploader avatar.Uploader
	Cache    SessionCache
	Logger   *slog.Logger
}

func NewUsersHandler(store UserStore, uploader avatar.Uploader, cache SessionCache, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{Store: store, Uploader: uploader, Cache: cache, Logger: logger}
}

func (h *UsersHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/users")
	g.GET("/me", h.Me)
	g.PATCH("/avatar", h.UpdateAvatar)
	g.DELETE("/me", h.DeleteMe)
}

func (h *UsersHandler) Me(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *UsersHandler) UpdateAvatar(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.Logger.Error("avatar open failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}
	defer file.Close()

	url, err := h.Uploader.Upload(c.Request.Context(), user.ID.String(), header.Header.Get("Content-Type"), file)
	if err != nil {
		h.Logger.Error("avatar upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	updated, err := h.Store.UpdateAvatar(c.Request.Context(), user.Email, url)
	if err != nil {
		h.Logger.Error("avatar persist failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	// The session cache keeps serving the old avatar until its entry expires.
	// Callers see the new URL in this response either way.
	c.JSON(http.StatusOK, newUserResponse(updated))
}

func (h *UsersHandler) DeleteMe(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	if err := h.Store.DeleteUser(c.Request.Context(), user.ID); err != nil {
		h.Logger.Error("delete user failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	if err := h.Cache.Invalidate(c.Request.Context(), user.Email); err != nil {
		h.Logger.Warn("session cache invalidate failed", "error", err)
	}

	c.Status(http.StatusNoContent)
}
