package handlers

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rolodexhq/rolodex/internal/auth"
	"github.com/rolodexhq/rolodex/internal/contacts"
	"github.com/rolodexhq/rolodex/internal/security"
	"github.com/rolodexhq/rolodex/internal/storage"
)

type ContactStore interface {
	GetContact(ctx context.Context, userID, contactID uuid.UUID) (*storage.Contact, error)
	GetContactByEmailAny(ctx context.Context, email string) (*storage.Contact, error)
	ListContacts(ctx context.Context, userID uuid.UUID, filter storage.ContactFilter, skip, limit int) ([]storage.Contact, error)
	ListContactsWithBirthDate(ctx context.Context, userID uuid.UUID) ([]storage.Contact, error)
	CreateContact(ctx context.Context, userID uuid.UUID, fields storage.ContactFields) (*storage.Contact, error)
	UpdateContact(ctx context.Context, userID, contactID uuid.UUID, fields storage.ContactFields) (*storage.Contact, error)
	DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error
}

type ContactsHandler struct {
	Store  ContactStore
	Logger *slog.Logger
	Clock  security.Clock
}

func NewContactsHandler(store ContactStore, logger *slog.Logger, clock security.Clock) *ContactsHandler {
	return &ContactsHandler{Store: store, Logger: logger, Clock: clock}
}

func (h *ContactsHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/contacts")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/week_to_birthday", h.WeekToBirthday)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *ContactsHandler) Create(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	// Contact email is unique across all users, not just the caller's book.
	_, err := h.Store.GetContactByEmailAny(c.Request.Context(), req.Email)
	if err == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "email already registered"})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		h.Logger.Error("contact email lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	contact, err := h.Store.CreateContact(c.Request.Context(), user.ID, req.fields())
	if err != nil {
		h.Logger.Error("create contact failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusCreated, newContactResponse(contact))
}

func (h *ContactsHandler) List(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	filter := storage.ContactFilter{
		Email:     c.Query("email"),
		FirstName: c.Query("first_name"),
		LastName:  c.Query("last_name"),
	}
	skip := parseSkip(c.Query("skip"))
	limit := parseLimit(c.Query("limit"))

	items, err := h.Store.ListContacts(c.Request.Context(), user.ID, filter, skip, limit)
	if err != nil {
		h.Logger.Error("list contacts failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusOK, newContactListResponse(items))
}

func (h *ContactsHandler) WeekToBirthday(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	skip := parseSkip(c.Query("skip"))
	limit := parseLimit(c.Query("limit"))

	items, err := h.Store.ListContactsWithBirthDate(c.Request.Context(), user.ID)
	if err != nil {
		h.Logger.Error("list birthdays failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	upcoming := contacts.UpcomingBirthdays(items, h.Clock.Now())
	c.JSON(http.StatusOK, newContactListResponse(contacts.Paginate(upcoming, skip, limit)))
}

func (h *ContactsHandler) Get(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "not found"})
		return
	}

	contact, err := h.Store.GetContact(c.Request.Context(), user.ID, contactID)
	if err != nil {
		h.respondContactError(c, err, "get contact failed")
		return
	}

	c.JSON(http.StatusOK, newContactResponse(contact))
}

func (h *ContactsHandler) Update(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "not found"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	contact, err := h.Store.UpdateContact(c.Request.Context(), user.ID, contactID, req.fields())
	if err != nil {
		h.respondContactError(c, err, "update contact failed")
		return
	}

	c.JSON(http.StatusOK, newContactResponse(contact))
}

func (h *ContactsHandler) Delete(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "could not validate credentials"})
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "not found"})
		return
	}

	if err := h.Store.DeleteContact(c.Request.Context(), user.ID, contactID); err != nil {
		h.respondContactError(c, err, "delete contact failed")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ContactsHandler) respondContactError(c *gin.Context, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "not found"})
		return
	}
	h.Logger.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
}
