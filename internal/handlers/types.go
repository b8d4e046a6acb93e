package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rolodexhq/rolodex/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Date is a calendar day in JSON, "2006-01-02" both ways. Contact birth
// dates carry no time-of-day component.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.Format("2006-01-02"))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	d.Time = t
	return nil
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt string    `json:"created_at"`
}

func newUserResponse(user *storage.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Confirmed: user.Confirmed,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type tokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type contactRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone"`
	BirthDate *Date   `json:"birth_date"`
	Bio       *string `json:"bio"`
}

func (r contactRequest) fields() storage.ContactFields {
	f := storage.ContactFields{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Bio:       r.Bio,
	}
	if r.BirthDate != nil {
		bd := r.BirthDate.Time
		f.BirthDate = &bd
	}
	return f
}

type contactResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	BirthDate *Date     `json:"birth_date"`
	Bio       *string   `json:"bio"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt string    `json:"created_at"`
}

func newContactResponse(c *storage.Contact) contactResponse {
	resp := contactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Bio:       c.Bio,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.BirthDate != nil {
		resp.BirthDate = &Date{Time: *c.BirthDate}
	}
	return resp
}

func newContactListResponse(items []storage.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(items))
	for i := range items {
		out = append(out, newContactResponse(&items[i]))
	}
	return out
}

func parseSkip(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
