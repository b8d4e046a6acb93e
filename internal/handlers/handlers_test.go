package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rolodexhq/rolodex/internal/storage"
)

var errSend = errors.New("mail provider unavailable")

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	links []string
	err   error
}

func (f *fakeMailer) SendConfirmation(ctx context.Context, recipient, confirmURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient)
	f.links = append(f.links, confirmURL)
	return nil
}

func (f *fakeMailer) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		got := len(f.sent)
		f.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d confirmation mails", n)
}

type fakeUploader struct {
	url string
	err error

	lastID          string
	lastContentType string
	lastBody        []byte
}

func (f *fakeUploader) Upload(ctx context.Context, id, contentType string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastID = id
	f.lastContentType = contentType
	data, _ := io.ReadAll(body)
	f.lastBody = data
	return f.url, nil
}

type fakeSessionCache struct {
	mu          sync.Mutex
	invalidated []string
	err         error
}

func (f *fakeSessionCache) Invalidate(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, email)
	return nil
}

// memStore backs handler tests with the same interface surface the postgres
// store exposes.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*storage.User
	contacts map[uuid.UUID]*storage.Contact
	seq      int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*storage.User{},
		contacts: map[uuid.UUID]*storage.Contact{},
	}
}

func (m *memStore) addUser(email, hash string, confirmed bool) *storage.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &storage.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Confirmed:    confirmed,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[email] = user
	return user
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memStore) CreateUser(ctx context.Context, email, passwordHash string, avatar *string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &storage.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       avatar,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[email] = user
	clone := *user
	return &clone, nil
}

func (m *memStore) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == userID {
			user.RefreshToken = token
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ConfirmEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return storage.ErrNotFound
	}
	user.Confirmed = true
	return nil
}

func (m *memStore) UpdateAvatar(ctx context.Context, email, url string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user.Avatar = &url
	clone := *user
	return &clone, nil
}

func (m *memStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, user := range m.users {
		if user.ID == userID {
			for id, contact := range m.contacts {
				if contact.UserID == userID {
					delete(m.contacts, id)
				}
			}
			delete(m.users, email)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) GetContact(ctx context.Context, userID, contactID uuid.UUID) (*storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact, ok := m.contacts[contactID]
	if !ok || contact.UserID != userID {
		return nil, storage.ErrNotFound
	}
	clone := *contact
	return &clone, nil
}

func (m *memStore) GetContactByEmailAny(ctx context.Context, email string) (*storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, contact := range m.contacts {
		if contact.Email == email {
			clone := *contact
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) ListContacts(ctx context.Context, userID uuid.UUID, filter storage.ContactFilter, skip, limit int) ([]storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match := func(c *storage.Contact) bool {
		switch {
		case filter.Email != "":
			return containsFold(c.Email, filter.Email)
		case filter.FirstName != "":
			return containsFold(c.FirstName, filter.FirstName)
		case filter.LastName != "":
			return containsFold(c.LastName, filter.LastName)
		}
		return true
	}

	var all []storage.Contact
	for _, contact := range m.contacts {
		if contact.UserID == userID && match(contact) {
			all = append(all, *contact)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	if skip >= len(all) {
		return nil, nil
	}
	all = all[skip:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) ListContactsWithBirthDate(ctx context.Context, userID uuid.UUID) ([]storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []storage.Contact
	for _, contact := range m.contacts {
		if contact.UserID == userID && contact.BirthDate != nil {
			all = append(all, *contact)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (m *memStore) CreateContact(ctx context.Context, userID uuid.UUID, fields storage.ContactFields) (*storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	contact := &storage.Contact{
		ID:        uuid.New(),
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     fields.Email,
		Phone:     fields.Phone,
		BirthDate: fields.BirthDate,
		Bio:       fields.Bio,
		UserID:    userID,
		CreatedAt: time.Now().UTC().Add(time.Duration(m.seq) * time.Millisecond),
	}
	m.contacts[contact.ID] = contact
	clone := *contact
	return &clone, nil
}

func (m *memStore) UpdateContact(ctx context.Context, userID, contactID uuid.UUID, fields storage.ContactFields) (*storage.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact, ok := m.contacts[contactID]
	if !ok || contact.UserID != userID {
		return nil, storage.ErrNotFound
	}
	contact.FirstName = fields.FirstName
	contact.LastName = fields.LastName
	contact.Email = fields.Email
	contact.Phone = fields.Phone
	contact.BirthDate = fields.BirthDate
	contact.Bio = fields.Bio
	clone := *contact
	return &clone, nil
}

func (m *memStore) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	contact, ok := m.contacts[contactID]
	if !ok || contact.UserID != userID {
		return storage.ErrNotFound
	}
	delete(m.contacts, contactID)
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
