package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned for any single-row lookup miss.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, avatar, refresh_token, confirmed, created_at
		FROM users
		WHERE email = $1
	`, email)

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Avatar, &user.RefreshToken, &user.Confirmed, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, avatar *string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, avatar, confirmed, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING id, email, password_hash, avatar, refresh_token, confirmed, created_at
	`, email, passwordHash, avatar)

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Avatar, &user.RefreshToken, &user.Confirmed, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateRefreshToken replaces the stored refresh token; a nil token clears it,
// forcing re-authentication on the next refresh attempt.
func (s *Store) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET refresh_token = $2 WHERE id = $1
	`, userID, token)
	return err
}

func (s *Store) ConfirmEmail(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET confirmed = true WHERE email = $1
	`, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAvatar(ctx context.Context, email, url string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users SET avatar = $2
		WHERE email = $1
		RETURNING id, email, password_hash, avatar, refresh_token, confirmed, created_at
	`, email, url)

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Avatar, &user.RefreshToken, &user.Confirmed, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user and every owned contact in one transaction.
// The cascade is explicit rather than a schema-level ON DELETE clause.
func (s *Store) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE user_id = $1`, userID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (s *Store) GetContact(ctx context.Context, userID, contactID uuid.UUID) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
		FROM contacts
		WHERE id = $1 AND user_id = $2
	`, contactID, userID)
	return scanContact(row)
}

func (s *Store) GetContactByEmail(ctx context.Context, userID uuid.UUID, email string) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
		FROM contacts
		WHERE email = $1 AND user_id = $2
	`, email, userID)
	return scanContact(row)
}

// GetContactByEmailAny looks the email up across every owner. Contact emails
// are unique system-wide, not per owner, and creation pre-checks here.
func (s *Store) GetContactByEmailAny(ctx context.Context, email string) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
		FROM contacts
		WHERE email = $1
	`, email)
	return scanContact(row)
}

func (s *Store) ListContacts(ctx context.Context, userID uuid.UUID, filter ContactFilter, skip, limit int) ([]Contact, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
		FROM contacts
		WHERE user_id = $1
	`
	args := []any{userID}

	// Filters are mutually exclusive: email wins over first name wins over
	// last name, whatever else was supplied.
	switch {
	case filter.Email != "":
		query += " AND email ILIKE '%' || $2 || '%'"
		args = append(args, filter.Email)
	case filter.FirstName != "":
		query += " AND first_name ILIKE '%' || $2 || '%'"
		args = append(args, filter.FirstName)
	case filter.LastName != "":
		query += " AND last_name ILIKE '%' || $2 || '%'"
		args = append(args, filter.LastName)
	}

	query += " ORDER BY created_at, id"
	query += " OFFSET $" + strconv.Itoa(len(args)+1)
	args = append(args, skip)
	query += " LIMIT $" + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectContacts(rows)
}

// ListContactsWithBirthDate returns every owned contact carrying a birth
// date; the calendar-window filtering happens in the contacts package.
func (s *Store) ListContactsWithBirthDate(ctx context.Context, userID uuid.UUID) ([]Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
		FROM contacts
		WHERE user_id = $1 AND birth_date IS NOT NULL
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectContacts(rows)
}

func (s *Store) CreateContact(ctx context.Context, userID uuid.UUID, fields ContactFields) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (first_name, last_name, email, phone, birth_date, bio, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
	`, fields.FirstName, fields.LastName, fields.Email, fields.Phone, fields.BirthDate, fields.Bio, userID)
	return scanContact(row)
}

func (s *Store) UpdateContact(ctx context.Context, userID, contactID uuid.UUID, fields ContactFields) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone = $6, birth_date = $7, bio = $8
		WHERE id = $1 AND user_id = $2
		RETURNING id, first_name, last_name, email, phone, birth_date, bio, user_id, created_at
	`, contactID, userID, fields.FirstName, fields.LastName, fields.Email, fields.Phone, fields.BirthDate, fields.Bio)
	return scanContact(row)
}

func (s *Store) DeleteContact(ctx context.Context, userID, contactID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM contacts WHERE id = $1 AND user_id = $2
	`, contactID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.BirthDate, &c.Bio, &c.UserID, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectContacts(rows pgx.Rows) ([]Contact, error) {
	items := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.BirthDate, &c.Bio, &c.UserID, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

