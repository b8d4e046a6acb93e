package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rolodexhq/rolodex/internal/security"
)

func main() {
	env := getEnv("CONTACTS_ENV", "dev")
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: CONTACTS_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "rolodex")
	user := getEnv("POSTGRES_USER", "rolodex")
	password := getEnv("POSTGRES_PASSWORD", "rolodex")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, db, sslmode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	fmt.Println("Seeding database...")

	if err := createSchema(ctx, pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	fmt.Println("✓ Schema ready")

	demoID, err := seedUsers(ctx, pool)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	fmt.Println("✓ Users seeded")

	if err := seedContacts(ctx, pool, demoID); err != nil {
		log.Fatalf("seed contacts: %v", err)
	}
	fmt.Println("✓ Contacts seeded")

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nDemo Credentials:")
	fmt.Println("  Email: demo@example.com")
	fmt.Println("  Password: demo123")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			avatar TEXT,
			refresh_token TEXT,
			confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT,
			birth_date DATE,
			bio TEXT,
			user_id UUID NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_user_email ON contacts(user_id, email)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, error) {
	hash, err := security.HashPassword("demo123")
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var demoID uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, confirmed)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO UPDATE SET confirmed = TRUE
		RETURNING id`,
		uuid.New(), "demo@example.com", hash,
	).Scan(&demoID)
	if err != nil {
		return uuid.Nil, err
	}
	return demoID, nil
}

func seedContacts(ctx context.Context, pool *pgxpool.Pool, ownerID uuid.UUID) error {
	type fixture struct {
		first, last, email string
		birth              *time.Time
	}

	// One birthday inside the upcoming window, one later in the year.
	soon := time.Now().UTC().AddDate(-30, 0, 3)
	later := time.Date(1990, 10, 21, 0, 0, 0, 0, time.UTC)

	fixtures := []fixture{
		{"Ada", "Lovelace", "ada@example.com", &soon},
		{"Grace", "Hopper", "grace@example.com", &later},
		{"Alan", "Turing", "alan@example.com", nil},
	}

	for _, f := range fixtures {
		_, err := pool.Exec(ctx, `
			INSERT INTO contacts (id, first_name, last_name, email, birth_date, user_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (email) DO NOTHING`,
			uuid.New(), f.first, f.last, f.email, f.birth, ownerID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
