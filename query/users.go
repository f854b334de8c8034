package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"postforum/models"
)

const userColumns = "id, name, email, is_moderator, created_at"

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsModerator, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// UserBySession resolves a session cookie value. Empty and expired tokens never match.
func (s *Store) UserBySession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE session_token = ? AND session_expires > ?", token, s.clock()))
}

// Credentials returns the user and bcrypt hash for an email address.
func (s *Store) Credentials(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+", password FROM users WHERE email = ?", strings.ToLower(email)).
		Scan(&u.ID, &u.Name, &u.Email, &u.IsModerator, &u.CreatedAt, &hash)
	if err != nil {
		return nil, "", notFound(err)
	}
	return &u, hash, nil
}

// CreateUser stores a user with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, moderator bool) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password, is_moderator, created_at)
		VALUES (?, ?, ?, ?, ?)`, name, strings.ToLower(email), passwordHash, moderator, s.clock())
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, int(id))
}

func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)", strings.ToLower(email)).Scan(&exists)
	return exists, err
}

// SetSession replaces the user's session with token, valid until expires.
func (s *Store) SetSession(ctx context.Context, userID int, token string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET session_token = ?, session_expires = ? WHERE id = ?", token, expires.UTC(), userID)
	return err
}

func (s *Store) ClearSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "UPDATE users SET session_token = '', session_expires = NULL WHERE session_token = ?", token)
	return err
}

func (s *Store) GroupByID(ctx context.Context, id int) (*models.UserGroup, error) {
	var g models.UserGroup
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, domain, public FROM user_groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.Domain, &g.Public)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *Store) GroupByDomain(ctx context.Context, domain string) (*models.UserGroup, error) {
	var g models.UserGroup
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, domain, public FROM user_groups WHERE domain = ?", strings.ToLower(domain)).
		Scan(&g.ID, &g.Name, &g.Domain, &g.Public)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (s *Store) CreateGroup(ctx context.Context, name, domain string, public bool) (*models.UserGroup, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO user_groups (name, domain, public) VALUES (?, ?, ?)", name, strings.ToLower(domain), public)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GroupByID(ctx, int(id))
}

// PublicGroups lists the groups anyone may browse, by name.
func (s *Store) PublicGroups(ctx context.Context) ([]models.UserGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, domain, public FROM user_groups WHERE public = TRUE ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.UserGroup{}
	for rows.Next() {
		var g models.UserGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Domain, &g.Public); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
