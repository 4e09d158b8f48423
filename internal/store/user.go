package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"clinic-scheduling-api/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, type) VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.Type,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return pgErr(err, ErrDuplicateEmail)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userWhere(ctx, `email = $1`, email)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userWhere(ctx, `id = $1`, id)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, type, created_at
		 FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Type, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
