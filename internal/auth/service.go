package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clinic-scheduling-api/internal/model"
	"clinic-scheduling-api/internal/store"
)

// UserStore is the credential storage the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Type     string
}

type Service struct {
	users  UserStore
	tokens *Tokens
}

func NewService(users UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Type = strings.TrimSpace(in.Type)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Type == "" {
		return model.NewValidationError("Por favor preencha todos os campos.")
	}
	if !model.ValidUserType(in.Type) {
		return model.NewValidationError("Tipo de usuário inválido: %q.", in.Type)
	}

	if _, err := s.users.UserByEmail(ctx, in.Email); err == nil {
		return model.NewConflictError("Email já cadastrado no sistema.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Type:         in.Type,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			// lost a race with a concurrent registration
			return model.NewConflictError("Email já cadastrado no sistema.")
		case errors.Is(err, store.ErrInvalidType):
			return model.NewValidationError("Tipo de usuário inválido: %q.", in.Type)
		}
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "user registered", slog.Int64("user_id", u.ID), slog.String("type", u.Type))
	return nil
}

// Authenticate checks credentials and returns a signed access token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", model.NewAuthError("Credenciais ausentes.")
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", model.NewAuthError("Credenciais inválidas.")
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", model.NewAuthError("Credenciais inválidas.")
	}
	tok, err := s.tokens.Make(u.ID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify validates a token and resolves the user it was issued to.
func (s *Service) Verify(ctx context.Context, raw string) (*model.User, error) {
	if raw == "" {
		return nil, model.NewAuthError("Token ausente.")
	}
	c, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, model.NewAuthError("Token inválido ou expirado.")
	}
	u, err := s.users.UserByID(ctx, c.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.NewAuthError("Token inválido ou expirado.")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token user: %w", err)
	}
	return u, nil
}
