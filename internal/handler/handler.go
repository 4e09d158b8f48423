package handler

import (
	"context"

	"clinic-scheduling-api/internal/auth"
	"clinic-scheduling-api/internal/model"
	"clinic-scheduling-api/internal/scheduling"
)

// AuthService is the part of auth.Service the HTTP layer uses.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) error
	Authenticate(ctx context.Context, email, password string) (string, error)
	Verify(ctx context.Context, raw string) (*model.User, error)
}

type Scheduler interface {
	List(ctx context.Context) ([]model.Appointment, error)
	Get(ctx context.Context, id int64) (*model.Appointment, error)
	FindByPatient(ctx context.Context, name string) ([]model.Appointment, error)
	FindByDoctor(ctx context.Context, name string) ([]model.Appointment, error)
	Create(ctx context.Context, in scheduling.CreateInput) (int64, error)
	Update(ctx context.Context, id int64, in scheduling.UpdateInput) (*model.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	auth  AuthService
	sched Scheduler
}

func New(a AuthService, s Scheduler) *Handler {
	return &Handler{auth: a, sched: s}
}
