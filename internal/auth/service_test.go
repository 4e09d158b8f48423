package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-scheduling-api/internal/model"
	"clinic-scheduling-api/internal/store"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	byEmail   map[string]*model.User
	byID      map[int64]*model.User
	nextID    int64
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*model.User{}, byID: map[int64]*model.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return store.ErrDuplicateEmail
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.byEmail[u.Email] = &cp
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) UserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func newTestService(users UserStore) *Service {
	return NewService(users, NewTokens("test-secret", 0))
}

func TestRegister_ThenAuthenticateAndVerify(t *testing.T) {
	users := newMemUsers()
	svc := newTestService(users)
	ctx := context.Background()

	err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "p1", Type: "paciente"})
	require.NoError(t, err)

	stored := users.byEmail["ana@x.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "p1", stored.PasswordHash)

	tok, err := svc.Authenticate(ctx, "ana@x.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	u, err := svc.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(newMemUsers())

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"empty name", RegisterInput{Name: "", Email: "a@x.com", Password: "p", Type: "dev"}},
		{"blank email", RegisterInput{Name: "A", Email: "   ", Password: "p", Type: "dev"}},
		{"empty password", RegisterInput{Name: "A", Email: "a@x.com", Password: "", Type: "dev"}},
		{"empty type", RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Type: ""}},
		{"unknown type", RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Type: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(context.Background(), tt.in)
			assert.Equal(t, model.KindValidation, model.KindOf(err))
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newMemUsers()
	svc := newTestService(users)
	ctx := context.Background()
	in := RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "p1", Type: "paciente"}

	require.NoError(t, svc.Register(ctx, in))
	err := svc.Register(ctx, in)

	assert.Equal(t, model.KindConflict, model.KindOf(err))
	assert.Equal(t, "Email já cadastrado no sistema.", model.Message(err))
	assert.Len(t, users.byID, 1)
}

func TestRegister_StoreRaceMapsToConflict(t *testing.T) {
	users := newMemUsers()
	users.createErr = store.ErrDuplicateEmail
	svc := newTestService(users)

	err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Type: "dev"})
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	users := newMemUsers()
	users.createErr = errors.New("disk full")
	svc := newTestService(users)

	err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "p", Type: "dev"})
	require.Error(t, err)
	assert.Equal(t, model.KindInternal, model.KindOf(err))
}

func TestAuthenticate_Failures(t *testing.T) {
	users := newMemUsers()
	svc := newTestService(users)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "p1", Type: "paciente"}))

	_, errWrongPw := svc.Authenticate(ctx, "ana@x.com", "wrong")
	_, errUnknown := svc.Authenticate(ctx, "nobody@x.com", "p1")
	_, errMissing := svc.Authenticate(ctx, "", "")

	for _, err := range []error{errWrongPw, errUnknown, errMissing} {
		assert.Equal(t, model.KindAuth, model.KindOf(err))
	}
	// same message whether the email exists or not
	assert.Equal(t, model.Message(errWrongPw), model.Message(errUnknown))
}

func TestVerify_Failures(t *testing.T) {
	users := newMemUsers()
	svc := newTestService(users)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "")
	assert.Equal(t, model.KindAuth, model.KindOf(err))

	_, err = svc.Verify(ctx, "garbage")
	assert.Equal(t, model.KindAuth, model.KindOf(err))

	// valid signature, user gone
	tok, err := NewTokens("test-secret", 0).Make(99)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, tok)
	assert.Equal(t, model.KindAuth, model.KindOf(err))
}
