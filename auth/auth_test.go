package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

type fakeStore struct {
	users   map[string]*models.User
	devices map[uuid.UUID]*models.Device
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*models.User),
		devices: make(map[uuid.UUID]*models.Device),
	}
}

func (f *fakeStore) UserExists(_ context.Context, email string) (bool, error) {
	_, ok := f.users[email]
	return ok, nil
}

func (f *fakeStore) InsertUser(_ context.Context, u *models.User) error {
	f.users[u.Email] = u
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, apperr.NotFoundf("user %s", email)
	}
	return u, nil
}

func (f *fakeStore) GetDeviceByID(_ context.Context, id uuid.UUID) (*models.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, apperr.NotFoundf("device %s", id)
	}
	return d, nil
}

func (f *fakeStore) UpdateDeviceStatus(_ context.Context, id uuid.UUID, status models.DeviceStatus) error {
	f.devices[id].Status = status
	return nil
}

func newModule(store Store) *AuthModule {
	return NewAuthModule(store, "test-secret", 24*time.Hour, 15*time.Minute)
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeStore()
	a := newModule(store)
	ctx := context.Background()

	user, token, err := a.RegisterUser(ctx, "grower@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	gotID, err := a.ValidateUserToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotID)

	loginToken, err := a.LoginUser(ctx, "grower@example.com", "hunter2hunter2")
	require.NoError(t, err)
	gotID, err = a.ValidateUserToken(loginToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newModule(newFakeStore())
	ctx := context.Background()

	_, _, err := a.RegisterUser(ctx, "grower@example.com", "pw1234567")
	require.NoError(t, err)
	_, _, err = a.RegisterUser(ctx, "grower@example.com", "other9876")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestLoginWrongPassword(t *testing.T) {
	a := newModule(newFakeStore())
	ctx := context.Background()

	_, _, err := a.RegisterUser(ctx, "grower@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = a.LoginUser(ctx, "grower@example.com", "wrong-horse")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))

	_, err = a.LoginUser(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))
}

func TestDeviceAuthActivatesDevice(t *testing.T) {
	store := newFakeStore()
	a := newModule(store)
	ctx := context.Background()

	secret, hash, err := GenerateDeviceSecret()
	require.NoError(t, err)
	device := &models.Device{ID: uuid.New(), SecretHash: hash, Status: models.DeviceClaimed}
	store.devices[device.ID] = device

	token, err := a.AuthenticateDevice(ctx, device.ID, secret)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceActive, device.Status)

	gotID, err := a.ValidateDeviceToken(token)
	require.NoError(t, err)
	assert.Equal(t, device.ID, gotID)

	_, err = a.AuthenticateDevice(ctx, device.ID, "not-the-secret")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))
}

func TestTokenAudiencesAreSeparate(t *testing.T) {
	store := newFakeStore()
	a := newModule(store)
	ctx := context.Background()

	_, userToken, err := a.RegisterUser(ctx, "grower@example.com", "pw1234567")
	require.NoError(t, err)

	// A user token carries no device claim and vice versa
	_, err = a.ValidateDeviceToken(userToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))
}

func TestExpiredTokenRejected(t *testing.T) {
	store := newFakeStore()
	a := NewAuthModule(store, "test-secret", -time.Minute, -time.Minute)

	_, token, err := a.RegisterUser(context.Background(), "grower@example.com", "pw1234567")
	require.NoError(t, err)

	_, err = a.ValidateUserToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthentication))
}
