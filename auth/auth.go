package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"plantcare/internal/apperr"
	"plantcare/internal/models"
)

// Store is the persistence the auth module needs
type Store interface {
	UserExists(ctx context.Context, email string) (bool, error)
	InsertUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetDeviceByID(ctx context.Context, id uuid.UUID) (*models.Device, error)
	UpdateDeviceStatus(ctx context.Context, id uuid.UUID, status models.DeviceStatus) error
}

type AuthModule struct {
	store     Store
	JWTSecret string

	userTokenTTL   time.Duration
	deviceTokenTTL time.Duration
}

func NewAuthModule(store Store, jwtSecret string, userTokenTTL, deviceTokenTTL time.Duration) *AuthModule {
	return &AuthModule{
		store:          store,
		JWTSecret:      jwtSecret,
		userTokenTTL:   userTokenTTL,
		deviceTokenTTL: deviceTokenTTL,
	}
}

// GenerateDeviceSecret produces the plaintext secret handed to a freshly
// provisioned device and the bcrypt hash stored for it. The plaintext is
// shown once and never stored.
func GenerateDeviceSecret() (secret, hash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	secret = base64.URLEncoding.EncodeToString(randomBytes)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(hashed), nil
}

// RegisterUser creates a user account and returns a session token
func (a *AuthModule) RegisterUser(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.Validationf("email and password are required")
	}

	exists, err := a.store.UserExists(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", apperr.Validationf("email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.InsertUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := a.generateJWT("user_id", user.ID, a.userTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginUser verifies credentials and returns a session token
func (a *AuthModule) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Authenticationf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperr.Authenticationf("invalid credentials")
	}
	return a.generateJWT("user_id", user.ID, a.userTokenTTL)
}

// AuthenticateDevice exchanges a device's provisioning secret for a
// short-lived token bound to that one device identity
func (a *AuthModule) AuthenticateDevice(ctx context.Context, deviceID uuid.UUID, secret string) (string, error) {
	device, err := a.store.GetDeviceByID(ctx, deviceID)
	if err != nil {
		return "", apperr.Authenticationf("invalid device credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(device.SecretHash), []byte(secret)); err != nil {
		return "", apperr.Authenticationf("invalid device credentials")
	}

	if device.Status != models.DeviceActive {
		// First successful authentication completes the lifecycle
		if err := a.store.UpdateDeviceStatus(ctx, device.ID, models.DeviceActive); err != nil {
			return "", err
		}
	}
	return a.generateJWT("device_id", device.ID, a.deviceTokenTTL)
}

// ValidateUserToken returns the user ID a token was issued for
func (a *AuthModule) ValidateUserToken(token string) (uuid.UUID, error) {
	return a.validateJWT(token, "user_id")
}

// ValidateDeviceToken returns the device ID a token was issued for
func (a *AuthModule) ValidateDeviceToken(token string) (uuid.UUID, error) {
	return a.validateJWT(token, "device_id")
}

func (a *AuthModule) generateJWT(subjectClaim string, id uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		subjectClaim: id.String(),
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

func (a *AuthModule) validateJWT(token, subjectClaim string) (uuid.UUID, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, apperr.Authenticationf("invalid token: %v", err)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return uuid.Nil, apperr.Authenticationf("invalid token")
	}
	raw, ok := claims[subjectClaim].(string)
	if !ok {
		return uuid.Nil, apperr.Authenticationf("token missing %s claim", subjectClaim)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Authenticationf("malformed %s claim", subjectClaim)
	}
	return id, nil
}
