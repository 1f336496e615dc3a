package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"socialhub/config"
	"socialhub/internal/domain/user"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService verifies access tokens issued by the user-management service
// and resolves them to users.
type AuthService struct {
	users     UserFinder
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(users UserFinder, cfg *config.Config) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, socialhub_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, socialhub_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, socialhub_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, socialhub_errors.ErrUnauthorized
	}

	return *claims, nil
}

// Authenticate verifies the token and loads its subject. Every failure,
// including an unknown user, is ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (user.User, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return user.User{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return user.User{}, socialhub_errors.ErrUnauthorized
	}
	u, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, socialhub_errors.ErrNotFound) {
		return user.User{}, socialhub_errors.ErrUnauthorized
	}
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// IssueAccessToken signs a token for userID. Tokens normally come from the
// user-management service; this serves dev seeding and tests.
func (s *AuthService) IssueAccessToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	now := time.Now()
	claims := AccessClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." value.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, socialhub_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, socialhub_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, socialhub_errors.ErrForbidden):
		return 403
	case errors.Is(err, socialhub_errors.ErrNotFound):
		return 404
	case errors.Is(err, socialhub_errors.ErrAlreadyExists), errors.Is(err, socialhub_errors.ErrConflict):
		return 409
	case errors.Is(err, socialhub_errors.ErrRateLimited):
		return 429
	default:
		return 500
	}
}

// ErrorCode is the machine-readable code sent to clients alongside a
// failure.
func ErrorCode(err error) string {
	switch HTTPStatus(err) {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 409:
		return "CONFLICT"
	case 429:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

// PublicMessage is the reason shown to clients; internal failures are not
// exposed.
func PublicMessage(err error) string {
	if HTTPStatus(err) == 500 {
		return "internal error"
	}
	return err.Error()
}

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
