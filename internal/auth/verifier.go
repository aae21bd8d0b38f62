package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid or expired credential")
	ErrInactiveAccount   = errors.New("account is not active")
)

// Identity is the user bound to a request or connection
type Identity struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// Verifier resolves a bearer credential to an active user
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Claims carried by access tokens issued by the identity service
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens and checks the account in the user directory
type JWTVerifier struct {
	secret []byte
	issuer string
	users  repo.UserRepository
	logger *zap.Logger
}

func NewJWTVerifier(secret, issuer string, users repo.UserRepository, logger *zap.Logger) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		logger: logger,
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	claims, err := v.parse(credential)
	if err != nil {
		v.logger.Debug("token rejected", zap.Error(err))
		return nil, ErrInvalidCredential
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidCredential
	}

	user, err := v.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	return identityFromUser(user, claims.Role), nil
}

func (v *JWTVerifier) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func identityFromUser(user *model.User, tokenRole string) *Identity {
	role := user.Role
	if role == "" {
		role = tokenRole
	}
	return &Identity{
		UserID:     user.UserID,
		Name:       user.Name,
		Role:       role,
		Department: user.Department,
	}
}
