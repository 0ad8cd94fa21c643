package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
)

// Common auth errors.
var (
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrConnectionActive  = errors.New("another connection is already active for this candidate")
)

// TokenType distinguishes candidate tokens from service tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
)

// Claims extends JWT standard claims with conductor-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	CandidateID int       `json:"candidate_id"`
	SessionID   uuid.UUID `json:"session_id"`
}

// AuthService handles access-code verification, JWT issuance and the
// single-connection guarantee.
type AuthService struct {
	cfg *config.Config
	rdb *redis.Client
	api platform.API
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, api platform.API) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, api: api}
}

// HashAccessCode hashes an access code with the configured bcrypt cost.
// Default cost is 6 for high-concurrency performance. Adjustable via BCRYPT_COST env.
func (s *AuthService) HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	return string(hash), err
}

// accessHashTTL bounds how long a fetched access hash is served from Redis
// before the platform is asked again.
const accessHashTTL = 5 * time.Minute

// VerifyAccessCode compares a plaintext access code against the session's
// bcrypt hash. The hash is fetched from the platform backend and cached in
// Redis so repeated join attempts do not hammer the platform.
func (s *AuthService) VerifyAccessCode(ctx context.Context, sessionID uuid.UUID, code string) error {
	hashKey := config.CacheKey.SessionAccessHashKey(sessionID.String())

	hash, err := s.rdb.Get(ctx, hashKey).Result()
	if err != nil {
		hash, err = s.api.GetSessionAccessHash(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("fetch access hash: %w", err)
		}
		_ = s.rdb.Set(ctx, hashKey, hash, accessHashTTL).Err()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrInvalidAccessCode
	}
	return nil
}

// GenerateCandidateToken creates a JWT for a candidate and registers the
// connection in Redis. A candidate may only hold one live connection; joining
// again replaces the previous token's registration so a crashed tab can rejoin.
func (s *AuthService) GenerateCandidateToken(ctx context.Context, candidateID int, sessionID uuid.UUID) (string, error) {
	connKey := config.CacheKey.CandidateConnectionKey(candidateID)

	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(candidateID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeCandidate,
		CandidateID: candidateID,
		SessionID:   sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// Store connection in Redis with same expiry as JWT.
	if err := s.rdb.Set(ctx, connKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store connection: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateConnection checks that the token's JTI matches the registered
// connection in Redis. A mismatch means the candidate joined again elsewhere.
func (s *AuthService) ValidateConnection(ctx context.Context, candidateID int, jti string) error {
	connKey := config.CacheKey.CandidateConnectionKey(candidateID)
	stored, err := s.rdb.Get(ctx, connKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active connection")
		}
		return fmt.Errorf("check connection: %w", err)
	}
	if stored != jti {
		return errors.New("connection superseded")
	}
	return nil
}

// ResetConnection removes a candidate's connection registration.
func (s *AuthService) ResetConnection(ctx context.Context, candidateID int) error {
	connKey := config.CacheKey.CandidateConnectionKey(candidateID)
	return s.rdb.Del(ctx, connKey).Err()
}
