package services

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"PinguinTube/store"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCachePrefix  = "device-session:"
	maxDeviceNameLength = 100
	qrSecretBytes       = 24
)

// SessionClaims содержимое токена сессии устройства. ID (jti) это идентификатор сессии.
type SessionClaims struct {
	ChildID uint `json:"child_id"`
	jwt.RegisteredClaims
}

type DeviceAuthService struct {
	ChildRepo   repositories.ChildRepository
	SessionRepo repositories.SessionRepository
	Family      *FamilyService
	Cache       store.KVStore
	Logger      *zap.Logger

	Secret     []byte
	SessionTTL time.Duration
	QRTokenTTL time.Duration
	HashCost   int
	Now        func() time.Time
}

func NewDeviceAuthService(childRepo repositories.ChildRepository, sessionRepo repositories.SessionRepository, family *FamilyService, cache store.KVStore, logger *zap.Logger, secret string, sessionTTL, qrTokenTTL time.Duration) *DeviceAuthService {
	return &DeviceAuthService{
		ChildRepo:   childRepo,
		SessionRepo: sessionRepo,
		Family:      family,
		Cache:       cache,
		Logger:      logger,
		Secret:      []byte(secret),
		SessionTTL:  sessionTTL,
		QRTokenTTL:  qrTokenTTL,
		HashCost:    bcrypt.DefaultCost,
		Now:         time.Now,
	}
}

// QR токен имеет вид "<childID>.<secret>"
func parseQRToken(token string) (uint, string, bool) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return uint(id), secret, true
}

// IssueFromQR обменивает QR токен на новую сессию. Несовпадающий токен это NotFound,
// совпадающий, но просроченный это ExpiredCredential.
func (s *DeviceAuthService) IssueFromQR(ctx context.Context, qrToken string, deviceName string) (models.DeviceSession, string, error) {
	deviceName = strings.TrimSpace(deviceName)
	if utf8.RuneCountInString(deviceName) > maxDeviceNameLength {
		return models.DeviceSession{}, "", apperrors.Validation("device_name must be at most %d characters", maxDeviceNameLength)
	}

	childID, secret, ok := parseQRToken(qrToken)
	if !ok {
		return models.DeviceSession{}, "", apperrors.NotFound("qr token does not match any child profile")
	}

	child, err := s.ChildRepo.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.DeviceSession{}, "", apperrors.NotFound("qr token does not match any child profile")
		}
		return models.DeviceSession{}, "", err
	}
	if child.QRTokenHash == "" || bcrypt.CompareHashAndPassword([]byte(child.QRTokenHash), []byte(secret)) != nil {
		return models.DeviceSession{}, "", apperrors.NotFound("qr token does not match any child profile")
	}

	now := s.Now()
	if !child.IsQRTokenValid(now) {
		return models.DeviceSession{}, "", apperrors.ExpiredCredential("qr token has expired, ask a parent to generate a new one")
	}

	session := models.DeviceSession{
		ID:         uuid.NewString(),
		ChildID:    child.ID,
		DeviceName: deviceName,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.SessionTTL),
	}
	if err := s.SessionRepo.Create(ctx, &session); err != nil {
		return models.DeviceSession{}, "", err
	}

	token, err := s.sign(session)
	if err != nil {
		return models.DeviceSession{}, "", err
	}
	s.cache(ctx, session, now, true)

	s.Logger.Info("device session issued",
		zap.String("session_id", session.ID),
		zap.Uint("child_id", child.ID),
		zap.Time("expires_at", session.ExpiresAt))
	return session, token, nil
}

func (s *DeviceAuthService) sign(session models.DeviceSession) (string, error) {
	claims := &SessionClaims{
		ChildID: session.ChildID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   strconv.FormatUint(uint64(session.ChildID), 10),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Validate никогда не продлевает сессию
func (s *DeviceAuthService) Validate(ctx context.Context, token string) (models.DeviceSession, error) {
	if token == "" {
		return models.DeviceSession{}, apperrors.Unauthenticated("missing session token")
	}

	now := s.Now()
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.DeviceSession{}, apperrors.Unauthenticated("session expired")
		}
		return models.DeviceSession{}, apperrors.Unauthenticated("invalid session token")
	}
	if claims.ID == "" {
		return models.DeviceSession{}, apperrors.Unauthenticated("invalid session token")
	}

	session, cached, err := s.lookup(ctx, claims.ID)
	if err != nil {
		return models.DeviceSession{}, err
	}
	if session.ChildID != claims.ChildID {
		return models.DeviceSession{}, apperrors.Unauthenticated("invalid session token")
	}
	if session.RevokedAt != nil {
		return models.DeviceSession{}, apperrors.Unauthenticated("session revoked")
	}
	if !session.IsValid(now) {
		return models.DeviceSession{}, apperrors.Unauthenticated("session expired")
	}
	// не перетирает отозванную копию, записанную Revoke
	if !cached {
		s.cache(ctx, session, now, false)
	}
	return session, nil
}

func (s *DeviceAuthService) lookup(ctx context.Context, id string) (models.DeviceSession, bool, error) {
	if s.Cache != nil {
		raw, err := s.Cache.Get(ctx, sessionCachePrefix+id)
		switch {
		case err == nil:
			var session models.DeviceSession
			if jsonErr := json.Unmarshal([]byte(raw), &session); jsonErr == nil {
				return session, true, nil
			}
			s.Logger.Warn("corrupted session cache entry", zap.String("session_id", id))
			s.evict(ctx, id)
		case !errors.Is(err, store.ErrCacheMiss):
			s.Logger.Warn("session cache unavailable", zap.Error(err))
		}
	}

	session, err := s.SessionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.DeviceSession{}, false, apperrors.Unauthenticated("unknown session")
		}
		return models.DeviceSession{}, false, err
	}
	return session, false, nil
}

// cache кладёт сессию в KV на оставшееся время жизни. overwrite=false не трогает
// существующий ключ. Ошибки кэша не фатальны.
func (s *DeviceAuthService) cache(ctx context.Context, session models.DeviceSession, now time.Time, overwrite bool) {
	if s.Cache == nil {
		return
	}
	key := sessionCachePrefix + session.ID
	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		if overwrite {
			s.evict(ctx, session.ID)
		}
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		s.Logger.Warn("failed to encode session for cache", zap.Error(err))
		return
	}
	if overwrite {
		err = s.Cache.Set(ctx, key, string(raw), ttl)
	} else {
		_, err = s.Cache.SetNX(ctx, key, string(raw), ttl)
	}
	if err != nil {
		s.Logger.Warn("failed to cache session", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *DeviceAuthService) evict(ctx context.Context, sessionID string) {
	if err := s.Cache.Del(ctx, sessionCachePrefix+sessionID); err != nil {
		s.Logger.Warn("failed to evict session from cache", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Revoke логически уничтожает сессию (например, после выполненного LOGOUT).
// В кэше остаётся отозванная копия до истечения сессии, Validate пополняет кэш только через SetNX.
func (s *DeviceAuthService) Revoke(ctx context.Context, sessionID string) error {
	now := s.Now()
	if err := s.SessionRepo.Revoke(ctx, sessionID, now); err != nil {
		return err
	}
	if s.Cache != nil {
		revoked, err := s.SessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			s.Logger.Warn("failed to reload revoked session", zap.String("session_id", sessionID), zap.Error(err))
			s.evict(ctx, sessionID)
		} else {
			if revoked.RevokedAt == nil {
				revoked.RevokedAt = &now
			}
			s.cache(ctx, revoked, now, true)
		}
	}
	s.Logger.Info("device session revoked", zap.String("session_id", sessionID))
	return nil
}

// RotateQRToken выпускает новый QR токен ребёнка. Открытый текст возвращается один раз,
// хранится только bcrypt хэш секрета. Старый токен перестаёт работать.
func (s *DeviceAuthService) RotateQRToken(ctx context.Context, parentUID string, childID uint) (string, time.Time, error) {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return "", time.Time{}, err
	}

	buf := make([]byte, qrSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate qr secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.HashCost)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to hash qr secret: %w", err)
	}

	expiresAt := s.Now().Add(s.QRTokenTTL)
	if err := s.ChildRepo.UpdateQRToken(ctx, childID, string(hash), expiresAt); err != nil {
		return "", time.Time{}, err
	}

	s.Logger.Info("qr token rotated", zap.Uint("child_id", childID), zap.Time("expires_at", expiresAt))
	return fmt.Sprintf("%d.%s", childID, secret), expiresAt, nil
}
