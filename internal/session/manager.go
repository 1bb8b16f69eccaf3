package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

const tokenBytes = 32

// UserLoader materializes the user bound to a session.
type UserLoader interface {
	LoadByID(ctx context.Context, id uint) (*models.User, error)
}

// Manager issues and resolves browser session tokens.
type Manager struct {
	db    *gorm.DB
	users UserLoader
	ttl   time.Duration
	now   func() time.Time
	log   logging.Logger
}

// NewManager returns a Manager whose sessions live for ttl.
func NewManager(db *gorm.DB, users UserLoader, ttl time.Duration) *Manager {
	return &Manager{
		db:    db,
		users: users,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logging.GetLogger("session.manager"),
	}
}

// TTL is the lifetime of newly established sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Establish issues a new opaque token bound to user.
func (m *Manager) Establish(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", fmt.Errorf("establish session: %w", models.ErrNotFound)
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := m.now()
	sess := models.Session{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", fmt.Errorf("insert session: %w", errors.Join(models.ErrStoreUnavailable, err))
	}

	m.log.DebugContext(ctx, "session established", "user_id", user.ID)

	return token, nil
}

// Resolve returns the user bound to token. Missing, expired and unknown
// tokens, and store failures, all resolve to an anonymous caller.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.User, bool) {
	if token == "" {
		return nil, false
	}

	var sess models.Session
	err := m.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&sess).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			m.log.WarnContext(ctx, "resolve session failed", "error", err)
		}

		return nil, false
	}

	if !sess.ExpiresAt.After(m.now()) {
		return nil, false
	}

	user, err := m.users.LoadByID(ctx, sess.UserID)
	if err != nil {
		m.log.WarnContext(ctx, "load session user failed", "user_id", sess.UserID, "error", err)
		return nil, false
	}

	return user, true
}

// Terminate invalidates token. Unknown tokens are not an error.
func (m *Manager) Terminate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := m.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", errors.Join(models.ErrStoreUnavailable, err))
	}

	return nil
}

// PurgeExpired deletes every expired session and reports how many went.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	res := m.db.WithContext(ctx).Where("expires_at <= ?", m.now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", errors.Join(models.ErrStoreUnavailable, res.Error))
	}

	return res.RowsAffected, nil
}

// Janitor purges expired sessions every interval until ctx is done.
func (m *Manager) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				m.log.ErrorContext(ctx, "purge expired sessions failed", "error", err)
				continue
			}
			if n > 0 {
				m.log.InfoContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
