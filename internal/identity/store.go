package identity

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

// Provider names accepted by FindOrCreateByProvider.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderTwitter  = "twitter"
)

var providerColumns = map[string]string{
	ProviderGoogle:   "google_id",
	ProviderFacebook: "facebook_id",
	ProviderTwitter:  "twitter_id",
}

// dummyHash is compared against when the username does not exist, so a miss
// costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword(passwordKey("crown-dummy-password"), bcrypt.DefaultCost)

// Store persists users and resolves logins to a single identity.
type Store struct {
	db   *gorm.DB
	log  logging.Logger
	cost int
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:   db,
		log:  logging.GetLogger("identity.store"),
		cost: bcrypt.DefaultCost,
	}
}

// WithCost returns a copy of the store hashing with the given bcrypt cost.
func (s *Store) WithCost(cost int) *Store {
	c := *s
	c.cost = cost

	return &c
}

// RegisterLocal creates a credential-bearing user.
// It returns models.ErrDuplicateIdentity when the username is taken.
func (s *Store) RegisterLocal(ctx context.Context, username, email, password string) (_ *models.User, err error) {
	log := s.log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, storeErr("count users", err)
	}
	if count > 0 {
		return nil, models.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword(passwordKey(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     &username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Join(models.ErrDuplicateIdentity, err)
		}

		return nil, storeErr("insert user", err)
	}

	return user, nil
}

// AuthenticateLocal verifies a username/password pair.
// Every mismatch, including an unknown username, is models.ErrInvalidCredentials.
func (s *Store) AuthenticateLocal(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, passwordKey(password))
		return nil, models.ErrInvalidCredentials
	case err != nil:
		return nil, storeErr("query user", err)
	}

	if len(user.PasswordHash) == 0 {
		// Federated-only account.
		_ = bcrypt.CompareHashAndPassword(dummyHash, passwordKey(password))
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, passwordKey(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return &user, nil
}

// FindOrCreateByProvider returns the user linked to providerID, creating it
// on first sight. The unique index on the provider column settles concurrent
// creates: the losing insert is ignored and both callers read the same row.
func (s *Store) FindOrCreateByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	column, ok := providerColumns[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownProvider, provider)
	}
	if providerID == "" {
		return nil, fmt.Errorf("%w: empty %s subject", models.ErrAuthFailure, provider)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where(column+" = ?", providerID).First(&user).Error
	if err == nil {
		return &user, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("query provider user", err)
	}

	candidate := models.User{}
	id := providerID
	switch provider {
	case ProviderGoogle:
		candidate.GoogleID = &id
	case ProviderFacebook:
		candidate.FacebookID = &id
	case ProviderTwitter:
		candidate.TwitterID = &id
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, storeErr("insert provider user", err)
	}

	user = models.User{}
	if err := db.Where(column+" = ?", providerID).First(&user).Error; err != nil {
		return nil, storeErr("reload provider user", err)
	}

	s.log.DebugContext(ctx, "provider user resolved", "provider", provider, "user_id", user.ID)

	return &user, nil
}

// LoadByID returns the user with the given id.
func (s *Store) LoadByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Join(models.ErrNotFound, err)
		}

		return nil, storeErr("query user", err)
	}

	return &user, nil
}

// passwordKey reduces a password of any length to the 44 bytes bcrypt hashes.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))

	key := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(key, sum[:])

	return key
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(models.ErrStoreUnavailable, err))
}
