package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"mensstore-be/internal/logger"
	"mensstore-be/internal/store"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCode        = errors.New("verification code does not match")
	ErrUnknownAccount     = errors.New("account not found")
)

// Provider is the auth collaborator: it issues opaque user identities and
// session tokens, and owns every credential operation. Repositories never
// see passwords.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (userID, token string, err error)
	SignIn(ctx context.Context, email, password string) (userID, token string, err error)
	// SignInWithIDToken signs in via a third-party identity token
	// (e.g. "google", "facebook"), creating the account on first use.
	SignInWithIDToken(ctx context.Context, providerName, idToken string) (userID, token string, err error)
	SignOut(ctx context.Context, token string) error
	// Refresh exchanges a valid session token for a fresh one.
	Refresh(ctx context.Context, token string) (string, error)
	ResetPassword(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateEmail(ctx context.Context, userID, newEmail, password string) error
	VerifyEmail(ctx context.Context, userID, code string) error
	DeleteCredentials(ctx context.Context, userID string) error
}

// credential is the stored login record. Only the bcrypt hash is persisted.
type credential struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	PasswordHash     string `json:"passwordHash,omitempty"`
	SocialKey        string `json:"socialKey,omitempty"`
	Verified         bool   `json:"verified"`
	VerificationCode string `json:"verificationCode,omitempty"`
	ResetCode        string `json:"resetCode,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

type localProvider struct {
	creds  store.Collection
	issuer tokenIssuer
}

// NewLocalProvider stores credentials in the given store and issues HS256
// session tokens signed with secret.
func NewLocalProvider(s store.Store, secret string, tokenTTL time.Duration) Provider {
	return &localProvider{
		creds:  s.Collection("credentials"),
		issuer: tokenIssuer{secret: []byte(secret), ttl: tokenTTL},
	}
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func randomCode() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (p *localProvider) findByEmail(ctx context.Context, email string) (*credential, error) {
	docs, err := p.creds.Query().Where("email", store.OpEqual, email).Limit(1).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var c credential
	if err := docs[0].Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *localProvider) get(ctx context.Context, userID string) (*credential, error) {
	doc, err := p.creds.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrUnknownAccount
	}

	var c credential
	if err := doc.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *localProvider) SignUp(ctx context.Context, email, password string) (string, string, error) {
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}

	existing, err := p.findByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	if existing != nil {
		return "", "", ErrEmailExists
	}

	hash, err := hashPassword(password)
	if err != nil {
		return "", "", err
	}

	c := credential{
		ID:               uuid.New().String(),
		Email:            email,
		PasswordHash:     hash,
		VerificationCode: randomCode(),
		CreatedAt:        time.Now().UnixMilli(),
	}
	if err := p.creds.Set(ctx, c.ID, c); err != nil {
		return "", "", err
	}

	token, err := p.issuer.generate(c.ID, c.Email)
	if err != nil {
		return "", "", err
	}
	return c.ID, token, nil
}

func (p *localProvider) SignIn(ctx context.Context, email, password string) (string, string, error) {
	c, err := p.findByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	if c == nil || !checkPasswordHash(password, c.PasswordHash) {
		return "", "", ErrInvalidCredentials
	}

	token, err := p.issuer.generate(c.ID, c.Email)
	if err != nil {
		return "", "", err
	}
	return c.ID, token, nil
}

func (p *localProvider) SignInWithIDToken(ctx context.Context, providerName, idToken string) (string, string, error) {
	if providerName == "" || idToken == "" {
		return "", "", errors.New("provider and token are required")
	}

	sum := sha256.Sum256([]byte(idToken))
	key := providerName + ":" + hex.EncodeToString(sum[:])

	docs, err := p.creds.Query().Where("socialKey", store.OpEqual, key).Limit(1).GetAll(ctx)
	if err != nil {
		return "", "", err
	}

	var c credential
	if len(docs) > 0 {
		if err := docs[0].Decode(&c); err != nil {
			return "", "", err
		}
	} else {
		// First sign-in with this identity creates the account.
		c = credential{
			ID:        uuid.New().String(),
			SocialKey: key,
			Verified:  true,
			CreatedAt: time.Now().UnixMilli(),
		}
		if err := p.creds.Set(ctx, c.ID, c); err != nil {
			return "", "", err
		}
	}

	token, err := p.issuer.generate(c.ID, c.Email)
	if err != nil {
		return "", "", err
	}
	return c.ID, token, nil
}

// SignOut is a no-op server-side: session tokens are stateless and expire on
// their own. The session layer clears its local state.
func (p *localProvider) SignOut(ctx context.Context, token string) error {
	return nil
}

func (p *localProvider) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := p.issuer.parse(token)
	if err != nil {
		return "", fmt.Errorf("token refresh rejected: %w", err)
	}

	// The account may have been deleted since the token was issued.
	if _, err := p.get(ctx, claims.UserID); err != nil {
		return "", fmt.Errorf("token refresh rejected: %w", err)
	}

	return p.issuer.generate(claims.UserID, claims.Email)
}

func (p *localProvider) ResetPassword(ctx context.Context, email string) error {
	c, err := p.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if c == nil {
		// Deliberately silent: reset never confirms account existence.
		return nil
	}

	c.ResetCode = randomCode()
	if err := p.creds.Set(ctx, c.ID, c); err != nil {
		return err
	}

	// Delivery of the code is the notification channel's job.
	logger.FromCtx(ctx).Info("password reset requested", zap.String("user_id", c.ID))
	return nil
}

func (p *localProvider) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	c, err := p.get(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPasswordHash(currentPassword, c.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return p.creds.Set(ctx, c.ID, c)
}

func (p *localProvider) UpdateEmail(ctx context.Context, userID, newEmail, password string) error {
	c, err := p.get(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPasswordHash(password, c.PasswordHash) {
		return ErrInvalidCredentials
	}

	inUse, err := p.findByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if inUse != nil && inUse.ID != userID {
		return ErrEmailExists
	}

	c.Email = newEmail
	c.Verified = false
	c.VerificationCode = randomCode()
	return p.creds.Set(ctx, c.ID, c)
}

func (p *localProvider) VerifyEmail(ctx context.Context, userID, code string) error {
	c, err := p.get(ctx, userID)
	if err != nil {
		return err
	}
	if c.VerificationCode == "" || c.VerificationCode != code {
		return ErrInvalidCode
	}

	c.Verified = true
	c.VerificationCode = ""
	return p.creds.Set(ctx, c.ID, c)
}

func (p *localProvider) DeleteCredentials(ctx context.Context, userID string) error {
	return p.creds.Delete(ctx, userID)
}
