package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"mensstore-be/internal/auth"
	"mensstore-be/internal/logger"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Service wires the auth provider, the account repository and the session
// into the account-facing business logic.
type Service interface {
	SignUp(ctx context.Context, email, password, firstName, lastName string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignInWithGoogle(ctx context.Context, idToken string) (string, error)
	SignInWithFacebook(ctx context.Context, accessToken string) (string, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error

	CurrentUser(ctx context.Context) (<-chan UserSnapshot, error)
	UpdateProfile(ctx context.Context, u User) error
	UpdateEmail(ctx context.Context, userID, newEmail, password string) error
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	VerifyEmail(ctx context.Context, userID, code string) error
	DeleteAccount(ctx context.Context, userID string) error

	GetCart(ctx context.Context, userID string) (<-chan CartSnapshot, error)
	AddToCart(ctx context.Context, userID string, item CartItem) error
	UpdateCartItem(ctx context.Context, userID string, item CartItem) error
	RemoveFromCart(ctx context.Context, userID string, key CartKey) error
	ClearCart(ctx context.Context, userID string) error

	GetWishlist(ctx context.Context, userID string) (<-chan WishlistSnapshot, error)
	AddToWishlist(ctx context.Context, userID, productID string) error
	RemoveFromWishlist(ctx context.Context, userID, productID string) error

	GetAddresses(ctx context.Context, userID string) (<-chan AddressSnapshot, error)
	AddAddress(ctx context.Context, userID string, a Address) (string, error)
	UpdateAddress(ctx context.Context, userID string, a Address) error
	DeleteAddress(ctx context.Context, userID, addressID string) error
	SetDefaultAddress(ctx context.Context, userID, addressID string) error

	UpdateNotificationPreferences(ctx context.Context, userID string, prefs map[string]bool) error
	GetNotificationPreferences(ctx context.Context, userID string) (<-chan PreferencesSnapshot, error)
	GetUserActivity(ctx context.Context, userID string, limit int) ([]Activity, error)

	Session() *Session
}

type service struct {
	repo     Repository
	provider auth.Provider
	session  *Session
}

func NewService(repo Repository, provider auth.Provider) Service {
	return &service{
		repo:     repo,
		provider: provider,
		session:  NewSession(provider),
	}
}

func (s *service) Session() *Session { return s.session }

func (s *service) SignUp(ctx context.Context, email, password, firstName, lastName string) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "User"),
		zap.String("method", "SignUp"),
	)

	if strings.TrimSpace(email) == "" || password == "" {
		return "", errors.New("email and password are required")
	}

	userID, token, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		log.Warn("sign-up rejected", zap.Error(err))
		return "", err
	}

	if err := s.repo.CreateUser(ctx, User{
		ID:        userID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}); err != nil {
		log.Error("failed to create user profile", zap.Error(err))
		return "", err
	}

	s.session.SetCredentials(userID, token)
	_ = s.repo.RecordActivity(ctx, userID, ActivityLogin, nil)

	log.Info("user signed up", zap.String("user_id", userID))
	return userID, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (string, error) {
	userID, token, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", err
	}

	s.session.SetCredentials(userID, token)
	_ = s.repo.UpdateLastLogin(ctx, userID)
	_ = s.repo.RecordActivity(ctx, userID, ActivityLogin, nil)
	return userID, nil
}

func (s *service) signInSocial(ctx context.Context, providerName, idToken string) (string, error) {
	userID, token, err := s.provider.SignInWithIDToken(ctx, providerName, idToken)
	if err != nil {
		return "", err
	}

	// First social sign-in has no profile yet.
	if err := s.repo.EnsureUser(ctx, User{ID: userID}); err != nil {
		return "", err
	}

	s.session.SetCredentials(userID, token)
	_ = s.repo.UpdateLastLogin(ctx, userID)
	_ = s.repo.RecordActivity(ctx, userID, ActivityLogin, map[string]any{"provider": providerName})
	return userID, nil
}

func (s *service) SignInWithGoogle(ctx context.Context, idToken string) (string, error) {
	return s.signInSocial(ctx, "google", idToken)
}

func (s *service) SignInWithFacebook(ctx context.Context, accessToken string) (string, error) {
	return s.signInSocial(ctx, "facebook", accessToken)
}

func (s *service) SignOut(ctx context.Context) error {
	userID, err := s.session.UserID()
	if err != nil {
		return err
	}

	token, _ := s.session.Token()
	if err := s.provider.SignOut(ctx, token); err != nil {
		return err
	}

	s.session.Clear()
	_ = s.repo.RecordActivity(ctx, userID, ActivityLogout, nil)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, email string) error {
	return s.provider.ResetPassword(ctx, email)
}

func (s *service) CurrentUser(ctx context.Context) (<-chan UserSnapshot, error) {
	userID, err := s.session.UserID()
	if err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return err
	}
	_ = s.repo.RecordActivity(ctx, u.ID, ActivityProfileUpdate, nil)
	return nil
}

func (s *service) UpdateEmail(ctx context.Context, userID, newEmail, password string) error {
	if err := s.provider.UpdateEmail(ctx, userID, newEmail, password); err != nil {
		return err
	}
	return s.repo.SetEmail(ctx, userID, newEmail)
}

func (s *service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := s.provider.UpdatePassword(ctx, userID, currentPassword, newPassword); err != nil {
		return err
	}
	_ = s.repo.RecordActivity(ctx, userID, ActivityPasswordChange, nil)
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, userID, code string) error {
	return s.provider.VerifyEmail(ctx, userID, code)
}

func (s *service) DeleteAccount(ctx context.Context, userID string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "User"),
		zap.String("method", "DeleteAccount"),
		zap.String("user_id", userID),
	)

	if err := s.provider.DeleteCredentials(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteAccount(ctx, userID); err != nil {
		return err
	}

	if current, err := s.session.UserID(); err == nil && current == userID {
		s.session.Clear()
	}

	log.Info("account deleted")
	return nil
}

/* ---------- CART ---------- */

func (s *service) GetCart(ctx context.Context, userID string) (<-chan CartSnapshot, error) {
	return s.repo.GetCart(ctx, userID)
}

func validateCartItem(item CartItem) error {
	if item.ProductID == "" {
		return errors.New("product id is required")
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (s *service) AddToCart(ctx context.Context, userID string, item CartItem) error {
	if err := validateCartItem(item); err != nil {
		return err
	}
	if err := s.repo.AddToCart(ctx, userID, item); err != nil {
		return err
	}
	_ = s.repo.RecordActivity(ctx, userID, ActivityCartUpdate, map[string]any{"product_id": item.ProductID})
	return nil
}

func (s *service) UpdateCartItem(ctx context.Context, userID string, item CartItem) error {
	if item.ProductID == "" {
		return errors.New("product id is required")
	}
	if item.Quantity <= 0 {
		// Zero or negative quantity removes the line.
		return s.repo.RemoveFromCart(ctx, userID, item.Key())
	}
	return s.repo.UpdateCartItem(ctx, userID, item)
}

func (s *service) RemoveFromCart(ctx context.Context, userID string, key CartKey) error {
	if key.ProductID == "" {
		return errors.New("product id is required")
	}
	return s.repo.RemoveFromCart(ctx, userID, key)
}

func (s *service) ClearCart(ctx context.Context, userID string) error {
	return s.repo.ClearCart(ctx, userID)
}

/* ---------- WISHLIST ---------- */

func (s *service) GetWishlist(ctx context.Context, userID string) (<-chan WishlistSnapshot, error) {
	return s.repo.GetWishlist(ctx, userID)
}

func (s *service) AddToWishlist(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return errors.New("product id is required")
	}
	if err := s.repo.AddToWishlist(ctx, userID, productID); err != nil {
		return err
	}
	_ = s.repo.RecordActivity(ctx, userID, ActivityWishlistUpdate, map[string]any{"product_id": productID})
	return nil
}

func (s *service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return s.repo.RemoveFromWishlist(ctx, userID, productID)
}

/* ---------- ADDRESSES ---------- */

func (s *service) GetAddresses(ctx context.Context, userID string) (<-chan AddressSnapshot, error) {
	return s.repo.GetAddresses(ctx, userID)
}

func validateAddress(a Address) error {
	if strings.TrimSpace(a.StreetAddress) == "" {
		return errors.New("street address is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return errors.New("city is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		return errors.New("country is required")
	}
	return nil
}

func (s *service) AddAddress(ctx context.Context, userID string, a Address) (string, error) {
	if err := validateAddress(a); err != nil {
		return "", err
	}
	id, err := s.repo.AddAddress(ctx, userID, a)
	if err != nil {
		return "", err
	}
	_ = s.repo.RecordActivity(ctx, userID, ActivityAddressUpdate, nil)
	return id, nil
}

func (s *service) UpdateAddress(ctx context.Context, userID string, a Address) error {
	if a.ID == "" {
		return errors.New("address id is required")
	}
	if err := validateAddress(a); err != nil {
		return err
	}
	if err := s.repo.UpdateAddress(ctx, userID, a); err != nil {
		return err
	}
	_ = s.repo.RecordActivity(ctx, userID, ActivityAddressUpdate, nil)
	return nil
}

func (s *service) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return s.repo.DeleteAddress(ctx, userID, addressID)
}

func (s *service) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	return s.repo.SetDefaultAddress(ctx, userID, addressID)
}

/* ---------- PREFERENCES & ACTIVITY ---------- */

func (s *service) UpdateNotificationPreferences(ctx context.Context, userID string, prefs map[string]bool) error {
	return s.repo.UpdateNotificationPreferences(ctx, userID, prefs)
}

func (s *service) GetNotificationPreferences(ctx context.Context, userID string) (<-chan PreferencesSnapshot, error) {
	return s.repo.GetNotificationPreferences(ctx, userID)
}

func (s *service) GetUserActivity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.GetUserActivity(ctx, userID, limit)
}
