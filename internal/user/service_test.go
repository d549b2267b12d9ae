package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (string, string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (string, string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockProvider) SignInWithIDToken(ctx context.Context, providerName, idToken string) (string, string, error) {
	args := m.Called(ctx, providerName, idToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockProvider) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockProvider) Refresh(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) ResetPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockProvider) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockProvider) UpdateEmail(ctx context.Context, userID, newEmail, password string) error {
	args := m.Called(ctx, userID, newEmail, password)
	return args.Error(0)
}

func (m *MockProvider) VerifyEmail(ctx context.Context, userID, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}

func (m *MockProvider) DeleteCredentials(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, u User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) EnsureUser(ctx context.Context, u User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) GetUser(ctx context.Context, userID string) (<-chan UserSnapshot, error) {
	args := m.Called(ctx, userID)
	ch, _ := args.Get(0).(<-chan UserSnapshot)
	return ch, args.Error(1)
}

func (m *MockRepository) UpdateProfile(ctx context.Context, u User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) SetEmail(ctx context.Context, userID, email string) error {
	args := m.Called(ctx, userID, email)
	return args.Error(0)
}

func (m *MockRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) DeleteAccount(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) AppendOrderRef(ctx context.Context, userID, orderID string) error {
	args := m.Called(ctx, userID, orderID)
	return args.Error(0)
}

func (m *MockRepository) GetCart(ctx context.Context, userID string) (<-chan CartSnapshot, error) {
	args := m.Called(ctx, userID)
	ch, _ := args.Get(0).(<-chan CartSnapshot)
	return ch, args.Error(1)
}

func (m *MockRepository) AddToCart(ctx context.Context, userID string, item CartItem) error {
	args := m.Called(ctx, userID, item)
	return args.Error(0)
}

func (m *MockRepository) UpdateCartItem(ctx context.Context, userID string, item CartItem) error {
	args := m.Called(ctx, userID, item)
	return args.Error(0)
}

func (m *MockRepository) RemoveFromCart(ctx context.Context, userID string, key CartKey) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

func (m *MockRepository) ClearCart(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) GetWishlist(ctx context.Context, userID string) (<-chan WishlistSnapshot, error) {
	args := m.Called(ctx, userID)
	ch, _ := args.Get(0).(<-chan WishlistSnapshot)
	return ch, args.Error(1)
}

func (m *MockRepository) AddToWishlist(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockRepository) GetAddresses(ctx context.Context, userID string) (<-chan AddressSnapshot, error) {
	args := m.Called(ctx, userID)
	ch, _ := args.Get(0).(<-chan AddressSnapshot)
	return ch, args.Error(1)
}

func (m *MockRepository) AddAddress(ctx context.Context, userID string, a Address) (string, error) {
	args := m.Called(ctx, userID, a)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) UpdateAddress(ctx context.Context, userID string, a Address) error {
	args := m.Called(ctx, userID, a)
	return args.Error(0)
}

func (m *MockRepository) DeleteAddress(ctx context.Context, userID, addressID string) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

func (m *MockRepository) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	args := m.Called(ctx, userID, addressID)
	return args.Error(0)
}

func (m *MockRepository) UpdateNotificationPreferences(ctx context.Context, userID string, prefs map[string]bool) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

func (m *MockRepository) GetNotificationPreferences(ctx context.Context, userID string) (<-chan PreferencesSnapshot, error) {
	args := m.Called(ctx, userID)
	ch, _ := args.Get(0).(<-chan PreferencesSnapshot)
	return ch, args.Error(1)
}

func (m *MockRepository) RecordActivity(ctx context.Context, userID string, kind ActivityType, details map[string]any) error {
	args := m.Called(ctx, userID, kind, details)
	return args.Error(0)
}

func (m *MockRepository) GetUserActivity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	args := m.Called(ctx, userID, limit)
	activities, _ := args.Get(0).([]Activity)
	return activities, args.Error(1)
}

func TestService_SignUp(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		provider.On("SignUp", mock.Anything, "a@example.com", "secret123").Return("user-1", "tok", nil)
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u User) bool {
			return u.ID == "user-1" && u.Email == "a@example.com" && u.FirstName == "Alex"
		})).Return(nil)
		repo.On("RecordActivity", mock.Anything, "user-1", ActivityLogin, mock.Anything).Return(nil)

		svc := NewService(repo, provider)
		userID, err := svc.SignUp(context.Background(), "a@example.com", "secret123", "Alex", "Stone")

		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)

		got, err := svc.Session().UserID()
		require.NoError(t, err)
		assert.Equal(t, "user-1", got)

		repo.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProvider))
		_, err := svc.SignUp(context.Background(), "  ", "secret123", "", "")
		assert.Error(t, err)
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		provider.On("SignUp", mock.Anything, "a@example.com", "secret123").Return("", "", assert.AnError)

		svc := NewService(repo, provider)
		_, err := svc.SignUp(context.Background(), "a@example.com", "secret123", "", "")

		assert.Error(t, err)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)

		_, err = svc.Session().UserID()
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})
}

func TestService_SignIn(t *testing.T) {
	repo := new(MockRepository)
	provider := new(MockProvider)
	provider.On("SignIn", mock.Anything, "a@example.com", "secret123").Return("user-1", "tok", nil)
	repo.On("UpdateLastLogin", mock.Anything, "user-1").Return(nil)
	repo.On("RecordActivity", mock.Anything, "user-1", ActivityLogin, mock.Anything).Return(nil)

	svc := NewService(repo, provider)
	userID, err := svc.SignIn(context.Background(), "a@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	repo.AssertExpectations(t)
}

func TestService_SignInWithGoogle(t *testing.T) {
	repo := new(MockRepository)
	provider := new(MockProvider)
	provider.On("SignInWithIDToken", mock.Anything, "google", "id-token").Return("user-9", "tok", nil)
	repo.On("EnsureUser", mock.Anything, User{ID: "user-9"}).Return(nil)
	repo.On("UpdateLastLogin", mock.Anything, "user-9").Return(nil)
	repo.On("RecordActivity", mock.Anything, "user-9", ActivityLogin,
		map[string]any{"provider": "google"}).Return(nil)

	svc := NewService(repo, provider)
	userID, err := svc.SignInWithGoogle(context.Background(), "id-token")

	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
	repo.AssertExpectations(t)
}

func TestService_SignOut(t *testing.T) {
	t.Run("NotLoggedIn", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProvider))
		assert.ErrorIs(t, svc.SignOut(context.Background()), ErrNotLoggedIn)
	})

	t.Run("ClearsSession", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		provider.On("SignOut", mock.Anything, "tok").Return(nil)
		repo.On("RecordActivity", mock.Anything, "user-1", ActivityLogout, mock.Anything).Return(nil)

		svc := NewService(repo, provider)
		svc.Session().SetCredentials("user-1", "tok")

		require.NoError(t, svc.SignOut(context.Background()))
		_, err := svc.Session().UserID()
		assert.ErrorIs(t, err, ErrNotLoggedIn)
	})
}

func TestService_CurrentUser_RequiresSession(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockProvider))
	_, err := svc.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestService_UpdateEmail(t *testing.T) {
	t.Run("SyncsProfileAfterProvider", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		provider.On("UpdateEmail", mock.Anything, "user-1", "new@example.com", "secret123").Return(nil)
		repo.On("SetEmail", mock.Anything, "user-1", "new@example.com").Return(nil)

		svc := NewService(repo, provider)
		require.NoError(t, svc.UpdateEmail(context.Background(), "user-1", "new@example.com", "secret123"))
		repo.AssertExpectations(t)
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		repo := new(MockRepository)
		provider := new(MockProvider)
		provider.On("UpdateEmail", mock.Anything, "user-1", "new@example.com", "wrong").Return(assert.AnError)

		svc := NewService(repo, provider)
		assert.Error(t, svc.UpdateEmail(context.Background(), "user-1", "new@example.com", "wrong"))
		repo.AssertNotCalled(t, "SetEmail", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_DeleteAccount(t *testing.T) {
	repo := new(MockRepository)
	provider := new(MockProvider)
	provider.On("DeleteCredentials", mock.Anything, "user-1").Return(nil)
	repo.On("DeleteAccount", mock.Anything, "user-1").Return(nil)

	svc := NewService(repo, provider)
	svc.Session().SetCredentials("user-1", "tok")

	require.NoError(t, svc.DeleteAccount(context.Background(), "user-1"))

	_, err := svc.Session().UserID()
	assert.ErrorIs(t, err, ErrNotLoggedIn, "deleting the signed-in account ends the session")
}

func TestService_AddToCart(t *testing.T) {
	t.Run("RejectsNonPositiveQuantity", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProvider))
		err := svc.AddToCart(context.Background(), "user-1", CartItem{ProductID: "p1", Quantity: 0})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("RejectsMissingProduct", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockProvider))
		err := svc.AddToCart(context.Background(), "user-1", CartItem{Quantity: 2})
		assert.Error(t, err)
	})

	t.Run("Delegates", func(t *testing.T) {
		repo := new(MockRepository)
		item := CartItem{ProductID: "p1", Quantity: 2, SelectedSize: "M"}
		repo.On("AddToCart", mock.Anything, "user-1", item).Return(nil)
		repo.On("RecordActivity", mock.Anything, "user-1", ActivityCartUpdate, mock.Anything).Return(nil)

		svc := NewService(repo, new(MockProvider))
		require.NoError(t, svc.AddToCart(context.Background(), "user-1", item))
		repo.AssertExpectations(t)
	})
}

func TestService_UpdateCartItem_ZeroQuantityRemoves(t *testing.T) {
	repo := new(MockRepository)
	item := CartItem{ProductID: "p1", Quantity: 0, SelectedSize: "M", SelectedColor: "navy"}
	repo.On("RemoveFromCart", mock.Anything, "user-1", item.Key()).Return(nil)

	svc := NewService(repo, new(MockProvider))
	require.NoError(t, svc.UpdateCartItem(context.Background(), "user-1", item))

	repo.AssertNotCalled(t, "UpdateCartItem", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_AddAddress_Validation(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockProvider))

	_, err := svc.AddAddress(context.Background(), "user-1", Address{City: "Springfield", Country: "US"})
	assert.Error(t, err, "street address is required")

	_, err = svc.AddAddress(context.Background(), "user-1", Address{StreetAddress: "1 Main St", City: "Springfield"})
	assert.Error(t, err, "country is required")
}

func TestService_GetUserActivity_DefaultLimit(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetUserActivity", mock.Anything, "user-1", 50).Return([]Activity{}, nil)

	svc := NewService(repo, new(MockProvider))
	_, err := svc.GetUserActivity(context.Background(), "user-1", 0)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
