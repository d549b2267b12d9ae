package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"mensstore-be/internal/store"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// Repository is the account data-access contract: profile, cart, wishlist,
// addresses, preferences and the activity log. Live reads are standing
// subscriptions tied to the caller's context.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	// EnsureUser creates the user document only when absent; an existing
	// profile is left untouched.
	EnsureUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, userID string) (<-chan UserSnapshot, error)
	UpdateProfile(ctx context.Context, u User) error
	SetEmail(ctx context.Context, userID, email string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	DeleteAccount(ctx context.Context, userID string) error
	AppendOrderRef(ctx context.Context, userID, orderID string) error

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

	RecordActivity(ctx context.Context, userID string, kind ActivityType, details map[string]any) error
	GetUserActivity(ctx context.Context, userID string, limit int) ([]Activity, error)
}

type storeRepository struct {
	store      store.Store
	users      store.Collection
	activities store.Collection
}

func NewRepository(s store.Store) Repository {
	return &storeRepository{
		store:      s,
		users:      s.Collection("users"),
		activities: s.Collection("activities"),
	}
}

func (r *storeRepository) CreateUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	now := time.Now().UnixMilli()
	u.DateJoined = now
	u.LastLogin = now
	return r.users.Set(ctx, u.ID, u)
}

func (r *storeRepository) EnsureUser(ctx context.Context, u User) error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get("users", u.ID)
		if err != nil {
			return err
		}
		if doc != nil {
			return nil
		}
		now := time.Now().UnixMilli()
		u.DateJoined = now
		u.LastLogin = now
		return tx.Set("users", u.ID, u)
	})
}

func (r *storeRepository) GetUser(ctx context.Context, userID string) (<-chan UserSnapshot, error) {
	src, err := r.users.Query().Where("id", store.OpEqual, userID).Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan UserSnapshot, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var us UserSnapshot
			if snap.Err != nil {
				us.Err = snap.Err
			} else if len(snap.Docs) > 0 {
				var u User
				if err := snap.Docs[0].Decode(&u); err != nil {
					us.Err = err
				} else {
					us.User = &u
				}
			}
			select {
			case out <- us:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// mutate applies fn to the user document inside one store transaction, so
// read-modify-write sequences are atomic and invariants are never observed
// half-applied.
func (r *storeRepository) mutate(ctx context.Context, userID string, fn func(u *User) error) error {
	return r.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get("users", userID)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrUserNotFound
		}

		var u User
		if err := doc.Decode(&u); err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		return tx.Set("users", userID, u)
	})
}

func (r *storeRepository) UpdateProfile(ctx context.Context, in User) error {
	return r.mutate(ctx, in.ID, func(u *User) error {
		u.Email = in.Email
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.PhoneNumber = in.PhoneNumber
		return nil
	})
}

func (r *storeRepository) SetEmail(ctx context.Context, userID, email string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		u.Email = email
		return nil
	})
}

func (r *storeRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		u.LastLogin = time.Now().UnixMilli()
		return nil
	})
}

func (r *storeRepository) DeleteAccount(ctx context.Context, userID string) error {
	// Addresses, cart and wishlist live inside the user document, so
	// deleting it ends their ownership in the same write.
	return r.users.Delete(ctx, userID)
}

func (r *storeRepository) AppendOrderRef(ctx context.Context, userID, orderID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		for _, id := range u.Orders {
			if id == orderID {
				return nil
			}
		}
		u.Orders = append(u.Orders, orderID)
		return nil
	})
}

/* ---------- CART ---------- */

func (r *storeRepository) GetCart(ctx context.Context, userID string) (<-chan CartSnapshot, error) {
	return subscribeField(ctx, r, userID, func(u *User) CartSnapshot {
		if u == nil {
			return CartSnapshot{}
		}
		return CartSnapshot{Items: u.Cart}
	}, func(err error) CartSnapshot {
		return CartSnapshot{Err: err}
	})
}

func (r *storeRepository) AddToCart(ctx context.Context, userID string, item CartItem) error {
	return r.mutate(ctx, userID, func(u *User) error {
		key := item.Key()
		for i, existing := range u.Cart {
			if existing.Key() == key {
				u.Cart[i].Quantity += item.Quantity
				return nil
			}
		}
		item.DateAdded = time.Now().UnixMilli()
		u.Cart = append(u.Cart, item)
		return nil
	})
}

func (r *storeRepository) UpdateCartItem(ctx context.Context, userID string, item CartItem) error {
	return r.mutate(ctx, userID, func(u *User) error {
		key := item.Key()
		for i, existing := range u.Cart {
			if existing.Key() == key {
				item.DateAdded = existing.DateAdded
				u.Cart[i] = item
				return nil
			}
		}
		return ErrCartItemNotFound
	})
}

func (r *storeRepository) RemoveFromCart(ctx context.Context, userID string, key CartKey) error {
	return r.mutate(ctx, userID, func(u *User) error {
		kept := u.Cart[:0:0]
		for _, existing := range u.Cart {
			if existing.Key() != key {
				kept = append(kept, existing)
			}
		}
		u.Cart = kept
		return nil
	})
}

func (r *storeRepository) ClearCart(ctx context.Context, userID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		u.Cart = nil
		return nil
	})
}

/* ---------- WISHLIST ---------- */

func (r *storeRepository) GetWishlist(ctx context.Context, userID string) (<-chan WishlistSnapshot, error) {
	return subscribeField(ctx, r, userID, func(u *User) WishlistSnapshot {
		if u == nil {
			return WishlistSnapshot{}
		}
		return WishlistSnapshot{ProductIDs: u.Wishlist}
	}, func(err error) WishlistSnapshot {
		return WishlistSnapshot{Err: err}
	})
}

func (r *storeRepository) AddToWishlist(ctx context.Context, userID, productID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		for _, id := range u.Wishlist {
			if id == productID {
				// Set semantics: adding twice is the same as adding once.
				return nil
			}
		}
		u.Wishlist = append(u.Wishlist, productID)
		return nil
	})
}

func (r *storeRepository) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		kept := u.Wishlist[:0:0]
		for _, id := range u.Wishlist {
			if id != productID {
				kept = append(kept, id)
			}
		}
		// Removing an absent id is a no-op, not an error.
		u.Wishlist = kept
		return nil
	})
}

/* ---------- ADDRESSES ---------- */

func (r *storeRepository) GetAddresses(ctx context.Context, userID string) (<-chan AddressSnapshot, error) {
	return subscribeField(ctx, r, userID, func(u *User) AddressSnapshot {
		if u == nil {
			return AddressSnapshot{}
		}
		return AddressSnapshot{Addresses: u.Addresses}
	}, func(err error) AddressSnapshot {
		return AddressSnapshot{Err: err}
	})
}

func (r *storeRepository) AddAddress(ctx context.Context, userID string, a Address) (string, error) {
	a.ID = uuid.New().String()
	err := r.mutate(ctx, userID, func(u *User) error {
		if a.IsDefault {
			for i := range u.Addresses {
				u.Addresses[i].IsDefault = false
			}
		}
		u.Addresses = append(u.Addresses, a)
		return nil
	})
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (r *storeRepository) UpdateAddress(ctx context.Context, userID string, a Address) error {
	return r.mutate(ctx, userID, func(u *User) error {
		for i, existing := range u.Addresses {
			if existing.ID == a.ID {
				if a.IsDefault {
					for j := range u.Addresses {
						u.Addresses[j].IsDefault = false
					}
				}
				u.Addresses[i] = a
				return nil
			}
		}
		return ErrAddressNotFound
	})
}

func (r *storeRepository) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		kept := u.Addresses[:0:0]
		found := false
		for _, existing := range u.Addresses {
			if existing.ID == addressID {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		if !found {
			return ErrAddressNotFound
		}
		u.Addresses = kept
		return nil
	})
}

// SetDefaultAddress flips the default flag in a single transactional write:
// a concurrent reader sees either the old default or the new one, never two
// and never none-plus-new.
func (r *storeRepository) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	return r.mutate(ctx, userID, func(u *User) error {
		found := false
		for i := range u.Addresses {
			isTarget := u.Addresses[i].ID == addressID
			u.Addresses[i].IsDefault = isTarget
			if isTarget {
				found = true
			}
		}
		if !found {
			return ErrAddressNotFound
		}
		return nil
	})
}

/* ---------- PREFERENCES ---------- */

func (r *storeRepository) UpdateNotificationPreferences(ctx context.Context, userID string, prefs map[string]bool) error {
	return r.mutate(ctx, userID, func(u *User) error {
		if u.Preferences == nil {
			u.Preferences = map[string]bool{}
		}
		for k, v := range prefs {
			u.Preferences[k] = v
		}
		return nil
	})
}

func (r *storeRepository) GetNotificationPreferences(ctx context.Context, userID string) (<-chan PreferencesSnapshot, error) {
	return subscribeField(ctx, r, userID, func(u *User) PreferencesSnapshot {
		if u == nil {
			return PreferencesSnapshot{}
		}
		return PreferencesSnapshot{Preferences: u.Preferences}
	}, func(err error) PreferencesSnapshot {
		return PreferencesSnapshot{Err: err}
	})
}

/* ---------- ACTIVITY ---------- */

func (r *storeRepository) RecordActivity(ctx context.Context, userID string, kind ActivityType, details map[string]any) error {
	a := Activity{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      kind,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
	return r.activities.Set(ctx, a.ID, a)
}

func (r *storeRepository) GetUserActivity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	docs, err := r.activities.Query().
		Where("userId", store.OpEqual, userID).
		OrderBy("timestamp", store.Descending).
		Limit(limit).
		GetAll(ctx)
	if err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(docs))
	for _, doc := range docs {
		var a Activity
		if err := doc.Decode(&a); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// subscribeField projects the live user document onto one of its owned
// collections (cart, wishlist, addresses, preferences).
func subscribeField[T any](
	ctx context.Context,
	r *storeRepository,
	userID string,
	project func(u *User) T,
	fail func(err error) T,
) (<-chan T, error) {
	src, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan T, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var v T
			if snap.Err != nil {
				v = fail(snap.Err)
			} else {
				v = project(snap.User)
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
