package user

type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Addresses   []Address  `json:"addresses,omitempty"`
	Wishlist    []string   `json:"wishlist,omitempty"`
	Cart        []CartItem `json:"cart,omitempty"`
	// Orders holds back-references to historical order ids; the orders
	// collection owns the documents.
	Orders      []string        `json:"orders,omitempty"`
	Preferences map[string]bool `json:"notificationPreferences,omitempty"`
	DateJoined  int64           `json:"dateJoined"`
	LastLogin   int64           `json:"lastLogin"`
}

type Address struct {
	ID            string `json:"id"`
	Name          string `json:"name"` // e.g. "Home", "Office"
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"isDefault"`
}

type CartItem struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
	DateAdded     int64  `json:"dateAdded"`
}

// CartKey is the composite identity of a cart line. One line exists per
// distinct key; adding the same key again merges quantities.
type CartKey struct {
	ProductID string
	Size      string
	Color     string
}

func (c CartItem) Key() CartKey {
	return CartKey{ProductID: c.ProductID, Size: c.SelectedSize, Color: c.SelectedColor}
}

type ActivityType string

const (
	ActivityLogin          ActivityType = "LOGIN"
	ActivityLogout         ActivityType = "LOGOUT"
	ActivityPurchase       ActivityType = "PURCHASE"
	ActivityWishlistUpdate ActivityType = "WISHLIST_UPDATE"
	ActivityCartUpdate     ActivityType = "CART_UPDATE"
	ActivityProfileUpdate  ActivityType = "PROFILE_UPDATE"
	ActivityPasswordChange ActivityType = "PASSWORD_CHANGE"
	ActivityAddressUpdate  ActivityType = "ADDRESS_UPDATE"
)

type Activity struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      ActivityType   `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Snapshot types for the live reads. Each carries either a value or the
// terminal error of the subscription.

type UserSnapshot struct {
	User *User
	Err  error
}

type CartSnapshot struct {
	Items []CartItem
	Err   error
}

type WishlistSnapshot struct {
	ProductIDs []string
	Err        error
}

type AddressSnapshot struct {
	Addresses []Address
	Err       error
}

type PreferencesSnapshot struct {
	Preferences map[string]bool
	Err         error
}
