package domain

// Role is the ordered privilege level of a User.
type Role int

// Roles are ordered: Guest < User < Scout < Admin.
const (
	RoleGuest Role = iota
	RoleUser
	RoleScout
	RoleAdmin
)

// User is identified by its lowercase-normalized email.
type User struct {
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	Role           Role
}

// UserToken is an opaque, single-use credential owned by one user. At
// most one live token per user is kept; inserting replaces it.
type UserToken struct {
	Email     string
	Nonce     string
	ExpiresAt int64
}

// EmailNonce is the (email, opaque nonce) pair used as a one-shot
// authorization token for password reset and email confirmation.
type EmailNonce struct {
	Email string
	Nonce string
}

// Organization owns a set of tags whose use on a place is restricted
// to the organization's members, and is authenticated by APIToken.
type Organization struct {
	ID        string
	Name      string
	APIToken  string
	OwnedTags []string
}

// BboxSubscription lets a user receive notifications for places
// created or changed within a bounding box.
type BboxSubscription struct {
	UID        string
	OwnerEmail string
	Bbox       BboxLiteral
}

// BboxLiteral is the plain-float rectangle used at the domain/API
// boundary, converted to geo.Bbox by the store and search layers.
type BboxLiteral struct {
	SWLat, SWLng, NELat, NELng float64
}
