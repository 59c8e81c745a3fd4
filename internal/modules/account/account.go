package account

import (
	"strings"
	"time"
)

// AuthProvider records how an account was first established or last linked.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderApple  AuthProvider = "apple"
)

// RoleMember is the role every new account starts with.
const RoleMember = "member"

// Account is the authenticated principal. Email is stored lower-cased.
// PasswordHash is nil for accounts that only ever signed in through a provider.
type Account struct {
	ID            string       `db:"id"`
	Email         string       `db:"email"`
	PasswordHash  *string      `db:"password_hash"`
	AuthProvider  AuthProvider `db:"auth_provider"`
	ProviderID    *string      `db:"provider_id"`
	Role          string       `db:"role"`
	EmailVerified bool         `db:"email_verified"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// HasPassword reports whether a local credential is set.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// LinkedTo reports whether the account is linked to exactly this provider identity.
func (a *Account) LinkedTo(provider AuthProvider, providerID string) bool {
	return a.AuthProvider == provider && a.ProviderID != nil && *a.ProviderID == providerID
}

// TokenPurpose scopes a single-use token to one kind of state change.
type TokenPurpose string

const (
	PurposePasswordReset TokenPurpose = "password_reset"
	PurposeEmailVerify   TokenPurpose = "email_verify"
)

// ActionToken is a single-use, time-boxed token. Only the hash is stored.
type ActionToken struct {
	ID         string       `db:"id"`
	AccountID  string       `db:"account_id"`
	Purpose    TokenPurpose `db:"purpose"`
	TokenHash  string       `db:"token_hash"`
	ExpiresAt  time.Time    `db:"expires_at"`
	ConsumedAt *time.Time   `db:"consumed_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// OAuthState binds an authorization request to its PKCE verifier.
type OAuthState struct {
	State     string       `db:"state"`
	Provider  AuthProvider `db:"provider"`
	Verifier  string       `db:"verifier"`
	ExpiresAt time.Time    `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
}

// ProfileHints are optional details a provider shares about the person.
type ProfileHints struct {
	DisplayName string
	PictureURL  string
}

// OAuthIdentity is what a provider attested after its own protocol exchange.
type OAuthIdentity struct {
	Provider      AuthProvider
	ProviderID    string
	Email         string
	EmailVerified bool
	Profile       ProfileHints
}

// ResolveOutcome says which step of identity resolution produced the account.
type ResolveOutcome string

const (
	OutcomeExisting ResolveOutcome = "existing"
	OutcomeLinked   ResolveOutcome = "linked"
	OutcomeCreated  ResolveOutcome = "created"
)

// Resolution is the result of ResolveOAuthIdentity. Degraded is set when the
// account was created but its profile stub was not.
type Resolution struct {
	Account  *Account
	Outcome  ResolveOutcome
	Degraded bool
}

// AuthResult carries a freshly issued token pair.
type AuthResult struct {
	Account          *Account
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ClientMeta describes the client a session is opened for.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// PurgeReport counts rows removed by PurgeExpiredTokens.
type PurgeReport struct {
	ActionTokens int64
	OAuthStates  int64
	Sessions     int64
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
