package auth

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/ilker/tracker-server/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest is the login payload. Only a missing key counts as missing;
// an explicit null is sent and simply fails the credential check.
type LoginRequest struct {
	Username Field `json:"username"`
	Password Field `json:"password"`
}

// Field is a payload value that remembers whether its key was present.
type Field struct {
	Value   string
	Present bool
}

// Provided returns a Field whose key was present with value v.
func Provided(v string) Field {
	return Field{Value: v, Present: true}
}

func (f *Field) UnmarshalJSON(b []byte) error {
	f.Present = true
	if string(b) == "null" {
		f.Value = ""
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Authenticator checks credentials against the single admin identity and
// issues session tokens for it. There are no roles: a caller is the admin
// or is nobody.
type Authenticator struct {
	admin   models.AdminCredential
	tokens  *TokenIssuer
	compare func(hash, password []byte) error
}

func NewAuthenticator(admin models.AdminCredential, tokens *TokenIssuer) *Authenticator {
	return &Authenticator{
		admin:   admin,
		tokens:  tokens,
		compare: bcrypt.CompareHashAndPassword,
	}
}

// Login returns a signed token for the admin. A wrong username and a wrong
// password produce the same ErrInvalidCredentials.
func (a *Authenticator) Login(req LoginRequest) (string, error) {
	if !req.Username.Present || !req.Password.Present {
		return "", ErrMissingField
	}

	// Always hash so a wrong username costs the same as a wrong password.
	passwordOK := a.compare([]byte(a.admin.PasswordHash), []byte(req.Password.Value)) == nil
	if !a.isAdmin(req.Username.Value) || !passwordOK {
		return "", ErrInvalidCredentials
	}

	return a.tokens.Issue(a.admin.Username)
}

// CheckAuthorization verifies the token and that it belongs to the admin.
// Token failures wrap ErrMissingToken or ErrInvalidToken; a valid token for
// anyone else yields ErrUnauthorized.
func (a *Authenticator) CheckAuthorization(token string) error {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return err
	}
	return a.Authorize(claims.Identity())
}

// Authorize checks an identity taken from an already verified token.
func (a *Authenticator) Authorize(identity string) error {
	if !a.isAdmin(identity) {
		return ErrUnauthorized
	}
	return nil
}

func (a *Authenticator) isAdmin(username string) bool {
	return subtle.ConstantTimeCompare([]byte(username), []byte(a.admin.Username)) == 1
}

// Tokens exposes the issuer for the token-verification middleware.
func (a *Authenticator) Tokens() *TokenIssuer {
	return a.tokens
}

// HashPassword produces a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
