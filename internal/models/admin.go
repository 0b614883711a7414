package models

// AdminCredential is the one identity allowed to authenticate. It is built
// from configuration at startup and is read-only afterwards.
type AdminCredential struct {
	Username     string
	PasswordHash string
}
