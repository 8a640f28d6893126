package models

// User is a registered account. PasswordHash is a bcrypt hash; the clear
// password never leaves the login handler.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
}
