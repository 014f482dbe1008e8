package model

// User is a read-only projection of an account from the identity provider.
type User struct {
	ID    string `json:"id" yaml:"id" db:"id"`
	Name  string `json:"name" yaml:"name" db:"name"`
	Email string `json:"email" yaml:"email" db:"email"`
}

// DisplayName returns the name, falling back to the email address.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
