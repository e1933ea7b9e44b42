package model

// User is the identity record returned by the auth endpoints.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// DisplayName returns the user's name, falling back to the email address.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Tokens is the access/refresh credential pair issued by the server.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no access token is present.
func (t Tokens) Empty() bool {
	return t.AccessToken == ""
}

// AuthResponse is the success body of /auth/login and /auth/register.
type AuthResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
	Tokens  Tokens `json:"tokens"`
}

// Credentials holds the login form input.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration holds the register form input. ConfirmPassword never
// leaves the client.
type Registration struct {
	Name            string `json:"name,omitempty" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password"`
}

// GuestRegistration returns the throwaway account registered by guest
// mode; id should be random, e.g. the first characters of a UUID.
func GuestRegistration(id string) Registration {
	password := "guest_" + id + "!"
	return Registration{
		Name:            "Guest User",
		Email:           "guest_" + id + "@demo.com",
		Password:        password,
		ConfirmPassword: password,
	}
}
