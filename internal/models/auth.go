package models

// Identity is the verified owner of a session.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"username,omitempty"`
}

type SessionResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
