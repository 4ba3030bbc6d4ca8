package domain

// Session is the client's belief about who is signed in and with what
// credential. User and Token are set and cleared together.
type Session struct {
	User  *User
	Token string
}

// Authenticated reports whether the session holds an identity.
func (s Session) Authenticated() bool {
	return s.User != nil
}
