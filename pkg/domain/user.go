package domain

// User is the identity record returned by the backend on login.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	GitHubID string `json:"githubId,omitempty"`
}
