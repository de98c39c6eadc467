package chat

// User is a public profile.
type User struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Tag       string `json:"tag"`
	Bio       string `json:"bio,omitempty"`
}
