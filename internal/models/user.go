package models

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// PublicUser is the user view sent to clients, without the password hash.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
