package auth

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	EmployeeID   string     `json:"employeeId,omitempty"`
	Status       string     `json:"status"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, EmployeeID: u.EmployeeID, Email: u.Email}
}
