package domain

import "time"

// User is a directory record for customers, agents and admins.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CompanyID *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Company groups customers.
type Company struct {
	ID    string
	Name  string
	Email string
}
