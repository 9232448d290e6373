package models

// Status is a named lifecycle stage of a ticket.
type Status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s Status) Key() int64 { return s.ID }

// Priority is a named urgency level; higher ids sort as more urgent.
type Priority struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (p Priority) Key() int64 { return p.ID }

// NamedEntity is the body of POST /statuses and POST /priorities.
type NamedEntity struct {
	Name string `json:"name" validate:"required,max=64"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=16"`
}

// NewUser is the body of POST /users.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=16"`
	Role     Role   `json:"role" validate:"required,oneof=customer agent admin"`
}

// LoginResult is the body returned by POST /auth/login.
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
