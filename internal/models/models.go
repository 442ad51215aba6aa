// Package models holds the request, response and entity types shared by the
// storage, service and router layers.
package models

// User is the stored entity. ID is assigned by the storage and never changes.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser carries the fields accepted when a user is created.
type NewUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserPatch carries a partial update. A nil field is left untouched.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Apply returns u with the non-nil patch fields merged in.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}

	return u
}

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// MessageResponse is the body of the root endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// PingResponse is the body of the health endpoint.
type PingResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
}
