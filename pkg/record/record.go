package record

import (
	"regexp"
	"strings"
)

const (
	ADDED     = "ADDED"
	UPDATED   = "UPDATED"
	PROCESSED = "PROCESSED"
)

const invalidEmailMsg = "Email does not have the expected format."

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9]+\.[a-z]{2,3}$`)

type Record struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Email       string `json:"email"`
}

func New(name, description, status, email string) *Record {
	return &Record{
		Name:        name,
		Description: description,
		Status:      status,
		Email:       email,
	}
}

// Clone returns a copy that shares no state with r.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// ValidationError maps a field name to the reason it was rejected.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	msgs := make([]string, 0, len(e))
	for field, msg := range e {
		msgs = append(msgs, field+": "+msg)
	}
	return "invalid record: " + strings.Join(msgs, ", ")
}

// Validate checks the contact email. An empty email is accepted.
func (r *Record) Validate() error {
	if r.Email != "" && !emailRe.MatchString(r.Email) {
		return ValidationError{"email": invalidEmailMsg}
	}

	return nil
}
