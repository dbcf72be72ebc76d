package domain

import "time"

// ResponseTemplate is a canned admin reply with {{variable}} placeholders.
type ResponseTemplate struct {
	ID        string
	Name      string
	Body      string
	Category  string
	Shortcuts []string
	Variables []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
