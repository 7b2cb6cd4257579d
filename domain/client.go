package domain

import (
	"strings"
	"time"
)

// Client is the party a reminder is addressed to.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CanReceiveEmail reports whether notifications can be delivered to the client.
func (c *Client) CanReceiveEmail() bool {
	return c != nil && strings.TrimSpace(c.Email) != ""
}

// Normalize trims user supplied fields and validates the record.
func (c *Client) Normalize() error {
	if c == nil {
		return ErrInvalidPayload
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return ErrEmptyClientName
	}
	return nil
}
