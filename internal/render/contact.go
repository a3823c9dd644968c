package render

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// Contact is the static header of every rendered resume. It comes from
// configuration, not from the corpus: tailoring never changes who you are.
type Contact struct {
	Name     string   `mapstructure:"name" json:"name"`
	Email    string   `mapstructure:"email" json:"email"`
	Phone    string   `mapstructure:"phone" json:"phone,omitempty"`
	Location string   `mapstructure:"location" json:"location,omitempty"`
	Links    []string `mapstructure:"links" json:"links,omitempty"`
}

// Validate checks the fields a resume header cannot do without. Phone and
// location are free-form and optional, links must be absolute URLs.
func (c *Contact) Validate() error {
	if c == nil {
		return errors.New("contact is not configured")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("contact name is required")
	}

	email := strings.TrimSpace(c.Email)
	if email == "" {
		return errors.New("contact email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("contact email %q is not a valid address: %w", email, err)
	}

	for _, link := range c.Links {
		parsed, err := url.Parse(strings.TrimSpace(link))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("contact link %q is not an absolute URL", link)
		}
	}

	return nil
}
