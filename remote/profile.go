package remote

import (
	"encoding/json"
	"time"
)

// Profile is one row of the profiles table.
type Profile struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

type profileWire struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role,omitempty"`
	IsAdmin   *bool      `json:"is_admin,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// MarshalJSON writes both the role and the legacy is_admin column so older
// readers of the table keep working.
func (p Profile) MarshalJSON() ([]byte, error) {
	isAdmin := p.Role == RolePartner
	w := profileWire{
		ID:      p.ID,
		Email:   p.Email,
		Role:    p.Role,
		IsAdmin: &isAdmin,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt.UTC()
		w.CreatedAt = &created
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts rows with a role column, rows with only is_admin,
// and rows with neither (customer).
func (p *Profile) UnmarshalJSON(data []byte) error {
	var w profileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	p.ID = w.ID
	p.Email = w.Email
	p.CreatedAt = time.Time{}
	if w.CreatedAt != nil {
		p.CreatedAt = *w.CreatedAt
	}

	switch {
	case w.Role != "":
		p.Role = w.Role
	case w.IsAdmin != nil && *w.IsAdmin:
		p.Role = RolePartner
	default:
		p.Role = RoleCustomer
	}
	return nil
}
