package models

import (
	"time"
)

// Profile is the application-level user record stored in the "users"
// collection of the document store. Its ID always equals the identity
// store's user id for the same principal.
type Profile struct {
	ID        string         `json:"id" example:"73b3b73e-6bd9-4f3e-8ec3-0c0f6a5d0b2e"`
	Email     string         `json:"email" example:"dana@example.com"`
	FullName  string         `json:"full_name" example:"Dana Smith"`
	Role      Role           `json:"role" example:"viewer"`
	Disabled  bool           `json:"disabled"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RoleMarker is the body of a per-role index document, keyed by identity id
// in the collection named after the role.
type RoleMarker struct {
	Email     string    `json:"email" example:"dana@example.com"`
	Role      Role      `json:"role" example:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Document flattens the profile into the schemaless shape the document
// store persists.
func (p *Profile) Document() map[string]any {
	doc := map[string]any{
		"email":      p.Email,
		"full_name":  p.FullName,
		"role":       string(p.Role),
		"disabled":   p.Disabled,
		"created_at": p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Settings != nil {
		doc["settings"] = p.Settings
	}
	return doc
}

func (m *RoleMarker) Document() map[string]any {
	return map[string]any{
		"email":      m.Email,
		"role":       string(m.Role),
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ProfileFromDocument rebuilds a profile from a stored document. Unknown
// fields are ignored, missing fields are left at their zero value so that
// documents written by older revisions still load.
func ProfileFromDocument(id string, doc map[string]any) *Profile {
	p := &Profile{ID: id}
	p.Email, _ = doc["email"].(string)
	p.FullName, _ = doc["full_name"].(string)
	if role, ok := doc["role"].(string); ok {
		p.Role = Role(role)
	}
	p.Disabled, _ = doc["disabled"].(bool)
	if settings, ok := doc["settings"].(map[string]any); ok {
		p.Settings = settings
	}
	p.CreatedAt = timeFromDocument(doc["created_at"])
	p.UpdatedAt = timeFromDocument(doc["updated_at"])
	return p
}

func timeFromDocument(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
