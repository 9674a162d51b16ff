package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Sentinel profile values used for users created without backend confirmation.
const (
	DemoMobile = "9876543210"
	DemoCity   = "Ahmedabad"
)

// UserProfile represents the citizen profile returned by /api/auth/me.
// Fields the client does not know about are preserved in Extra so that a
// profile survives a persist/restore cycle unchanged.
type UserProfile struct {
	ID       string `json:"id" validate:"required_without=Email"`
	Email    string `json:"email" validate:"required_without=ID"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
	City     string `json:"city"`

	Extra map[string]any `json:"-"`
}

var knownProfileFields = map[string]struct{}{
	"id": {}, "email": {}, "full_name": {}, "mobile": {}, "city": {},
}

// MarshalJSON flattens Extra next to the known fields.
func (u UserProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+5)
	for k, v := range u.Extra {
		if _, known := knownProfileFields[k]; !known {
			out[k] = v
		}
	}
	out["id"] = u.ID
	out["email"] = u.Email
	out["full_name"] = u.FullName
	out["mobile"] = u.Mobile
	out["city"] = u.City
	return json.Marshal(out)
}

// UnmarshalJSON accepts numeric or string ids and keeps unknown fields.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("user profile must be a JSON object")
	}

	*u = UserProfile{}
	if v, ok := raw["id"]; ok {
		id, err := decodeID(v)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		u.ID = id
	}
	for key, dst := range map[string]*string{
		"email":     &u.Email,
		"full_name": &u.FullName,
		"mobile":    &u.Mobile,
		"city":      &u.City,
	} {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	for k, v := range raw {
		if _, known := knownProfileFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
		if u.Extra == nil {
			u.Extra = make(map[string]any)
		}
		u.Extra[k] = val
	}
	return nil
}

func decodeID(v json.RawMessage) (string, error) {
	if string(v) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Clone returns a deep copy of the profile.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.Extra != nil {
		c.Extra = make(map[string]any, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// UserPatch carries a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	FullName *string        `json:"full_name,omitempty"`
	Mobile   *string        `json:"mobile,omitempty"`
	City     *string        `json:"city,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Extra    map[string]any `json:"-"`
}

// Apply merges the patch into a copy of u and returns it.
func (p UserPatch) Apply(u *UserProfile) *UserProfile {
	out := u.Clone()
	if out == nil {
		out = &UserProfile{}
	}
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.Mobile != nil {
		out.Mobile = *p.Mobile
	}
	if p.City != nil {
		out.City = *p.City
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	for k, v := range p.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}
	return out
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayNameFromEmail derives a display name from the local part of an
// email: every non-alphanumeric character becomes a space and each word is
// capitalised. A local part with no letters or digits yields "Demo User".
func DisplayNameFromEmail(email string) string {
	local := email
	if i := strings.Index(local, "@"); i >= 0 {
		local = local[:i]
	}

	var b strings.Builder
	b.Grow(len(local))
	wordStart := true
	for _, r := range local {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteByte(' ')
			wordStart = true
			continue
		}
		if wordStart {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		wordStart = false
	}

	name := b.String()
	if strings.TrimSpace(name) == "" {
		return "Demo User"
	}
	return name
}

// NewDemoUser builds the profile used for a session created without
// backend confirmation.
func NewDemoUser(email string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:       fmt.Sprintf("demo_%d", now.UnixMilli()),
		Email:    email,
		FullName: DisplayNameFromEmail(email),
		Mobile:   DemoMobile,
		City:     DemoCity,
	}
}

// RegisterRequest represents a citizen registration request
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" validate:"required"`
	Mobile   string `json:"mobile"`
	City     string `json:"city"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the token issued by the backend
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
