package board

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// JoinedProfile is a profile embedded through a foreign-key join. The backend
// returns such joins either as one object or as a list depending on how the
// relationship is inferred; both decode to a single optional profile.
type JoinedProfile struct {
	Ref *ProfileRef
}

// UnmarshalJSON accepts an object, a list (first element wins), or null.
func (p *JoinedProfile) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid joined profile: %s", string(data))
	}
	res := gjson.ParseBytes(data)
	if res.IsArray() {
		res = res.Get("0")
	}
	if !res.IsObject() {
		p.Ref = nil
		return nil
	}
	p.Ref = &ProfileRef{
		ID:       res.Get("id").String(),
		Username: res.Get("username").String(),
	}
	return nil
}

// MarshalJSON writes the profile as an object or null.
func (p JoinedProfile) MarshalJSON() ([]byte, error) {
	if p.Ref == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.Ref)
}

// IsZero reports whether no profile was joined.
func (p JoinedProfile) IsZero() bool {
	return p.Ref == nil
}

// Username returns the joined username or an empty string.
func (p JoinedProfile) Username() string {
	if p.Ref == nil {
		return ""
	}
	return strings.TrimSpace(p.Ref.Username)
}

// TeamMembers returns the non-blank member usernames other than lead, deduplicated
// in first-seen order.
func TeamMembers(members []ProfileRef, lead string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		name := strings.TrimSpace(m.Username)
		if name == "" || name == lead {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// LeadName returns the lead's username, or fallback when the join was empty.
func (r Roster) LeadName(fallback string) string {
	if name := r.Lead.Username(); name != "" {
		return name
	}
	return fallback
}

// TeamMembers returns member usernames excluding the lead by user id.
func (r Roster) TeamMembers() []string {
	refs := make([]ProfileRef, 0, len(r.Members))
	for _, m := range r.Members {
		if m.UserID == r.LeadID {
			continue
		}
		refs = append(refs, ProfileRef{ID: m.UserID, Username: m.Profile.Username()})
	}
	return TeamMembers(refs, "")
}
