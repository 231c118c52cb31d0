// internal/domain/models/preferences.go
package models

// In-app notification modes.
const (
	InAppAll      = "all"
	InAppMentions = "mentions"
	InAppNone     = "none"
)

// Preferences is the per-user preference bundle embedded on the user document.
type Preferences struct {
	Notifications NotificationPreferences `bson:"notifications,omitempty" json:"notifications"`
}

// NotificationPreferences controls which notifications a user receives.
//
// Boolean fields are pointers so that "absent" can be told apart from an
// explicit false: several eligibility rules only act on a literal false,
// while the advisory resolver treats absent as disabled. Write paths always
// persist a fully-populated bundle (see DefaultNotificationPreferences), so
// absence only shows up on documents imported from elsewhere.
type NotificationPreferences struct {
	Enabled *bool        `bson:"enabled,omitempty" json:"enabled,omitempty"`
	InApp   *InAppPrefs  `bson:"in_app,omitempty" json:"in_app,omitempty"`
	Email   *EmailPrefs  `bson:"email,omitempty" json:"email,omitempty"`
	Push    *PushPrefs   `bson:"push,omitempty" json:"push,omitempty"`
	Mobile  *bool        `bson:"mobile,omitempty" json:"mobile,omitempty"`
}

// InAppPrefs controls the in-app notification channel.
type InAppPrefs struct {
	Enabled *bool  `bson:"enabled,omitempty" json:"enabled,omitempty"`
	Type    string `bson:"type,omitempty" json:"type,omitempty"` // all | mentions | none
}

// EmailPrefs controls email notification categories.
//
// Security is pinned: no write path may persist Security=false, regardless of
// caller input. Normalize enforces this.
type EmailPrefs struct {
	Enabled       *bool `bson:"enabled,omitempty" json:"enabled,omitempty"`
	Communication *bool `bson:"communication,omitempty" json:"communication,omitempty"`
	Marketing     *bool `bson:"marketing,omitempty" json:"marketing,omitempty"`
	Social        *bool `bson:"social,omitempty" json:"social,omitempty"`
	Security      *bool `bson:"security,omitempty" json:"security,omitempty"`
}

// PushPrefs controls the push notification channel.
type PushPrefs struct {
	Enabled      *bool  `bson:"enabled,omitempty" json:"enabled,omitempty"`
	Subscription string `bson:"subscription,omitempty" json:"subscription,omitempty"`
}

// BoolPtr returns a pointer to b. Convenience for building preference bundles.
func BoolPtr(b bool) *bool { return &b }

// DefaultNotificationPreferences returns the documented default bundle:
// everything on for in-app, email limited to social and security, push off.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled: BoolPtr(true),
		InApp: &InAppPrefs{
			Enabled: BoolPtr(true),
			Type:    InAppAll,
		},
		Email: &EmailPrefs{
			Enabled:       BoolPtr(true),
			Communication: BoolPtr(false),
			Marketing:     BoolPtr(false),
			Social:        BoolPtr(true),
			Security:      BoolPtr(true),
		},
		Push: &PushPrefs{
			Enabled: BoolPtr(false),
		},
		Mobile: BoolPtr(false),
	}
}

// Merge applies upd onto p with shallow per-top-level-key semantics: a
// top-level key present in upd replaces that key wholesale, keys absent in
// upd are left untouched. The result is normalized.
func (p NotificationPreferences) Merge(upd NotificationPreferences) NotificationPreferences {
	out := p
	if upd.Enabled != nil {
		out.Enabled = upd.Enabled
	}
	if upd.InApp != nil {
		in := *upd.InApp
		out.InApp = &in
	}
	if upd.Email != nil {
		em := *upd.Email
		out.Email = &em
	}
	if upd.Push != nil {
		pu := *upd.Push
		out.Push = &pu
	}
	if upd.Mobile != nil {
		out.Mobile = upd.Mobile
	}
	out.Normalize()
	return out
}

// Normalize enforces invariants that must hold on every persisted or returned
// bundle. Currently that is the pinned security email flag.
func (p *NotificationPreferences) Normalize() {
	if p.Email != nil {
		p.Email.Security = BoolPtr(true)
	}
}

// MasterEnabled reports the master notification switch. Absent counts as
// disabled, matching the advisory resolver; callers that only honor a literal
// false must check Enabled directly.
func (p NotificationPreferences) MasterEnabled() bool {
	return p.Enabled != nil && *p.Enabled
}

// ExplicitlyDisabled reports whether the master switch is a literal false.
// Absent is not explicit: scope-expansion eligibility checks only reject on
// an explicit opt-out.
func (p NotificationPreferences) ExplicitlyDisabled() bool {
	return p.Enabled != nil && !*p.Enabled
}
