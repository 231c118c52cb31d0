// internal/app/notify/prefs/prefs.go

// Package prefs resolves whether a user should receive a notification on a
// given channel, from the preference bundle embedded on the user document.
//
// Category detection works by substring matching on the free-form
// notification type tag. The matching rules are deliberately concentrated in
// Classify so the policy can be tested and swapped without touching callers.
//
// ShouldNotify is advisory: the scope-expansion fan-out paths check only the
// master switch (NotificationPreferences.ExplicitlyDisabled) rather than
// calling it. The two checks differ for a user with no preference bundle:
// ShouldNotify declines, the fan-out check allows. Callers that want the
// strict answer use ShouldNotify; the fan-out paths keep the permissive
// master-switch check.
package prefs

import (
	"strings"

	"github.com/lgsf/teamhub/internal/domain/models"
)

// Channel is a delivery channel for notifications.
type Channel string

// Delivery channels.
const (
	ChannelInApp Channel = "inApp"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Category is a notification category detected from the type tag.
type Category string

// Categories, in match-precedence order.
const (
	CategorySecurity      Category = "security"
	CategoryCommunication Category = "communication"
	CategoryMarketing     Category = "marketing"
	CategorySocial        Category = "social"
	CategoryGeneral       Category = "general"
)

// Classify maps a free-form notification type tag to a Category using
// case-sensitive substring matching. First match wins, in the order below.
func Classify(notifType string) Category {
	switch {
	case strings.Contains(notifType, "security"):
		return CategorySecurity
	case strings.Contains(notifType, "communication"), strings.Contains(notifType, "message"):
		return CategoryCommunication
	case strings.Contains(notifType, "marketing"), strings.Contains(notifType, "product"):
		return CategoryMarketing
	case strings.Contains(notifType, "social"), strings.Contains(notifType, "follow"):
		return CategorySocial
	default:
		return CategoryGeneral
	}
}

// IsMentionLike reports whether the type tag counts as a mention for the
// in-app "mentions" mode: anything containing "mention" or "assigned".
func IsMentionLike(notifType string) bool {
	return strings.Contains(notifType, "mention") || strings.Contains(notifType, "assigned")
}

// ShouldNotify reports whether u should receive a notification of notifType
// on the given channel.
//
// The master switch cuts every channel. Per channel:
//
//	inApp: off when disabled or type "none"; "mentions" passes only
//	       mention-like tags; "all" (or anything else) passes everything.
//	email: security always passes; communication and marketing default to
//	       opt-in; social defaults to opt-out-able true; unmatched tags pass.
//	push:  passes only when push is explicitly enabled.
//
// Unknown channels never pass.
func ShouldNotify(u *models.User, channel Channel, notifType string) bool {
	p := u.Preferences.Notifications
	if !p.MasterEnabled() {
		return false
	}

	switch channel {
	case ChannelInApp:
		return shouldInApp(p.InApp, notifType)
	case ChannelEmail:
		return shouldEmail(p.Email, notifType)
	case ChannelPush:
		return p.Push != nil && p.Push.Enabled != nil && *p.Push.Enabled
	default:
		return false
	}
}

func shouldInApp(in *models.InAppPrefs, notifType string) bool {
	if in == nil {
		// Documented default: enabled, type "all".
		return true
	}
	if in.Enabled != nil && !*in.Enabled {
		return false
	}
	switch in.Type {
	case models.InAppNone:
		return false
	case models.InAppMentions:
		return IsMentionLike(notifType)
	default:
		return true
	}
}

func shouldEmail(em *models.EmailPrefs, notifType string) bool {
	if em != nil && em.Enabled != nil && !*em.Enabled {
		return false
	}
	switch Classify(notifType) {
	case CategorySecurity:
		// Pinned: security email cannot be opted out of.
		return true
	case CategoryCommunication:
		return em != nil && em.Communication != nil && *em.Communication
	case CategoryMarketing:
		return em != nil && em.Marketing != nil && *em.Marketing
	case CategorySocial:
		// Defaults to true; only an explicit false opts out.
		return em == nil || em.Social == nil || *em.Social
	default:
		return true
	}
}
