// Package models defines the officer profile and its settings sub-objects.
package models

import (
	"slices"
	"time"

	"amlguard/pkg/domain"
)

// MaxActivity bounds the per-profile activity log; older entries drop off.
const MaxActivity = 100

// Personal holds contact and position details.
type Personal struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
}

type Preferences struct {
	Language   string `json:"language"`
	Timezone   string `json:"timezone"`
	DateFormat string `json:"date_format"`
	Theme      string `json:"theme"`
}

type Notifications struct {
	Email          bool `json:"email"`
	SMS            bool `json:"sms"`
	SecurityAlerts bool `json:"security_alerts"`
	WeeklyReport   bool `json:"weekly_report"`
}

// SecuritySettings never serializes the password hash.
type SecuritySettings struct {
	TwoFactorEnabled      bool       `json:"two_factor_enabled"`
	SessionTimeoutMinutes int        `json:"session_timeout_minutes"`
	PasswordHash          string     `json:"-"`
	PasswordChangedAt     *time.Time `json:"password_changed_at,omitempty"`
}

// ActivityEvent is one line of the profile's own activity log.
type ActivityEvent struct {
	ID      string    `json:"id"`
	Action  string    `json:"action"`
	Details string    `json:"details"`
	At      time.Time `json:"at"`
	IP      string    `json:"ip,omitempty"`
	Device  string    `json:"device,omitempty"`
}

// Profile belongs to exactly one actor and shares its ID.
type Profile struct {
	ID string `json:"id"`
	Personal
	Role          domain.Role      `json:"role"`
	Preferences   Preferences      `json:"preferences"`
	Notifications Notifications    `json:"notifications"`
	Security      SecuritySettings `json:"security"`
	Activity      []ActivityEvent  `json:"activity"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	UpdatedBy     string           `json:"updated_by"`
}

var (
	Languages   = []string{"en", "fr", "ar", "es"}
	DateFormats = []string{"YYYY-MM-DD", "DD/MM/YYYY", "MM/DD/YYYY"}
	Themes      = []string{"light", "dark", "system"}
)

// DefaultPreferences apply to a first-seen actor.
func DefaultPreferences() Preferences {
	return Preferences{Language: "en", Timezone: "UTC", DateFormat: "YYYY-MM-DD", Theme: "system"}
}

func DefaultNotifications() Notifications {
	return Notifications{Email: true, SecurityAlerts: true}
}

const DefaultSessionTimeout = 30

// Record stamps the profile and prepends an activity entry, keeping at most
// MaxActivity entries.
func (p *Profile) Record(event ActivityEvent, actor domain.Actor) {
	p.UpdatedAt = event.At
	p.UpdatedBy = actor.Label()
	p.Activity = slices.Insert(p.Activity, 0, event)
	if len(p.Activity) > MaxActivity {
		p.Activity = p.Activity[:MaxActivity]
	}
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	out := *p
	out.Activity = slices.Clone(p.Activity)
	if p.Security.PasswordChangedAt != nil {
		t := *p.Security.PasswordChangedAt
		out.Security.PasswordChangedAt = &t
	}
	return &out
}
