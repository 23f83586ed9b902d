package models

import "strings"

// Each Merge applies the non-nil fields of a request and returns the new
// value along with the names of the fields that actually changed.

func (p Personal) Merge(req UpdatePersonalRequest) (Personal, []string) {
	var changed []string
	set(&p.FullName, req.FullName, "full_name", &changed)
	set(&p.Email, req.Email, "email", &changed)
	set(&p.Phone, req.Phone, "phone", &changed)
	set(&p.Position, req.Position, "position", &changed)
	set(&p.Department, req.Department, "department", &changed)
	return p, changed
}

func (p Preferences) Merge(req UpdatePreferencesRequest) (Preferences, []string) {
	var changed []string
	set(&p.Language, req.Language, "language", &changed)
	set(&p.Timezone, req.Timezone, "timezone", &changed)
	set(&p.DateFormat, req.DateFormat, "date_format", &changed)
	set(&p.Theme, req.Theme, "theme", &changed)
	return p, changed
}

func (n Notifications) Merge(req UpdateNotificationsRequest) (Notifications, []string) {
	var changed []string
	set(&n.Email, req.Email, "email", &changed)
	set(&n.SMS, req.SMS, "sms", &changed)
	set(&n.SecurityAlerts, req.SecurityAlerts, "security_alerts", &changed)
	set(&n.WeeklyReport, req.WeeklyReport, "weekly_report", &changed)
	return n, changed
}

func (s SecuritySettings) Merge(req UpdateSecurityRequest) (SecuritySettings, []string) {
	var changed []string
	set(&s.TwoFactorEnabled, req.TwoFactorEnabled, "two_factor_enabled", &changed)
	set(&s.SessionTimeoutMinutes, req.SessionTimeoutMinutes, "session_timeout_minutes", &changed)
	return s, changed
}

func set[T comparable](dst *T, src *T, name string, changed *[]string) {
	if src == nil || *dst == *src {
		return
	}
	*dst = *src
	*changed = append(*changed, name)
}

// Describe renders a change list for activity and audit details.
func Describe(section string, changed []string) string {
	return "updated " + section + ": " + strings.Join(changed, ", ")
}
