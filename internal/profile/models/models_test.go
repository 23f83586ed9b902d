package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func TestPersonalMergeReportsOnlyRealChanges(t *testing.T) {
	before := Personal{FullName: "Olu Officer", Email: "olu@example.org"}
	after, changed := before.Merge(UpdatePersonalRequest{
		FullName: ptr("Olu Officer"),
		Phone:    ptr("+2348000000000"),
	})
	assert.Equal(t, []string{"phone"}, changed)
	assert.Equal(t, "+2348000000000", after.Phone)
	assert.Empty(t, before.Phone, "merge returns a new value")
}

func TestNotificationsMerge(t *testing.T) {
	n, changed := DefaultNotifications().Merge(UpdateNotificationsRequest{SMS: ptr(true), Email: ptr(true)})
	assert.Equal(t, []string{"sms"}, changed)
	assert.True(t, n.SMS)
}

func TestSecurityMergeKeepsPasswordHash(t *testing.T) {
	s := SecuritySettings{PasswordHash: "hash", SessionTimeoutMinutes: 30}
	out, changed := s.Merge(UpdateSecurityRequest{TwoFactorEnabled: ptr(true), SessionTimeoutMinutes: ptr(60)})
	assert.Equal(t, []string{"two_factor_enabled", "session_timeout_minutes"}, changed)
	assert.Equal(t, "hash", out.PasswordHash)
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  interface{ Validate() error }
		ok   bool
	}{
		{"valid preferences", &UpdatePreferencesRequest{Language: ptr(" FR "), Timezone: ptr("UTC"), Theme: ptr("Dark")}, true},
		{"unknown language", &UpdatePreferencesRequest{Language: ptr("de")}, false},
		{"unknown timezone", &UpdatePreferencesRequest{Timezone: ptr("Mars/Olympus")}, false},
		{"bad email", &UpdatePersonalRequest{Email: ptr("not-an-email")}, false},
		{"blank name", &UpdatePersonalRequest{FullName: ptr("   ")}, false},
		{"timeout too short", &UpdateSecurityRequest{SessionTimeoutMinutes: ptr(1)}, false},
		{"short password", &ChangePasswordRequest{Next: "short", Confirm: "short"}, false},
		{"mismatched confirmation", &ChangePasswordRequest{Next: "long enough password", Confirm: "long enough passw0rd"}, false},
		{"same as current", &ChangePasswordRequest{Current: "long enough password", Next: "long enough password", Confirm: "long enough password"}, false},
		{"valid password", &ChangePasswordRequest{Current: "old password 1", Next: "long enough password", Confirm: "long enough password"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func TestRecordCapsActivity(t *testing.T) {
	p := &Profile{ID: "u1"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range MaxActivity + 5 {
		p.Record(ActivityEvent{ID: string(rune('a' + i%26)), At: at.Add(time.Duration(i) * time.Minute)}, domain.Actor{ID: "u1", Name: "U One"})
	}
	require.Len(t, p.Activity, MaxActivity)
	assert.Equal(t, at.Add(time.Duration(MaxActivity+4)*time.Minute), p.Activity[0].At, "newest first")
	assert.Equal(t, "U One", p.UpdatedBy)
}

func TestCloneIsDeep(t *testing.T) {
	at := time.Now()
	p := &Profile{ID: "u1", Activity: []ActivityEvent{{ID: "1"}}, Security: SecuritySettings{PasswordChangedAt: &at}}
	c := p.Clone()
	c.Activity[0].ID = "changed"
	*c.Security.PasswordChangedAt = at.Add(time.Hour)
	assert.Equal(t, "1", p.Activity[0].ID)
	assert.Equal(t, at, *p.Security.PasswordChangedAt)
}

func TestNameFromEmail(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", NameFromEmail("ada.lovelace@example.org"))
	assert.Equal(t, "Grace Hopper", NameFromEmail("grace_m-hopper@navy.mil"))
	assert.Equal(t, "Olu", NameFromEmail("olu@example.org"))
	assert.Equal(t, "Officer", NameFromEmail("@example.org"))
}
