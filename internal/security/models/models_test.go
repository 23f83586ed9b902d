package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/query"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var actor = domain.Actor{ID: "admin-1", Name: "Amara Admin", Role: domain.RoleAdmin}

func TestCanonicalSource(t *testing.T) {
	cases := map[string]string{
		" 10.0.0.5 ":        "10.0.0.5",
		"::ffff:192.0.2.1":  "192.0.2.1",
		"203.0.113.77/24":   "203.0.113.0/24",
		"2001:db8::1":       "2001:db8::1",
		"not-an-address":    "not-an-address",
		"2001:DB8:0:0::/32": "2001:db8::/32",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalSource(in), in)
	}
}

func TestCovers(t *testing.T) {
	prefix := &IPEntry{IP: "198.51.100.0/24"}
	assert.True(t, prefix.Covers("198.51.100.9"))
	assert.False(t, prefix.Covers("198.51.101.9"))
	assert.False(t, prefix.Covers("garbage"))

	single := &IPEntry{IP: "10.0.0.5"}
	assert.True(t, single.Covers("10.0.0.5"))
	assert.False(t, single.Covers("10.0.0.6"))
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"10.0.0.5", "10.0.0.5", true},
		{"10.0.0.0/24", "10.0.0.5", true},
		{"10.0.0.5", "10.0.0.0/24", true},
		{"10.0.0.0/16", "10.0.7.0/24", true},
		{"10.0.0.0/24", "10.0.1.5", false},
		{"10.0.0.5", "2001:db8::5", false},
		{"garbage", "10.0.0.5", false},
	}
	for _, tc := range cases {
		a, b := &IPEntry{IP: tc.a}, &IPEntry{IP: tc.b}
		assert.Equal(t, tc.want, a.Overlaps(b), "%s vs %s", tc.a, tc.b)
	}
}

func TestActiveAtHonoursExpiry(t *testing.T) {
	exp := now.Add(time.Hour)
	e := &IPEntry{Active: true, ExpiresAt: &exp}
	assert.True(t, e.ActiveAt(now))
	assert.False(t, e.ActiveAt(exp))

	assert.True(t, e.Deactivate("admin", now))
	assert.False(t, e.Deactivate("admin", now))
	assert.False(t, e.ActiveAt(now))
}

func TestNewRule(t *testing.T) {
	req := CreateRuleRequest{Name: " web ", Action: "ALLOW", Source: "10.0.0.1", Priority: 7}
	require.NoError(t, req.Validate())

	r, err := NewRule("r-1", req, actor, now, "h-1")
	require.NoError(t, err)
	assert.Equal(t, "web", r.Name)
	assert.Equal(t, ActionAllow, r.Action)
	assert.Equal(t, ProtocolAny, r.Protocol)
	assert.True(t, r.Enabled)
	require.Len(t, r.History, 1)
	assert.Equal(t, "created", r.History[0].Action)
	assert.Equal(t, "Amara Admin", r.UpdatedBy)
}

func TestNewRuleRejectsBadPriority(t *testing.T) {
	_, err := NewRule("r-1", CreateRuleRequest{Name: "x", Action: ActionDeny, Protocol: ProtocolTCP, Source: "10.0.0.1"}, actor, now, "h-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestConflictsWith(t *testing.T) {
	a := &Rule{ID: "a", Priority: 1, Enabled: true}
	b := &Rule{ID: "b", Priority: 1, Enabled: true}
	assert.True(t, a.ConflictsWith(b))
	assert.False(t, a.ConflictsWith(a))
	b.Enabled = false
	assert.False(t, a.ConflictsWith(b))
}

func TestApplyUpdateReportsChangedFields(t *testing.T) {
	r := &Rule{Name: "web", Port: 80, Priority: 1}
	port := 443
	name := "web"
	changed := r.ApplyUpdate(UpdateRuleRequest{Port: &port, Name: &name})
	assert.Equal(t, []string{"port"}, changed)
	assert.Equal(t, 443, r.Port)
}

func TestCloneIsDeep(t *testing.T) {
	r := &Rule{History: []HistoryEvent{{ID: "h-1"}}}
	c := r.Clone()
	c.History[0].ID = "changed"
	assert.Equal(t, "h-1", r.History[0].ID)

	at := now
	a := &Alert{ResolvedAt: &at}
	ac := a.Clone()
	*ac.ResolvedAt = now.Add(time.Hour)
	assert.Equal(t, now, *a.ResolvedAt)
}

func TestAlertFilter(t *testing.T) {
	resolved := true
	alerts := []*Alert{
		{ID: "1", Severity: SeverityHigh, Title: "Brute force", CreatedAt: now},
		{ID: "2", Severity: SeverityLow, Title: "Export", Resolved: true, CreatedAt: now.Add(-48 * time.Hour)},
	}
	from := now.Add(-time.Hour)

	got := query.Filter(alerts, AlertFilter{From: &from}.Predicates()...)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = query.Filter(alerts, AlertFilter{Resolved: &resolved, Search: "EXP"}.Predicates()...)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestComputeStatsBreakdownsSumToTotals(t *testing.T) {
	rules := []*Rule{{Action: ActionAllow, Enabled: true}, {Action: ActionDeny}, {Action: ActionDeny, Enabled: true}}
	alerts := []*Alert{{Severity: SeverityLow}, {Severity: SeverityCritical, Resolved: true}}
	events := []*Event{
		{Type: EventLoginFailed, OccurredAt: now},
		{Type: EventLoginFailed, OccurredAt: now.Add(-24 * time.Hour)},
		{Type: EventAccessDenied, OccurredAt: now.Add(-25 * time.Hour)},
	}
	stats := ComputeStats(rules, nil, alerts, events, now)

	var byAction, bySeverity int
	for _, n := range stats.RulesByAction {
		byAction += n
	}
	for _, n := range stats.AlertsBySeverity {
		bySeverity += n
	}
	assert.Equal(t, stats.TotalRules, byAction)
	assert.Equal(t, len(alerts), bySeverity)
	assert.Equal(t, 2, stats.EnabledRules)
	assert.Equal(t, 1, stats.UnresolvedAlerts)
	assert.Equal(t, 1, stats.EventsLast24h, "the event at now-24h counts, the one at now does not")
	assert.Equal(t, 1, stats.FailedLoginsLast24h)
	assert.Contains(t, stats.AlertsBySeverity, SeverityMedium)
}

func TestComputeStatsWindowBounds(t *testing.T) {
	at := func(ts time.Time) *Event { return &Event{Type: EventLoginFailed, OccurredAt: ts} }
	events := []*Event{
		at(now.Add(-24 * time.Hour)),
		at(now.Add(-time.Nanosecond)),
		at(now),
		at(now.Add(-24*time.Hour - time.Nanosecond)),
	}
	stats := ComputeStats(nil, nil, nil, events, now)

	assert.Equal(t, 2, stats.EventsLast24h)
	assert.Equal(t, 2, stats.FailedLoginsLast24h)
}
