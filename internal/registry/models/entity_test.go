package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
)

var (
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testActor = domain.Actor{ID: "off-1", Name: "Olu Officer", Role: domain.RoleOfficer}
)

func ptr[T any](v T) *T { return &v }

func validRequest() RegisterEntityRequest {
	return RegisterEntityRequest{
		RegistrationNumber: " reg-001 ",
		Name:               "Harbor Bank",
		Type:               "bank",
		ComplianceScore:    ptr(80),
		Contact:            Contact{Name: "Ada Obi", Email: "ADA@harbor.example"},
		License: License{
			Number:    "LIC-1",
			IssuedAt:  ptr(testNow.AddDate(-1, 0, 0)),
			ExpiresAt: ptr(testNow.AddDate(1, 0, 0)),
		},
	}
}

func newTestEntity(t *testing.T) *Entity {
	t.Helper()
	req := validRequest()
	require.NoError(t, req.Validate())
	e, err := NewEntity("ent-1", req, testActor, testNow, "h-1")
	require.NoError(t, err)
	return e
}

func TestRegisterRequestNormalizes(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate())

	assert.Equal(t, "REG-001", req.RegistrationNumber)
	assert.Equal(t, TypeBank, req.Type)
	assert.Equal(t, "ada@harbor.example", req.Contact.Email)
}

func TestRegisterRequestValidation(t *testing.T) {
	cases := map[string]func(*RegisterEntityRequest){
		"blank name":          func(r *RegisterEntityRequest) { r.Name = "  " },
		"unknown type":        func(r *RegisterEntityRequest) { r.Type = "casino" },
		"score out of range":  func(r *RegisterEntityRequest) { r.ComplianceScore = ptr(101) },
		"blank license":       func(r *RegisterEntityRequest) { r.License.Number = "" },
		"unknown risk":        func(r *RegisterEntityRequest) { r.RiskLevel = "extreme" },
		"expiry before issue": func(r *RegisterEntityRequest) { r.License.ExpiresAt = ptr(testNow.AddDate(-2, 0, 0)) },
		"bad email":           func(r *RegisterEntityRequest) { r.Contact.Email = "not-an-email" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestNewEntityStartsPendingWithOneHistoryEvent(t *testing.T) {
	e := newTestEntity(t)

	assert.Equal(t, StatusPending, e.Status)
	require.Len(t, e.History, 1)
	assert.Equal(t, ActionRegistered, e.History[0].Action)
	assert.Equal(t, "Olu Officer", e.History[0].Actor)
	assert.Equal(t, testNow, e.UpdatedAt)
	assert.Equal(t, "Olu Officer", e.UpdatedBy)
	assert.NotNil(t, e.Notes)
}

func TestNewEntityRejectsInvariantViolations(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate())
	req.ComplianceScore = ptr(-1)

	_, err := NewEntity("ent-1", req, testActor, testNow, "h-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestTransitionTable(t *testing.T) {
	transitions := []Transition{Approve, Suspend, Reinstate, Expire, Renew, Revoke}
	allowed := map[Status][]HistoryAction{
		StatusPending:   {ActionApproved},
		StatusActive:    {ActionSuspended, ActionExpired, ActionRevoked},
		StatusSuspended: {ActionReinstated, ActionRevoked},
		StatusExpired:   {ActionRenewed, ActionRevoked},
		StatusRevoked:   {},
	}

	for _, from := range Statuses {
		for _, tr := range transitions {
			e := newTestEntity(t)
			e.Status = from
			err := e.CanApply(tr)

			want := false
			for _, a := range allowed[from] {
				if a == tr.Action {
					want = true
				}
			}
			if want {
				assert.NoError(t, err, "%s from %s", tr.Action, from)
				continue
			}
			require.Error(t, err, "%s from %s", tr.Action, from)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		}
	}
}

func TestApplyTransitionRecordsFromAndTo(t *testing.T) {
	e := newTestEntity(t)
	later := testNow.Add(time.Hour)

	e.ApplyTransition(Approve, "", "h-2", testActor, later)

	assert.Equal(t, StatusActive, e.Status)
	require.Len(t, e.History, 2)
	last := e.History[1]
	assert.Equal(t, StatusPending, last.FromStatus)
	assert.Equal(t, StatusActive, last.ToStatus)
	assert.Equal(t, later, last.OccurredAt)
	assert.Equal(t, later, e.UpdatedAt)
}

func TestRevokedEntitiesCannotBeModified(t *testing.T) {
	e := newTestEntity(t)
	e.Status = StatusRevoked

	err := e.CanModify()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestApplyUpdateKeepsUntouchedNestedFields(t *testing.T) {
	e := newTestEntity(t)
	originalExpiry := *e.License.ExpiresAt

	changed := e.ApplyUpdate(UpdateEntityRequest{
		Contact: &ContactPatch{Phone: ptr("+254700000000")},
		License: &LicensePatch{Category: ptr("Tier 1")},
	})

	assert.ElementsMatch(t, []string{"contact", "license"}, changed)
	assert.Equal(t, "Ada Obi", e.Contact.Name)
	assert.Equal(t, "ada@harbor.example", e.Contact.Email)
	assert.Equal(t, "+254700000000", e.Contact.Phone)
	assert.Equal(t, "LIC-1", e.License.Number)
	assert.Equal(t, "Tier 1", e.License.Category)
	assert.True(t, originalExpiry.Equal(*e.License.ExpiresAt))
}

func TestApplyUpdateReportsNothingForIdenticalValues(t *testing.T) {
	e := newTestEntity(t)

	changed := e.ApplyUpdate(UpdateEntityRequest{
		Name:            ptr("Harbor Bank"),
		ComplianceScore: ptr(80),
		Contact:         &ContactPatch{Name: ptr("Ada Obi")},
	})

	assert.Empty(t, changed)
}

func TestUpdateRequestRequiresAField(t *testing.T) {
	req := UpdateEntityRequest{}
	err := req.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestHistoryNewestFirstDoesNotReorderStorage(t *testing.T) {
	e := newTestEntity(t)
	e.ApplyTransition(Approve, "", "h-2", testActor, testNow.Add(time.Minute))
	e.ApplyTransition(Suspend, "late filing", "h-3", testActor, testNow.Add(2*time.Minute))

	display := e.HistoryNewestFirst()

	require.Len(t, display, 3)
	assert.Equal(t, "h-3", display[0].ID)
	assert.Equal(t, "h-1", display[2].ID)
	assert.Equal(t, "h-1", e.History[0].ID)
}

func TestCloneIsDeep(t *testing.T) {
	e := newTestEntity(t)
	c := e.Clone()

	*c.ComplianceScore = 10
	*c.License.ExpiresAt = testNow
	c.History[0].Details = "changed"
	c.Notes = append(c.Notes, Note{ID: "n-1"})

	assert.Equal(t, 80, *e.ComplianceScore)
	assert.False(t, e.License.ExpiresAt.Equal(testNow))
	assert.Empty(t, e.History[0].Details)
	assert.Empty(t, e.Notes)
}

func TestLicenseLapsed(t *testing.T) {
	e := newTestEntity(t)
	e.Status = StatusActive
	assert.False(t, e.LicenseLapsed(testNow))

	e.License.ExpiresAt = ptr(testNow.Add(-time.Hour))
	assert.True(t, e.LicenseLapsed(testNow))

	e.Status = StatusSuspended
	assert.False(t, e.LicenseLapsed(testNow))
}
