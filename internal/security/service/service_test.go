package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"amlguard/internal/security/models"
	"amlguard/internal/security/service/mocks"
	"amlguard/internal/security/store/alerts"
	"amlguard/internal/security/store/events"
	"amlguard/internal/security/store/iplist"
	"amlguard/internal/security/store/rules"
	"amlguard/internal/security/store/window"
	"amlguard/pkg/domain"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/requestcontext"
	"amlguard/pkg/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	stores    Stores
	publisher *mocks.MockAuditPublisher
	emitted   []audit.Event
	service   *Service
	ctx       context.Context
	seq       int
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.stores = Stores{
		Rules:   rules.New(),
		IPLists: iplist.New(),
		Alerts:  alerts.New(),
		Events:  events.New(),
	}
	s.emitted = nil
	s.publisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.publisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.emitted = append(s.emitted, e)
		return nil
	}).AnyTimes()
	s.seq = 0
	svc, err := New(s.stores, window.NewInMemory(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.publisher),
		WithEscalation(5, 15*time.Minute),
		WithIDGenerator(func() string {
			s.seq++
			return fmt.Sprintf("id-%03d", s.seq)
		}),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = testutil.ActorContext(testutil.Admin, testNow)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func ptr[T any](v T) *T { return &v }

func ruleRequest(name string, priority int) models.CreateRuleRequest {
	return models.CreateRuleRequest{
		Name:     name,
		Action:   models.ActionDeny,
		Source:   "192.0.2.0/24",
		Port:     443,
		Protocol: models.ProtocolTCP,
		Priority: priority,
	}
}

func (s *ServiceSuite) rules() []*models.Rule {
	all, err := s.stores.Rules.ListAll(context.Background())
	s.Require().NoError(err)
	return all
}

func (s *ServiceSuite) entries() []*models.IPEntry {
	all, err := s.stores.IPLists.ListAll(context.Background())
	s.Require().NoError(err)
	return all
}

func (s *ServiceSuite) activeEntries(list models.ListKind, ip string) []*models.IPEntry {
	var out []*models.IPEntry
	for _, e := range s.entries() {
		if e.List == list && e.IP == ip && e.ActiveAt(testNow) {
			out = append(out, e)
		}
	}
	return out
}

func (s *ServiceSuite) TestCreateRule() {
	s.Run("defaults to enabled with protocol any", func() {
		req := ruleRequest("block scanners", 10)
		req.Protocol = ""
		rule, err := s.service.CreateRule(s.ctx, req)
		s.Require().NoError(err)
		s.True(rule.Enabled)
		s.Equal(models.ProtocolAny, rule.Protocol)
		s.Equal("Amara Admin", rule.UpdatedBy)
		s.Len(rule.History, 1)
	})

	s.Run("enabled priority clash conflicts and rule count is unchanged", func() {
		_, err := s.service.CreateRule(s.ctx, ruleRequest("first", 100))
		s.Require().NoError(err)
		before := s.rules()

		_, err = s.service.CreateRule(s.ctx, ruleRequest("second", 100))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(before, s.rules())
	})

	s.Run("disabled rule may share a priority", func() {
		req := ruleRequest("dormant", 100)
		req.Enabled = ptr(false)
		rule, err := s.service.CreateRule(s.ctx, req)
		s.Require().NoError(err)
		s.False(rule.Enabled)
	})

	s.Run("invalid source is a validation error", func() {
		req := ruleRequest("bad", 200)
		req.Source = "not-an-ip"
		_, err := s.service.CreateRule(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("priority out of range is a validation error", func() {
		_, err := s.service.CreateRule(s.ctx, ruleRequest("too high", 10001))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing actor is unauthorized", func() {
		_, err := s.service.CreateRule(requestcontext.WithTime(context.Background(), testNow), ruleRequest("anon", 300))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestToggleRule() {
	a, err := s.service.CreateRule(s.ctx, ruleRequest("a", 50))
	s.Require().NoError(err)
	disabled := ruleRequest("b", 50)
	disabled.Enabled = ptr(false)
	b, err := s.service.CreateRule(s.ctx, disabled)
	s.Require().NoError(err)

	s.Run("enabling onto a held priority conflicts", func() {
		_, err := s.service.ToggleRule(s.ctx, b.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		stored, err := s.service.GetRule(s.ctx, b.ID)
		s.Require().NoError(err)
		s.False(stored.Enabled)
		s.Len(stored.History, 1)
	})

	s.Run("each toggle records one history event", func() {
		off, err := s.service.ToggleRule(s.ctx, a.ID)
		s.Require().NoError(err)
		s.False(off.Enabled)
		s.Len(off.History, 2)
		s.Equal("disabled", off.History[1].Action)

		on, err := s.service.ToggleRule(s.ctx, b.ID)
		s.Require().NoError(err)
		s.True(on.Enabled)
		s.Len(on.History, 2)
	})

	s.Run("unknown rule is not found", func() {
		_, err := s.service.ToggleRule(s.ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdateRule() {
	rule, err := s.service.CreateRule(s.ctx, ruleRequest("web", 20))
	s.Require().NoError(err)
	_, err = s.service.CreateRule(s.ctx, ruleRequest("db", 21))
	s.Require().NoError(err)

	s.Run("merges only provided fields", func() {
		updated, err := s.service.UpdateRule(s.ctx, rule.ID, models.UpdateRuleRequest{Port: ptr(8443)})
		s.Require().NoError(err)
		s.Equal(8443, updated.Port)
		s.Equal("web", updated.Name)
		s.Equal("192.0.2.0/24", updated.Source)
		s.Len(updated.History, 2)
	})

	s.Run("moving onto a held priority conflicts", func() {
		_, err := s.service.UpdateRule(s.ctx, rule.ID, models.UpdateRuleRequest{Priority: ptr(21)})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("no-op update records nothing", func() {
		updated, err := s.service.UpdateRule(s.ctx, rule.ID, models.UpdateRuleRequest{Name: ptr("web")})
		s.Require().NoError(err)
		s.Len(updated.History, 2)
	})

	s.Run("empty patch is a validation error", func() {
		_, err := s.service.UpdateRule(s.ctx, rule.ID, models.UpdateRuleRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestListRulesOrdersByPriority() {
	for i, p := range []int{30, 10, 20} {
		_, err := s.service.CreateRule(s.ctx, ruleRequest(fmt.Sprintf("rule-%d", i), p))
		s.Require().NoError(err)
	}
	page, err := s.service.ListRules(s.ctx, models.RuleFilter{}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Items, 3)
	s.Equal([]int{10, 20, 30}, []int{page.Items[0].Priority, page.Items[1].Priority, page.Items[2].Priority})
}

func (s *ServiceSuite) TestMovingAddressFromAllowToDeny() {
	_, err := s.service.AddToList(s.ctx, models.ListAllow, models.AddIPRequest{IP: "10.0.0.5", Reason: "office"})
	s.Require().NoError(err)

	deny, err := s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: "10.0.0.5", Reason: "compromised"})
	s.Require().NoError(err)
	s.Equal(models.ListDeny, deny.List)

	s.Empty(s.activeEntries(models.ListAllow, "10.0.0.5"))
	s.Len(s.activeEntries(models.ListDeny, "10.0.0.5"), 1)

	allowed, err := s.service.IsAllowed(s.ctx, "10.0.0.5")
	s.Require().NoError(err)
	s.False(allowed)
	denied, err := s.service.IsDenied(s.ctx, "10.0.0.5")
	s.Require().NoError(err)
	s.True(denied)
}

func (s *ServiceSuite) TestAddToList() {
	s.Run("same address twice on one list conflicts", func() {
		_, err := s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: "198.51.100.1"})
		s.Require().NoError(err)
		_, err = s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: " 198.51.100.1 "})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("prefix entries cover member addresses", func() {
		_, err := s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: "203.0.113.77/24"})
		s.Require().NoError(err)
		denied, err := s.service.IsDenied(s.ctx, "203.0.113.200")
		s.Require().NoError(err)
		s.True(denied)
	})

	s.Run("past expiry is a validation error", func() {
		_, err := s.service.AddToList(s.ctx, models.ListAllow, models.AddIPRequest{
			IP:        "198.51.100.2",
			ExpiresAt: ptr(testNow.Add(-time.Hour)),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid address is a validation error", func() {
		_, err := s.service.AddToList(s.ctx, models.ListAllow, models.AddIPRequest{IP: "300.1.1.1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRemoveFromListIsIdempotent() {
	entry, err := s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: "198.51.100.9"})
	s.Require().NoError(err)

	removed, err := s.service.RemoveFromList(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.False(removed.Active)
	s.Equal("Amara Admin", removed.DeactivatedBy)

	later := requestcontext.WithTime(s.ctx, testNow.Add(time.Hour))
	again, err := s.service.RemoveFromList(later, entry.ID)
	s.Require().NoError(err)
	s.Equal(removed.DeactivatedAt, again.DeactivatedAt)
	s.Len(s.entries(), 1)

	_, err = s.service.RemoveFromList(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSweepExpired() {
	_, err := s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{
		IP:        "198.51.100.20",
		ExpiresAt: ptr(testNow.Add(time.Hour)),
	})
	s.Require().NoError(err)
	_, err = s.service.AddToList(s.ctx, models.ListDeny, models.AddIPRequest{IP: "198.51.100.21"})
	s.Require().NoError(err)

	n, err := s.service.SweepExpired(requestcontext.WithTime(context.Background(), testNow.Add(2*time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, n)

	for _, e := range s.entries() {
		if e.IP == "198.51.100.20" {
			s.False(e.Active)
			s.Equal(domain.SystemActor.Label(), e.DeactivatedBy)
		} else {
			s.True(e.Active)
		}
	}
}

func (s *ServiceSuite) TestResolveAlert() {
	alert, err := s.service.RaiseAlert(s.ctx, models.RaiseAlertRequest{
		Type:     "manual",
		Severity: "Medium",
		Title:    "Unusual export volume",
	})
	s.Require().NoError(err)
	s.Equal(models.SeverityMedium, alert.Severity)

	resolved, err := s.service.ResolveAlert(s.ctx, alert.ID, models.ResolveAlertRequest{Resolution: "expected month-end run"})
	s.Require().NoError(err)
	s.True(resolved.Resolved)
	s.Equal("Amara Admin", resolved.ResolvedBy)

	s.Run("resolving again is a no-op", func() {
		emitted := len(s.emitted)
		later := requestcontext.WithTime(s.ctx, testNow.Add(time.Hour))
		again, err := s.service.ResolveAlert(later, alert.ID, models.ResolveAlertRequest{Resolution: "different"})
		s.Require().NoError(err)
		s.Equal(resolved, again)
		s.Len(s.emitted, emitted)
	})

	s.Run("unknown alert is not found", func() {
		_, err := s.service.ResolveAlert(s.ctx, "missing", models.ResolveAlertRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) failedLogin(ip string, at time.Time) *models.EventOutcome {
	outcome, err := s.service.RecordEvent(requestcontext.WithTime(s.ctx, at), models.RecordEventRequest{
		Type:     models.EventLoginFailed,
		IP:       ip,
		Username: "mallory",
	})
	s.Require().NoError(err)
	return outcome
}

func (s *ServiceSuite) TestBruteForceEscalation() {
	const ip = "203.0.113.9"
	for i := range 5 {
		outcome := s.failedLogin(ip, testNow.Add(time.Duration(i)*time.Minute))
		s.False(outcome.Escalated, "event %d", i+1)
	}

	sixth := s.failedLogin(ip, testNow.Add(5*time.Minute))
	s.True(sixth.Escalated)
	s.Equal(6, sixth.Failures)
	s.Require().NotNil(sixth.Block)
	s.True(sixth.Block.Automatic)
	s.Require().NotNil(sixth.Alert)
	s.Equal(models.AlertTypeBruteForce, sixth.Alert.Type)

	seventh := s.failedLogin(ip, testNow.Add(6*time.Minute))
	s.False(seventh.Escalated)

	s.Len(s.activeEntries(models.ListDeny, ip), 1)
	page, err := s.service.ListAlerts(s.ctx, models.AlertFilter{}, 1, 10)
	s.Require().NoError(err)
	s.Equal(1, page.Total)

	var autoBlocks int
	for _, e := range s.emitted {
		if e.Action == string(audit.EventIPAutoBlocked) {
			autoBlocks++
		}
	}
	s.Equal(1, autoBlocks)
}

func (s *ServiceSuite) TestEscalationCountsOnlyTrailingWindow() {
	const ip = "203.0.113.10"
	for i := range 5 {
		s.failedLogin(ip, testNow.Add(time.Duration(i)*time.Minute))
	}
	// 20 minutes later the first five have left the 15 minute window.
	outcome := s.failedLogin(ip, testNow.Add(20*time.Minute))
	s.False(outcome.Escalated)
	s.Equal(1, outcome.Failures)
}

func (s *ServiceSuite) TestAllowListedAddressIsExempt() {
	const ip = "192.0.2.44"
	_, err := s.service.AddToList(s.ctx, models.ListAllow, models.AddIPRequest{IP: "192.0.2.0/24", Reason: "head office"})
	s.Require().NoError(err)

	for i := range 10 {
		outcome := s.failedLogin(ip, testNow.Add(time.Duration(i)*time.Second))
		s.False(outcome.Escalated)
	}
	s.Empty(s.activeEntries(models.ListDeny, ip))
}

func (s *ServiceSuite) TestLoginEventsAreAudited() {
	s.failedLogin("198.51.100.30", testNow)

	s.Require().NotEmpty(s.emitted)
	last := s.emitted[len(s.emitted)-1]
	s.Equal(string(audit.EventLoginFailed), last.Action)
	s.Equal(audit.OutcomeFailure, last.Outcome)
	s.Equal("198.51.100.30", last.IP)
	s.Equal("mallory", last.ActorID)
}

func (s *ServiceSuite) TestStats() {
	_, err := s.service.CreateRule(s.ctx, ruleRequest("r1", 1))
	s.Require().NoError(err)
	off := ruleRequest("r2", 2)
	off.Action = models.ActionAllow
	off.Enabled = ptr(false)
	_, err = s.service.CreateRule(s.ctx, off)
	s.Require().NoError(err)
	_, err = s.service.AddToList(s.ctx, models.ListAllow, models.AddIPRequest{IP: "10.1.1.1"})
	s.Require().NoError(err)
	for i := range 6 {
		s.failedLogin("10.2.2.2", testNow.Add(time.Duration(i)*time.Second))
	}
	_, err = s.service.RecordEvent(s.ctx, models.RecordEventRequest{Type: models.EventAccessDenied, IP: "10.3.3.3"})
	s.Require().NoError(err)

	stats, err := s.service.Stats(requestcontext.WithTime(s.ctx, testNow.Add(time.Minute)))
	s.Require().NoError(err)
	s.Equal(2, stats.TotalRules)
	s.Equal(1, stats.EnabledRules)
	s.Equal(1, stats.RulesByAction[models.ActionAllow])
	s.Equal(1, stats.ActiveAllowed)
	s.Equal(1, stats.ActiveDenied)
	s.Equal(1, stats.AutoBlocked)
	s.Equal(1, stats.AlertsBySeverity[models.SeverityHigh])
	s.Equal(0, stats.AlertsBySeverity[models.SeverityCritical])
	s.Equal(1, stats.UnresolvedAlerts)
	s.Equal(7, stats.EventsLast24h)
	s.Equal(6, stats.FailedLoginsLast24h)
}

func (s *ServiceSuite) TestWindowErrorFailsEvaluation() {
	failing := mocks.NewMockFailureWindow(s.ctrl)
	failing.EXPECT().Record(gomock.Any(), "198.51.100.40", testNow).Return(errors.New("redis down"))
	svc, err := New(s.stores, failing, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	_, err = svc.RecordEvent(s.ctx, models.RecordEventRequest{Type: models.EventLoginFailed, IP: "198.51.100.40"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(Stores{}, window.NewInMemory(0))
	if err == nil {
		t.Fatal("expected error for missing stores")
	}
}
