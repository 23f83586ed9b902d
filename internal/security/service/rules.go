package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"amlguard/internal/security/models"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/query"
	"amlguard/pkg/requestcontext"
)

// CreateRule validates and stores a rule. An enabled rule whose priority is
// already held by another enabled rule is rejected and nothing is stored.
func (s *Service) CreateRule(ctx context.Context, req models.CreateRuleRequest) (*models.Rule, error) {
	ctx, span := tracer.Start(ctx, "security.CreateRule")
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rule, err := models.NewRule(s.newID(), req, actor, requestcontext.Now(ctx), s.newID())
	if err != nil {
		return nil, s.translate(span, err, ruleErrors, "failed to build rule")
	}
	if err := s.rules.CreateIfPriorityAvailable(ctx, rule); err != nil {
		return nil, s.translate(span, err, ruleErrors, "failed to create rule")
	}
	span.SetAttributes(attribute.String("rule.id", rule.ID))

	s.logAudit(ctx, audit.EventFirewallRuleCreated,
		"rule_id", rule.ID,
		"details", "created "+string(rule.Action)+" rule for "+rule.Source,
		"priority", rule.Priority,
	)
	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(nil, err, ruleErrors, "failed to load rule")
	}
	return rule, nil
}

// UpdateRule merges the patch into the rule. The priority check is repeated
// against the updated rule. A patch that changes nothing returns the rule
// unchanged.
func (s *Service) UpdateRule(ctx context.Context, id string, req models.UpdateRuleRequest) (*models.Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "security.UpdateRule", trace.WithAttributes(attribute.String("rule.id", id)))
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var changed []string
	rule, err := s.rules.Execute(ctx, id,
		func(r *models.Rule) error {
			trial := r.Clone()
			changed = trial.ApplyUpdate(req)
			if len(changed) == 0 {
				return errNoChanges
			}
			return trial.CheckInvariants()
		},
		func(r *models.Rule) {
			r.ApplyUpdate(req)
			r.RecordUpdate(changed, s.newID(), actor, now)
		},
	)
	if errors.Is(err, errNoChanges) {
		return s.GetRule(ctx, id)
	}
	if err != nil {
		return nil, s.translate(span, err, ruleErrors, "failed to update rule")
	}

	s.logAudit(ctx, audit.EventFirewallRuleUpdated,
		"rule_id", rule.ID,
		"details", rule.History[len(rule.History)-1].Details,
	)
	return rule, nil
}

// ToggleRule flips the rule's enabled flag. Enabling a rule whose priority
// is held by another enabled rule fails with a conflict.
func (s *Service) ToggleRule(ctx context.Context, id string) (*models.Rule, error) {
	ctx, span := tracer.Start(ctx, "security.ToggleRule", trace.WithAttributes(attribute.String("rule.id", id)))
	defer span.End()

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	rule, err := s.rules.Execute(ctx, id,
		func(*models.Rule) error { return nil },
		func(r *models.Rule) { r.Toggle(s.newID(), actor, now) },
	)
	if err != nil {
		return nil, s.translate(span, err, ruleErrors, "failed to toggle rule")
	}

	s.logAudit(ctx, audit.EventFirewallRuleToggled,
		"rule_id", rule.ID,
		"details", rule.History[len(rule.History)-1].Action,
		"enabled", strconv.FormatBool(rule.Enabled),
	)
	return rule, nil
}

// ListRules filters rules and returns one page ordered by priority.
func (s *Service) ListRules(ctx context.Context, filter models.RuleFilter, page, pageSize int) (query.Page[*models.Rule], error) {
	all, err := s.rules.ListAll(ctx)
	if err != nil {
		return query.Page[*models.Rule]{}, s.translate(nil, err, ruleErrors, "failed to list rules")
	}
	matched := query.Filter(all, filter.Predicates()...)
	slices.SortStableFunc(matched, byPriority)
	return query.Paginate(matched, page, pageSize), nil
}

func byPriority(a, b *models.Rule) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
