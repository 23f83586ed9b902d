package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"amlguard/internal/profile/models"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/sentinel"
	"amlguard/pkg/requestcontext"
)

func (s *Service) UpdatePersonal(ctx context.Context, req models.UpdatePersonalRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, "personal", audit.EventProfileUpdated, func(p *models.Profile) []string {
		var changed []string
		p.Personal, changed = p.Personal.Merge(req)
		return changed
	})
}

func (s *Service) UpdatePreferences(ctx context.Context, req models.UpdatePreferencesRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, "preferences", audit.EventPreferencesUpdated, func(p *models.Profile) []string {
		var changed []string
		p.Preferences, changed = p.Preferences.Merge(req)
		return changed
	})
}

func (s *Service) UpdateNotifications(ctx context.Context, req models.UpdateNotificationsRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, "notifications", audit.EventPreferencesUpdated, func(p *models.Profile) []string {
		var changed []string
		p.Notifications, changed = p.Notifications.Merge(req)
		return changed
	})
}

func (s *Service) UpdateSecurity(ctx context.Context, req models.UpdateSecurityRequest) (*models.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.update(ctx, "security", audit.EventSecuritySettings, func(p *models.Profile) []string {
		var changed []string
		p.Security, changed = p.Security.Merge(req)
		return changed
	})
}

// update merges one section into the actor's profile. A request that changes
// nothing returns the profile as is, without an activity or audit entry.
func (s *Service) update(ctx context.Context, section string, event audit.AuditEvent, apply func(*models.Profile) []string) (*models.Profile, error) {
	ctx, span := tracer.Start(ctx, "profile.Update")
	defer span.End()
	span.SetAttributes(attribute.String("profile.section", section))

	current, err := s.EnsureProfile(ctx)
	if err != nil {
		return nil, err
	}
	actor := requestcontext.Actor(ctx)

	var details string
	updated, err := s.store.Execute(ctx, current.ID, func(p *models.Profile) error {
		changed := apply(p)
		if len(changed) == 0 {
			return errNoChanges
		}
		details = models.Describe(section, changed)
		p.Record(s.activity(ctx, event, details), actor)
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoChanges) {
			return current, nil
		}
		return nil, s.translate(span, err, "failed to update profile")
	}

	if s.metrics != nil {
		s.metrics.IncrementUpdate(section)
	}
	s.logAudit(ctx, event, updated.ID, details, audit.OutcomeSuccess)
	return updated, nil
}

// ChangePassword verifies the current password, when one is set, and stores
// a bcrypt hash of the new one. A wrong current password is audited as a
// failure.
func (s *Service) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "profile.ChangePassword")
	defer span.End()

	if err := req.Validate(); err != nil {
		return err
	}
	current, err := s.EnsureProfile(ctx)
	if err != nil {
		return err
	}
	verified := current.Security.PasswordHash
	if verified != "" {
		if err := s.hasher.Verify(req.Current, verified); err != nil {
			s.passwordOutcome("failure")
			s.logAudit(ctx, audit.EventPasswordChanged, current.ID, "current password rejected", audit.OutcomeFailure)
			return s.translate(span, err, "failed to verify password")
		}
	}
	hash, err := s.hasher.Hash(req.Next)
	if err != nil {
		return s.translate(span, err, "failed to hash password")
	}

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)
	_, err = s.store.Execute(ctx, current.ID, func(p *models.Profile) error {
		if p.Security.PasswordHash != verified {
			return fmt.Errorf("password changed concurrently: %w", sentinel.ErrConflict)
		}
		p.Security.PasswordHash = hash
		p.Security.PasswordChangedAt = &now
		p.Record(s.activity(ctx, audit.EventPasswordChanged, "password changed"), actor)
		return nil
	})
	if err != nil {
		return s.translate(span, err, "failed to change password")
	}
	s.passwordOutcome("success")
	s.logAudit(ctx, audit.EventPasswordChanged, current.ID, "password changed", audit.OutcomeSuccess)
	return nil
}

func (s *Service) passwordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementPasswordChange(outcome)
	}
}
