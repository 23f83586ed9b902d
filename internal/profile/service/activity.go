package service

import (
	"context"

	"amlguard/internal/profile/models"
	"amlguard/pkg/query"
)

// Activity pages through the actor's own activity log, newest first.
func (s *Service) Activity(ctx context.Context, page, pageSize int) (query.Page[models.ActivityEvent], error) {
	p, err := s.EnsureProfile(ctx)
	if err != nil {
		return query.Page[models.ActivityEvent]{}, err
	}
	return query.Paginate(p.Activity, page, pageSize), nil
}
