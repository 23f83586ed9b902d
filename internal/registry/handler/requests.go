package handler

import (
	"net/http"
	"strings"

	"amlguard/internal/registry/models"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/httputil"
)

// filterFromQuery builds an EntityFilter from list query parameters:
// q, type, status, risk_level, expiring_within_days, registered_from,
// registered_to, min_compliance_score.
func filterFromQuery(r *http.Request) (models.EntityFilter, error) {
	f := models.EntityFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}

	for _, raw := range httputil.QueryList(r, "type") {
		t, ok := models.ParseEntityType(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown entity type %q", raw)
		}
		f.Types = append(f.Types, t)
	}
	for _, raw := range httputil.QueryList(r, "status") {
		st, ok := models.ParseStatus(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", raw)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, raw := range httputil.QueryList(r, "risk_level") {
		rl, ok := models.ParseRiskLevel(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown risk level %q", raw)
		}
		f.RiskLevels = append(f.RiskLevels, rl)
	}

	days, err := httputil.QueryInt(r, "expiring_within_days")
	if err != nil {
		return f, err
	}
	if days != nil {
		f.ExpiringWithinDays = *days
	}
	if f.RegisteredFrom, err = httputil.QueryTime(r, "registered_from"); err != nil {
		return f, err
	}
	if f.RegisteredTo, err = httputil.QueryTime(r, "registered_to"); err != nil {
		return f, err
	}
	if f.MinComplianceScore, err = httputil.QueryInt(r, "min_compliance_score"); err != nil {
		return f, err
	}
	return f, nil
}
