package handler

import (
	"net/http"
	"slices"
	"strings"

	"amlguard/internal/audittrail/models"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/httputil"
)

// filterFromQuery reads q, category, severity, outcome, actor, from and to.
func filterFromQuery(r *http.Request) (models.Filter, error) {
	f := models.Filter{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Actors: httputil.QueryList(r, "actor"),
	}
	var err error
	if f.Categories, err = parseList(r, "category", audit.Categories); err != nil {
		return f, err
	}
	if f.Severities, err = parseList(r, "severity", audit.Severities); err != nil {
		return f, err
	}
	if f.Outcomes, err = parseList(r, "outcome", []audit.Outcome{audit.OutcomeSuccess, audit.OutcomeFailure}); err != nil {
		return f, err
	}
	if f.From, err = httputil.QueryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = httputil.QueryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func parseList[T ~string](r *http.Request, key string, known []T) ([]T, error) {
	var out []T
	for _, raw := range httputil.QueryList(r, key) {
		v := T(strings.ToLower(raw))
		if !slices.Contains(known, v) {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown %s %q", key, raw)
		}
		out = append(out, v)
	}
	return out, nil
}
