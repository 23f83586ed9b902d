package handler

import (
	"net/http"
	"strings"

	"amlguard/internal/security/models"
	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/httputil"
)

// ruleFilterFromQuery reads q, action and enabled.
func ruleFilterFromQuery(r *http.Request) (models.RuleFilter, error) {
	f := models.RuleFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	for _, raw := range httputil.QueryList(r, "action") {
		a := models.RuleAction(strings.ToLower(raw))
		if a != models.ActionAllow && a != models.ActionDeny {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown rule action %q", raw)
		}
		f.Actions = append(f.Actions, a)
	}
	var err error
	f.Enabled, err = httputil.QueryBool(r, "enabled")
	return f, err
}

// ipFilterFromQuery reads q, list, active and automatic.
func ipFilterFromQuery(r *http.Request) (models.IPFilter, error) {
	f := models.IPFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	for _, raw := range httputil.QueryList(r, "list") {
		k, ok := models.ParseListKind(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown list %q", raw)
		}
		f.Lists = append(f.Lists, k)
	}
	var err error
	if f.Active, err = httputil.QueryBool(r, "active"); err != nil {
		return f, err
	}
	if f.Automatic, err = httputil.QueryBool(r, "automatic"); err != nil {
		return f, err
	}
	return f, nil
}

// alertFilterFromQuery reads q, severity, resolved, from and to.
func alertFilterFromQuery(r *http.Request) (models.AlertFilter, error) {
	f := models.AlertFilter{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	for _, raw := range httputil.QueryList(r, "severity") {
		sev, ok := models.ParseAlertSeverity(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown severity %q", raw)
		}
		f.Severities = append(f.Severities, sev)
	}
	var err error
	if f.Resolved, err = httputil.QueryBool(r, "resolved"); err != nil {
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

// eventFilterFromQuery reads type, ip, from and to.
func eventFilterFromQuery(r *http.Request) (models.EventFilter, error) {
	f := models.EventFilter{IP: strings.TrimSpace(r.URL.Query().Get("ip"))}
	for _, raw := range httputil.QueryList(r, "type") {
		t, ok := models.ParseEventType(raw)
		if !ok {
			return f, dErrors.Newf(dErrors.CodeBadRequest, "unknown event type %q", raw)
		}
		f.Types = append(f.Types, t)
	}
	var err error
	if f.From, err = httputil.QueryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = httputil.QueryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}
