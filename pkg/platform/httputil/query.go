package httputil

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	dErrors "amlguard/pkg/domain-errors"
)

// PageParams reads page and page_size. Missing or malformed values fall back
// to zero and are normalized by the paginator.
func PageParams(r *http.Request) (page, pageSize int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	pageSize, _ = strconv.Atoi(q.Get("page_size"))
	return page, pageSize
}

// QueryList collects a set-membership filter given either as repeated keys
// or as a comma-separated value. Blanks and duplicates are dropped.
func QueryList(r *http.Request, key string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, v := range r.URL.Query()[key] {
		for part := range strings.SplitSeq(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// QueryInt parses an optional integer parameter.
func QueryInt(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an integer", key)
	}
	return &n, nil
}

// QueryBool parses an optional boolean parameter.
func QueryBool(r *http.Request, key string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must be true or false", key)
	}
	return &b, nil
}

// QueryTime parses an optional RFC 3339 timestamp or a YYYY-MM-DD date (UTC midnight).
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &t, nil
	}
	return nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an RFC 3339 timestamp or YYYY-MM-DD date", key)
}
