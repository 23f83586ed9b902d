package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "amlguard/pkg/domain-errors"
)

func TestQueryList_RepeatedAndComma(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?status=Active,Suspended&status=Active&status=+", nil)
	assert.Equal(t, []string{"Active", "Suspended"}, QueryList(r, "status"))
	assert.Empty(t, QueryList(r, "type"))
}

func TestPageParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=abc", nil)
	page, size := PageParams(r)
	assert.Equal(t, 3, page)
	assert.Equal(t, 0, size)
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?days=90&bad=x", nil)
	n, err := QueryInt(r, "days")
	require.NoError(t, err)
	assert.Equal(t, 90, *n)

	n, err = QueryInt(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = QueryInt(r, "bad")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2025-01-02&to=2025-01-03T10:00:00Z&bad=yesterday", nil)
	from, err := QueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), *from)

	to, err := QueryTime(r, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	_, err = QueryTime(r, "bad")
	assert.Error(t, err)
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?resolved=false&x=maybe", nil)
	b, err := QueryBool(r, "resolved")
	require.NoError(t, err)
	assert.False(t, *b)
	_, err = QueryBool(r, "x")
	assert.Error(t, err)
}
