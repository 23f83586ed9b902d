package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID        string
	Name      string
	License   string
	Status    string
	Score     *int
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func searchable(r record) []string { return []string{r.Name, r.License} }
func status(r record) string       { return r.Status }

func ids(rs []record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixture() []record {
	statuses := []string{"Active", "Pending", "Suspended", "Expired"}
	out := make([]record, 0, 20)
	for i := range 20 {
		score := 50 + i*2
		exp := now.Add(time.Duration(i*10-50) * 24 * time.Hour)
		out = append(out, record{
			ID:        fmt.Sprintf("r%02d", i),
			Name:      fmt.Sprintf("Bank %d", i),
			License:   fmt.Sprintf("LIC-%03d", i),
			Status:    statuses[i%len(statuses)],
			Score:     &score,
			ExpiresAt: &exp,
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestFilterAbsentCriteriaMatchesEverything(t *testing.T) {
	rs := fixture()
	got := Filter(rs, Text[record]("  ", searchable), In[record, string](nil, status), ExpiringWithin[record](now, 0, nil))
	assert.Len(t, got, len(rs))
}

func TestFilterBySuspendedStatus(t *testing.T) {
	statuses := map[string]int{"Active": 40, "Pending": 5, "Suspended": 5, "Expired": 5}
	var rs []record
	for st, n := range statuses {
		for i := range n {
			rs = append(rs, record{ID: fmt.Sprintf("%s-%d", st, i), Status: st})
		}
	}
	require.Len(t, rs, 55)

	got := Filter(rs, In([]string{"Suspended"}, status))
	require.Len(t, got, 5)
	for _, r := range got {
		assert.Equal(t, "Suspended", r.Status)
	}
}

func TestTextSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	rs := fixture()
	assert.Equal(t, []string{"r07"}, ids(Filter(rs, Text[record]("lic-007", searchable))))
	assert.Equal(t, []string{"r01", "r10", "r11", "r12", "r13", "r14", "r15", "r16", "r17", "r18", "r19"},
		ids(Filter(rs, Text[record]("BANK 1", searchable))))
	assert.Empty(t, Filter(rs, Text[record]("nomatch", searchable)))
}

func TestExpiringWithin(t *testing.T) {
	target := func(r record) *time.Time { return r.ExpiresAt }
	in45 := now.Add(45 * 24 * time.Hour)
	ago10 := now.Add(-10 * 24 * time.Hour)
	rs := []record{
		{ID: "soon", ExpiresAt: &in45},
		{ID: "lapsed", ExpiresAt: &ago10},
		{ID: "none"},
	}

	assert.Equal(t, []string{"soon"}, ids(Filter(rs, ExpiringWithin(now, 90, target))))
	assert.Empty(t, Filter(rs, ExpiringWithin(now, 30, target)))
}

func TestDaysUntilRoundsUp(t *testing.T) {
	assert.Equal(t, 1, DaysUntil(now, now.Add(time.Hour)))
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 0, DaysUntil(now, now.Add(-time.Hour)))
	assert.Equal(t, -1, DaysUntil(now, now.Add(-25*time.Hour)))
}

func TestBetweenIsInclusiveLowerExclusiveUpper(t *testing.T) {
	from := now.Add(-2 * time.Hour)
	to := now
	rs := []record{
		{ID: "lower", CreatedAt: from},
		{ID: "inside", CreatedAt: now.Add(-time.Hour)},
		{ID: "upper", CreatedAt: now},
	}
	got := Filter(rs, Between(&from, &to, func(r record) time.Time { return r.CreatedAt }))
	assert.Equal(t, []string{"lower", "inside"}, ids(got))
}

func TestAtLeastSkipsRecordsWithoutValue(t *testing.T) {
	score := func(r record) (int, bool) {
		if r.Score == nil {
			return 0, false
		}
		return *r.Score, true
	}
	hi, lo := 90, 40
	rs := []record{{ID: "hi", Score: &hi}, {ID: "lo", Score: &lo}, {ID: "unscored"}}
	threshold := 50
	assert.Equal(t, []string{"hi"}, ids(Filter(rs, AtLeast(&threshold, score))))
}

func TestFilterCommutativeAndIdempotent(t *testing.T) {
	rs := fixture()
	f1 := Text[record]("bank 1", searchable)
	f2 := In([]string{"Active", "Expired"}, status)
	f3 := ExpiringWithin(now, 120, func(r record) *time.Time { return r.ExpiresAt })

	pairs := [][2]Predicate[record]{{f1, f2}, {f1, f3}, {f2, f3}}
	for _, p := range pairs {
		ab := Filter(Filter(rs, p[0]), p[1])
		ba := Filter(Filter(rs, p[1]), p[0])
		assert.ElementsMatch(t, ids(ab), ids(ba))

		once := Filter(rs, p[0])
		assert.Equal(t, ids(once), ids(Filter(once, p[0])))
	}

	assert.ElementsMatch(t, ids(Filter(rs, f1, f2, f3)), ids(Filter(rs, f3, f2, f1)))
	assert.ElementsMatch(t, ids(Filter(rs, All(f1, f2, f3))), ids(Filter(rs, f1, f2, f3)))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	rs := fixture()
	before := ids(rs)
	_ = Filter(rs, In([]string{"Pending"}, status))
	assert.Equal(t, before, ids(rs))
}
