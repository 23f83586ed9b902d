// Package models holds the chart-ready series served to the supervision
// dashboard.
package models

import (
	"slices"
	"time"

	auditmodels "amlguard/internal/audittrail/models"
	regmodels "amlguard/internal/registry/models"
	secmodels "amlguard/internal/security/models"
	"amlguard/pkg/query"
)

// Series is a labelled sequence of counts in display order.
type Series struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// Total sums the series.
func (s Series) Total() int {
	n := 0
	for _, v := range s.Values {
		n += v
	}
	return n
}

// Overview combines the headline stats of each module.
type Overview struct {
	Registry    regmodels.Stats   `json:"registry"`
	Security    secmodels.Stats   `json:"security"`
	Audit       auditmodels.Stats `json:"audit"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Dashboard is everything the supervision landing page renders.
type Dashboard struct {
	Overview      Overview `json:"overview"`
	Registrations Series   `json:"registrations"`
	Compliance    Series   `json:"compliance"`
	Expiry        Series   `json:"expiry"`
}

const (
	DefaultMonths = 12
	MaxMonths     = 36
	monthLabel    = "2006-01"
)

// ClampMonths keeps a requested window within 1..MaxMonths; zero or less
// means DefaultMonths.
func ClampMonths(months int) int {
	switch {
	case months <= 0:
		return DefaultMonths
	case months > MaxMonths:
		return MaxMonths
	default:
		return months
	}
}

// RegistrationSeries counts registrations per calendar month (UTC) for the
// months ending with now's month, oldest first. Empty months are zero.
func RegistrationSeries(entities []*regmodels.Entity, now time.Time, months int) Series {
	months = ClampMonths(months)
	now = now.UTC()
	last := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := last.AddDate(0, -(months - 1), 0)

	s := Series{Labels: make([]string, months), Values: make([]int, months)}
	index := make(map[string]int, months)
	for i := range months {
		label := first.AddDate(0, i, 0).Format(monthLabel)
		s.Labels[i] = label
		index[label] = i
	}
	for _, e := range entities {
		if i, ok := index[e.CreatedAt.UTC().Format(monthLabel)]; ok {
			s.Values[i]++
		}
	}
	return s
}

// Compliance buckets, in display order.
const (
	BucketLow       = "0-49"
	BucketModerate  = "50-69"
	BucketGood      = "70-89"
	BucketExcellent = "90-100"
	BucketUnscored  = "unscored"
)

var complianceBuckets = []string{BucketLow, BucketModerate, BucketGood, BucketExcellent, BucketUnscored}

func complianceBucket(e *regmodels.Entity) string {
	if e.ComplianceScore == nil {
		return BucketUnscored
	}
	switch score := *e.ComplianceScore; {
	case score >= 90:
		return BucketExcellent
	case score >= 70:
		return BucketGood
	case score >= 50:
		return BucketModerate
	default:
		return BucketLow
	}
}

// ComplianceDistribution buckets every entity by compliance score.
func ComplianceDistribution(entities []*regmodels.Entity) Series {
	return fromBreakdown(complianceBuckets, query.Breakdown(entities, complianceBuckets, complianceBucket, BucketUnscored))
}

// Expiry buckets, in display order.
const (
	ExpiryLapsed = "expired"
	Expiry30     = "0-30"
	Expiry60     = "31-60"
	Expiry90     = "61-90"
	ExpiryLater  = "90+"
	ExpiryNone   = "none"
)

var expiryBuckets = []string{ExpiryLapsed, Expiry30, Expiry60, Expiry90, ExpiryLater, ExpiryNone}

// ExpiryTimeline buckets licenses by days until expiry. Revoked entities
// are left out since their license no longer runs.
func ExpiryTimeline(entities []*regmodels.Entity, now time.Time) Series {
	live := query.Filter(entities, func(e *regmodels.Entity) bool { return e.Status != regmodels.StatusRevoked })
	bucket := func(e *regmodels.Entity) string {
		if e.License.ExpiresAt == nil {
			return ExpiryNone
		}
		switch days := query.DaysUntil(now, *e.License.ExpiresAt); {
		case days <= 0:
			return ExpiryLapsed
		case days <= 30:
			return Expiry30
		case days <= 60:
			return Expiry60
		case days <= 90:
			return Expiry90
		default:
			return ExpiryLater
		}
	}
	return fromBreakdown(expiryBuckets, query.Breakdown(live, expiryBuckets, bucket, ExpiryNone))
}

func fromBreakdown(labels []string, counts map[string]int) Series {
	s := Series{Labels: slices.Clone(labels), Values: make([]int, len(labels))}
	for i, l := range labels {
		s.Values[i] = counts[l]
	}
	return s
}
