package models

import (
	"slices"
	"time"

	"amlguard/pkg/query"
)

// EntityFilter is the criteria for listing entities. Zero values mean
// "no constraint".
type EntityFilter struct {
	Search             string
	Types              []EntityType
	Statuses           []Status
	RiskLevels         []RiskLevel
	ExpiringWithinDays int
	RegisteredFrom     *time.Time
	RegisteredTo       *time.Time
	MinComplianceScore *int
}

// Predicates returns the filter as independent predicates; their order does
// not affect the result.
func (f EntityFilter) Predicates(now time.Time) []query.Predicate[*Entity] {
	return []query.Predicate[*Entity]{
		query.Text(f.Search, searchFields),
		query.In(f.Types, func(e *Entity) EntityType { return e.Type }),
		query.In(f.Statuses, func(e *Entity) Status { return e.Status }),
		query.In(f.RiskLevels, func(e *Entity) RiskLevel { return e.RiskLevel.OrUnrated() }),
		query.ExpiringWithin(now, f.ExpiringWithinDays, func(e *Entity) *time.Time { return e.License.ExpiresAt }),
		query.Between(f.RegisteredFrom, f.RegisteredTo, func(e *Entity) time.Time { return e.CreatedAt }),
		query.AtLeast(f.MinComplianceScore, (*Entity).Score),
	}
}

func searchFields(e *Entity) []string {
	return []string{e.Name, e.License.Number, e.RegistrationNumber, e.Contact.Name}
}

// Stats summarises the whole registry.
type Stats struct {
	Total                  int                `json:"total"`
	ByType                 map[EntityType]int `json:"by_type"`
	ByStatus               map[Status]int     `json:"by_status"`
	ByRiskLevel            map[RiskLevel]int  `json:"by_risk_level"`
	AverageComplianceScore int                `json:"average_compliance_score"`
	ExpiringSoon           int                `json:"expiring_soon"`
	RegisteredLast30Days   int                `json:"registered_last_30_days"`
	ComputedAt             time.Time          `json:"computed_at"`
}

// statusUnknown buckets corrupt status values so breakdowns still sum to Total.
const statusUnknown Status = "Unknown"

const (
	ExpiringSoonDays   = 90
	RecentRegistration = 30 * 24 * time.Hour
)

var riskBuckets = append(slices.Clone(RiskLevels), RiskUnrated)

// ComputeStats aggregates entities as of now.
func ComputeStats(entities []*Entity, now time.Time) Stats {
	return Stats{
		Total:       len(entities),
		ByType:      query.Breakdown(entities, EntityTypes, func(e *Entity) EntityType { return e.Type }, TypeOther),
		ByStatus:    query.Breakdown(entities, Statuses, func(e *Entity) Status { return e.Status }, statusUnknown),
		ByRiskLevel: query.Breakdown(entities, riskBuckets, func(e *Entity) RiskLevel { return e.RiskLevel.OrUnrated() }, RiskUnrated),
		AverageComplianceScore: query.RoundedMean(entities, func(e *Entity) (float64, bool) {
			s, ok := e.Score()
			return float64(s), ok
		}),
		ExpiringSoon: query.Count(entities, query.ExpiringWithin(now, ExpiringSoonDays, func(e *Entity) *time.Time {
			if e.Status == StatusRevoked {
				return nil
			}
			return e.License.ExpiresAt
		})),
		RegisteredLast30Days: query.CountInWindow(entities, func(e *Entity) time.Time { return e.CreatedAt }, now, RecentRegistration),
		ComputedAt:           now,
	}
}
