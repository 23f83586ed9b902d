package models

import (
	"net/netip"
	"strings"
	"time"

	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/validation"
	"amlguard/pkg/query"
)

// ListKind names an IP list.
type ListKind string

const (
	ListAllow ListKind = "allow"
	ListDeny  ListKind = "deny"
)

var ListKinds = []ListKind{ListAllow, ListDeny}

// Opposite returns the other list.
func (k ListKind) Opposite() ListKind {
	if k == ListAllow {
		return ListDeny
	}
	return ListAllow
}

func ParseListKind(s string) (ListKind, bool) {
	k := ListKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k == ListAllow || k == ListDeny
}

// IPEntry places an address or prefix on the allow or deny list. Entries are
// never deleted; removal deactivates them.
type IPEntry struct {
	ID            string     `json:"id"`
	IP            string     `json:"ip"`
	List          ListKind   `json:"list"`
	Reason        string     `json:"reason"`
	Active        bool       `json:"active"`
	Automatic     bool       `json:"automatic"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     string     `json:"created_by"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	DeactivatedBy string     `json:"deactivated_by,omitempty"`
}

// ActiveAt reports whether the entry is in force at now.
func (e *IPEntry) ActiveAt(now time.Time) bool {
	return e.Active && (e.ExpiresAt == nil || e.ExpiresAt.After(now))
}

// Covers reports whether the entry's address or prefix contains ip.
func (e *IPEntry) Covers(ip string) bool {
	if e.IP == ip {
		return true
	}
	prefix, err := netip.ParsePrefix(e.IP)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return prefix.Contains(addr)
}

// Overlaps reports whether the two entries share at least one address,
// comparing a single address as a full-length prefix.
func (e *IPEntry) Overlaps(other *IPEntry) bool {
	if e.IP == other.IP {
		return true
	}
	a, okA := asPrefix(e.IP)
	b, okB := asPrefix(other.IP)
	return okA && okB && a.Overlaps(b)
}

func asPrefix(s string) (netip.Prefix, bool) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Masked(), true
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// Deactivate takes the entry out of force. It reports false when the entry
// was already inactive.
func (e *IPEntry) Deactivate(by string, now time.Time) bool {
	if !e.Active {
		return false
	}
	e.Active = false
	e.DeactivatedAt = &now
	e.DeactivatedBy = by
	return true
}

func (e *IPEntry) Clone() *IPEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		c.ExpiresAt = &t
	}
	if e.DeactivatedAt != nil {
		t := *e.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}

// CanonicalSource normalises an IP or CIDR string: addresses are unmapped
// and printed canonically; prefixes are masked. Unparseable input is only
// trimmed so validation can report it.
func CanonicalSource(s string) string {
	s = strings.TrimSpace(s)
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked().String()
	}
	return s
}

type AddIPRequest struct {
	IP        string     `json:"ip" validate:"required,ip_or_cidr"`
	Reason    string     `json:"reason" validate:"max=500"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *AddIPRequest) Validate() error {
	r.IP = CanonicalSource(r.IP)
	r.Reason = strings.TrimSpace(r.Reason)
	return validation.Struct(r)
}

// CheckExpiry rejects expiry dates that are not in the future.
func (r *AddIPRequest) CheckExpiry(now time.Time) error {
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "expires_at must be in the future")
	}
	return nil
}

// IPFilter selects entries for listing.
type IPFilter struct {
	Search    string
	Lists     []ListKind
	Active    *bool
	Automatic *bool
}

func (f IPFilter) Predicates(now time.Time) []query.Predicate[*IPEntry] {
	preds := []query.Predicate[*IPEntry]{
		query.Text(f.Search, func(e *IPEntry) []string { return []string{e.IP, e.Reason, e.CreatedBy} }),
		query.In(f.Lists, func(e *IPEntry) ListKind { return e.List }),
		query.Equal(f.Automatic, func(e *IPEntry) bool { return e.Automatic }),
	}
	if f.Active != nil {
		want := *f.Active
		preds = append(preds, func(e *IPEntry) bool { return e.ActiveAt(now) == want })
	}
	return preds
}
