package models

import "time"

// MergeContact returns c with the patch's non-nil fields applied.
func MergeContact(c Contact, p *ContactPatch) Contact {
	if p == nil {
		return c
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	return c
}

// MergeLicense returns a copy of l with the patch's non-nil fields applied.
func MergeLicense(l License, p *LicensePatch) License {
	l = l.clone()
	if p == nil {
		return l
	}
	if p.Number != nil {
		l.Number = *p.Number
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.IssuedAt != nil {
		l.IssuedAt = cloneTime(p.IssuedAt)
	}
	if p.ExpiresAt != nil {
		l.ExpiresAt = cloneTime(p.ExpiresAt)
	}
	return l
}

// ApplyUpdate merges req into e field by field and returns the names of the
// fields that changed. Untouched fields, including nested ones, are kept.
func (e *Entity) ApplyUpdate(req UpdateEntityRequest) []string {
	var changed []string
	set := func(name string, differs bool, apply func()) {
		if differs {
			apply()
			changed = append(changed, name)
		}
	}
	if req.Name != nil {
		set("name", *req.Name != e.Name, func() { e.Name = *req.Name })
	}
	if req.Type != nil {
		set("type", *req.Type != e.Type, func() { e.Type = *req.Type })
	}
	if req.RiskLevel != nil {
		set("risk_level", *req.RiskLevel != e.RiskLevel, func() { e.RiskLevel = *req.RiskLevel })
	}
	if req.ComplianceScore != nil {
		differs := e.ComplianceScore == nil || *e.ComplianceScore != *req.ComplianceScore
		set("compliance_score", differs, func() { e.ComplianceScore = cloneInt(req.ComplianceScore) })
	}
	if req.Address != nil {
		set("address", *req.Address != e.Address, func() { e.Address = *req.Address })
	}
	if req.Contact != nil {
		merged := MergeContact(e.Contact, req.Contact)
		set("contact", merged != e.Contact, func() { e.Contact = merged })
	}
	if req.License != nil {
		merged := MergeLicense(e.License, req.License)
		set("license", !licenseEqual(merged, e.License), func() { e.License = merged })
	}
	if req.LastInspectionAt != nil {
		differs := e.LastInspectionAt == nil || !e.LastInspectionAt.Equal(*req.LastInspectionAt)
		set("last_inspection_at", differs, func() { e.LastInspectionAt = cloneTime(req.LastInspectionAt) })
	}
	return changed
}

func licenseEqual(a, b License) bool {
	return a.Number == b.Number && a.Category == b.Category &&
		timeEqual(a.IssuedAt, b.IssuedAt) && timeEqual(a.ExpiresAt, b.ExpiresAt)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
