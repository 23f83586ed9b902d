package models

import (
	"strings"
	"time"

	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/validation"
)

// RegisterEntityRequest creates a new pending entity.
type RegisterEntityRequest struct {
	RegistrationNumber string     `json:"registration_number" validate:"notblank,max=64"`
	Name               string     `json:"name" validate:"notblank,max=200"`
	Type               EntityType `json:"type" validate:"required"`
	RiskLevel          RiskLevel  `json:"risk_level,omitempty"`
	ComplianceScore    *int       `json:"compliance_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Contact            Contact    `json:"contact"`
	Address            string     `json:"address" validate:"max=500"`
	License            License    `json:"license"`
	LastInspectionAt   *time.Time `json:"last_inspection_at,omitempty"`
}

func (r *RegisterEntityRequest) Normalize() {
	r.RegistrationNumber = strings.ToUpper(strings.TrimSpace(r.RegistrationNumber))
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Contact = normalizeContact(r.Contact)
	r.License.Number = strings.TrimSpace(r.License.Number)
	r.License.Category = strings.TrimSpace(r.License.Category)
	if t, ok := ParseEntityType(string(r.Type)); ok {
		r.Type = t
	}
	if rl, ok := ParseRiskLevel(string(r.RiskLevel)); ok && rl != RiskUnrated {
		r.RiskLevel = rl
	}
}

// Validate runs size, required, syntax, then semantic checks.
func (r *RegisterEntityRequest) Validate() error {
	r.Normalize()
	if err := validation.Struct(r); err != nil {
		return err
	}
	if _, ok := ParseEntityType(string(r.Type)); !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown entity type %q", r.Type)
	}
	if r.RiskLevel != "" && r.RiskLevel.OrUnrated() == RiskUnrated {
		return dErrors.Newf(dErrors.CodeValidation, "unknown risk level %q", r.RiskLevel)
	}
	return validateLicenseDates(r.License.IssuedAt, r.License.ExpiresAt)
}

type ContactPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

type LicensePatch struct {
	Number    *string    `json:"number,omitempty" validate:"omitempty,notblank,max=64"`
	Category  *string    `json:"category,omitempty" validate:"omitempty,max=64"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateEntityRequest is a partial update. Nil fields are left untouched.
type UpdateEntityRequest struct {
	Name             *string       `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Type             *EntityType   `json:"type,omitempty"`
	RiskLevel        *RiskLevel    `json:"risk_level,omitempty"`
	ComplianceScore  *int          `json:"compliance_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Address          *string       `json:"address,omitempty" validate:"omitempty,max=500"`
	Contact          *ContactPatch `json:"contact,omitempty"`
	License          *LicensePatch `json:"license,omitempty"`
	LastInspectionAt *time.Time    `json:"last_inspection_at,omitempty"`
}

func (r *UpdateEntityRequest) IsEmpty() bool {
	return r.Name == nil && r.Type == nil && r.RiskLevel == nil && r.ComplianceScore == nil &&
		r.Address == nil && r.Contact == nil && r.License == nil && r.LastInspectionAt == nil
}

func (r *UpdateEntityRequest) Normalize() {
	trim(r.Name)
	trim(r.Address)
	if r.Type != nil {
		if t, ok := ParseEntityType(string(*r.Type)); ok {
			*r.Type = t
		}
	}
	if r.RiskLevel != nil {
		if rl, ok := ParseRiskLevel(string(*r.RiskLevel)); ok && rl != RiskUnrated {
			*r.RiskLevel = rl
		}
	}
	if r.Contact != nil {
		trim(r.Contact.Name)
		trim(r.Contact.Email)
		trim(r.Contact.Phone)
	}
	if r.License != nil {
		trim(r.License.Number)
		trim(r.License.Category)
	}
}

func (r *UpdateEntityRequest) Validate() error {
	r.Normalize()
	if r.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.Type != nil {
		if _, ok := ParseEntityType(string(*r.Type)); !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown entity type %q", *r.Type)
		}
	}
	if r.RiskLevel != nil && r.RiskLevel.OrUnrated() == RiskUnrated {
		return dErrors.Newf(dErrors.CodeValidation, "unknown risk level %q", *r.RiskLevel)
	}
	if r.License != nil {
		return validateLicenseDates(r.License.IssuedAt, r.License.ExpiresAt)
	}
	return nil
}

// ReasonRequest carries the justification for a suspension or revocation.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return validation.Struct(r)
}

// RenewRequest sets the new license expiry.
type RenewRequest struct {
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

func (r *RenewRequest) Validate() error {
	return validation.Struct(r)
}

type AddNoteRequest struct {
	Body string `json:"body" validate:"notblank,max=2000"`
}

func (r *AddNoteRequest) Validate() error {
	r.Body = strings.TrimSpace(r.Body)
	return validation.Struct(r)
}

func validateLicenseDates(issued, expires *time.Time) error {
	if issued != nil && expires != nil && !expires.After(*issued) {
		return dErrors.New(dErrors.CodeValidation, "license expiry must be after issue date")
	}
	return nil
}

func normalizeContact(c Contact) Contact {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
