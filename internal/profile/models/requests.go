package models

import (
	"strings"

	dErrors "amlguard/pkg/domain-errors"
	"amlguard/pkg/platform/validation"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 12

type UpdatePersonalRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,notblank,min=2,max=200"`
	Email      *string `json:"email" validate:"omitempty,email,max=254"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

func (r *UpdatePersonalRequest) Validate() error {
	trim(r.FullName, r.Phone, r.Position, r.Department)
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	return validation.Struct(r)
}

type UpdatePreferencesRequest struct {
	Language   *string `json:"language" validate:"omitempty,oneof=en fr ar es"`
	Timezone   *string `json:"timezone" validate:"omitempty,timezone"`
	DateFormat *string `json:"date_format" validate:"omitempty,oneof=YYYY-MM-DD DD/MM/YYYY MM/DD/YYYY"`
	Theme      *string `json:"theme" validate:"omitempty,oneof=light dark system"`
}

func (r *UpdatePreferencesRequest) Validate() error {
	trim(r.Language, r.Timezone, r.DateFormat, r.Theme)
	if r.Language != nil {
		*r.Language = strings.ToLower(*r.Language)
	}
	if r.Theme != nil {
		*r.Theme = strings.ToLower(*r.Theme)
	}
	return validation.Struct(r)
}

type UpdateNotificationsRequest struct {
	Email          *bool `json:"email"`
	SMS            *bool `json:"sms"`
	SecurityAlerts *bool `json:"security_alerts"`
	WeeklyReport   *bool `json:"weekly_report"`
}

func (r *UpdateNotificationsRequest) Validate() error {
	return nil
}

type UpdateSecurityRequest struct {
	TwoFactorEnabled      *bool `json:"two_factor_enabled"`
	SessionTimeoutMinutes *int  `json:"session_timeout_minutes" validate:"omitempty,min=5,max=480"`
}

func (r *UpdateSecurityRequest) Validate() error {
	return validation.Struct(r)
}

type ChangePasswordRequest struct {
	Current string `json:"current_password"`
	Next    string `json:"new_password" validate:"required,max=72"`
	Confirm string `json:"confirm_password" validate:"required"`
}

func (r *ChangePasswordRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if len([]rune(r.Next)) < MinPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "new password must be at least %d characters", MinPasswordLength)
	}
	if r.Next != r.Confirm {
		return dErrors.New(dErrors.CodeValidation, "password confirmation does not match")
	}
	if r.Next == r.Current {
		return dErrors.New(dErrors.CodeValidation, "new password must differ from the current one")
	}
	return nil
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
