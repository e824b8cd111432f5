package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle status of a registration request.
// Pending is the only non-terminal state; approved and rejected are never
// reverted.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "pending"
	RegistrationStatusApproved RegistrationStatus = "approved"
	RegistrationStatusRejected RegistrationStatus = "rejected"
)

// AccountStatus maps a registration stage onto the legacy accounts table
func (s RegistrationStatus) AccountStatus() AccountStatus {
	switch s {
	case RegistrationStatusApproved:
		return AccountStatusActive
	case RegistrationStatusRejected:
		return AccountStatusRejected
	default:
		return AccountStatusPending
	}
}

// Terminal reports whether the status can no longer change
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationStatusApproved || s == RegistrationStatusRejected
}

// StageForAccountStatus is the inverse mapping, used when a view is
// reconciled from a legacy accounts row
func StageForAccountStatus(s AccountStatus) RegistrationStatus {
	switch s {
	case AccountStatusActive:
		return RegistrationStatusApproved
	case AccountStatusRejected:
		return RegistrationStatusRejected
	default:
		return RegistrationStatusPending
	}
}

// ParseStage validates a stage query parameter
func ParseStage(raw string) (RegistrationStatus, bool) {
	switch RegistrationStatus(raw) {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusRejected:
		return RegistrationStatus(raw), true
	default:
		return "", false
	}
}

// RegistrationRequest is the durable record representing one user's pending
// onboarding decision. At most one row exists per account.
type RegistrationRequest struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	AccountID uuid.UUID          `json:"account_id" db:"account_id"`
	Payload   Submission         `json:"payload" db:"payload"`
	Status    RegistrationStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`

	// Details mirrors the linked account's details bag on reads, so views
	// built from this table still expose unique_id and rejection_reason.
	Details JSONMap `json:"details,omitempty" db:"details"`
}

// Submission is the role-tagged signup payload. The role-specific branch must
// match Role; that is checked once at the ingestion boundary, not on every
// read along the approval path.
type Submission struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     Role   `json:"role" validate:"required,oneof=pet_parent veterinarian organisation_admin"`
	Password string `json:"password,omitempty"`

	PetParent    *PetParentSubmission    `json:"pet_parent,omitempty"`
	Veterinarian *VeterinarianSubmission `json:"veterinarian,omitempty"`
	Organisation *OrganisationSubmission `json:"organisation,omitempty"`
}

type PetParentSubmission struct {
	Phone    string `json:"phone,omitempty"`
	PetCount int    `json:"pet_count,omitempty"`
}

type VeterinarianSubmission struct {
	ClinicName    string `json:"clinic_name" validate:"required"`
	ClinicAddress string `json:"clinic_address,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
}

type OrganisationSubmission struct {
	OrganisationName string `json:"organisation_name" validate:"required"`
	Address          string `json:"address,omitempty"`
}

// ClinicName returns the clinic or organisation name carried by the
// role-specific branch, if any
func (s Submission) ClinicName() string {
	switch {
	case s.Veterinarian != nil:
		return s.Veterinarian.ClinicName
	case s.Organisation != nil:
		return s.Organisation.OrganisationName
	default:
		return ""
	}
}

// Value implements driver.Valuer; the payload lives in a single JSONB column
// on registration_requests.
func (s Submission) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for reading the payload column
func (s *Submission) Scan(src interface{}) error {
	if src == nil {
		*s = Submission{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for Submission: %T", src)
	}

	return json.Unmarshal(data, s)
}

// RegistrationView is what the read side serves. A view is assembled either
// from a registration_requests row or, for legacy data, from an accounts row.
type RegistrationView struct {
	ID         uuid.UUID          `json:"id"`
	AccountID  uuid.UUID          `json:"account_id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Role       Role               `json:"role"`
	ClinicName string             `json:"clinic_name,omitempty"`
	Status     RegistrationStatus `json:"status"`
	Details    JSONMap            `json:"details,omitempty"`
	Source     string             `json:"source"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Payload    *Submission        `json:"payload,omitempty"`
}

// ViewSourceRegistration and ViewSourceAccount label which table a view was
// reconciled from.
const (
	ViewSourceRegistration = "registration_request"
	ViewSourceAccount      = "account"
)

// ViewFromRequest maps a dedicated-table row to a view
func ViewFromRequest(req *RegistrationRequest) *RegistrationView {
	payload := req.Payload
	return &RegistrationView{
		ID:         req.ID,
		AccountID:  req.AccountID,
		Name:       payload.FullName,
		Email:      payload.Email,
		Role:       payload.Role,
		ClinicName: payload.ClinicName(),
		Status:     req.Status,
		Details:    req.Details,
		Source:     ViewSourceRegistration,
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
		Payload:    &payload,
	}
}

// ViewFromAccount maps a legacy accounts row to a view
func ViewFromAccount(acc *Account, stage RegistrationStatus) *RegistrationView {
	return &RegistrationView{
		ID:        acc.ID,
		AccountID: acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		Role:      acc.Role,
		Status:    stage,
		Details:   acc.Details,
		Source:    ViewSourceAccount,
		CreatedAt: acc.CreatedAt,
		UpdatedAt: acc.UpdatedAt,
	}
}
