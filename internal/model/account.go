package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the kind of user being onboarded
type Role string

const (
	RolePetParent    Role = "pet_parent"
	RoleVeterinarian Role = "veterinarian"
	RoleOrgAdmin     Role = "organisation_admin"
)

// AccountStatus is the lifecycle status on the legacy accounts table
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusActive   AccountStatus = "active"
	AccountStatusRejected AccountStatus = "rejected"
)

// Detail keys merged into Account.Details by the approval workflow.
const (
	DetailUniqueID        = "unique_id"
	DetailOrganisationID  = "organisation_id"
	DetailRejectionReason = "rejection_reason"
)

// Account is the legacy record predating the dedicated registration table.
// Rows created before that table existed have no RegistrationRequest and are
// operated on directly.
type Account struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Email        string        `json:"email" db:"email"`
	PasswordHash string        `json:"-" db:"password_hash"`
	Role         Role          `json:"role" db:"role"`
	Status       AccountStatus `json:"status" db:"status"`
	Details      JSONMap       `json:"details" db:"details"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// UniqueID returns the issued credential, if any
func (a *Account) UniqueID() string {
	return a.Details.GetString(DetailUniqueID)
}

// RejectionReason returns the stored rejection reason, if any
func (a *Account) RejectionReason() string {
	return a.Details.GetString(DetailRejectionReason)
}
