package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationStatusTerminal(t *testing.T) {
	assert.False(t, RegistrationStatusPending.Terminal())
	assert.True(t, RegistrationStatusApproved.Terminal())
	assert.True(t, RegistrationStatusRejected.Terminal())
}

func TestStatusMappingRoundTrip(t *testing.T) {
	for _, stage := range []RegistrationStatus{
		RegistrationStatusPending,
		RegistrationStatusApproved,
		RegistrationStatusRejected,
	} {
		assert.Equal(t, stage, StageForAccountStatus(stage.AccountStatus()))
	}
}

func TestParseStage(t *testing.T) {
	stage, ok := ParseStage("approved")
	assert.True(t, ok)
	assert.Equal(t, RegistrationStatusApproved, stage)

	_, ok = ParseStage("archived")
	assert.False(t, ok)

	_, ok = ParseStage("")
	assert.False(t, ok)
}

func TestSubmissionClinicName(t *testing.T) {
	vet := Submission{Veterinarian: &VeterinarianSubmission{ClinicName: "Happy Paws Clinic"}}
	assert.Equal(t, "Happy Paws Clinic", vet.ClinicName())

	org := Submission{Organisation: &OrganisationSubmission{OrganisationName: "Acme Veterinary Group"}}
	assert.Equal(t, "Acme Veterinary Group", org.ClinicName())

	assert.Empty(t, Submission{}.ClinicName())
}

func TestSubmissionScanFromJSONB(t *testing.T) {
	var sub Submission
	err := sub.Scan([]byte(`{"full_name":"Dr. Jane Doe","email":"jane@example.com","role":"veterinarian","veterinarian":{"clinic_name":"Happy Paws Clinic"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Dr. Jane Doe", sub.FullName)
	assert.Equal(t, RoleVeterinarian, sub.Role)
	assert.Equal(t, "Happy Paws Clinic", sub.ClinicName())
}

func TestViewFromRequest(t *testing.T) {
	now := time.Now()
	req := &RegistrationRequest{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Payload: Submission{
			FullName: "Dr. Jane Doe",
			Email:    "jane@example.com",
			Role:     RoleVeterinarian,
			Veterinarian: &VeterinarianSubmission{
				ClinicName: "Happy Paws Clinic",
			},
		},
		Status:    RegistrationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	view := ViewFromRequest(req)
	assert.Equal(t, req.ID, view.ID)
	assert.Equal(t, req.AccountID, view.AccountID)
	assert.Equal(t, "Dr. Jane Doe", view.Name)
	assert.Equal(t, "Happy Paws Clinic", view.ClinicName)
	assert.Equal(t, ViewSourceRegistration, view.Source)
	require.NotNil(t, view.Payload)
}

func TestViewFromAccount(t *testing.T) {
	acc := &Account{
		ID:     uuid.New(),
		Name:   "Dr. Old Timer",
		Email:  "old@example.com",
		Role:   RoleVeterinarian,
		Status: AccountStatusActive,
		Details: JSONMap{
			DetailUniqueID: "VET-LEGACY01",
		},
	}

	view := ViewFromAccount(acc, RegistrationStatusApproved)
	assert.Equal(t, acc.ID, view.ID)
	assert.Equal(t, acc.ID, view.AccountID)
	assert.Equal(t, RegistrationStatusApproved, view.Status)
	assert.Equal(t, ViewSourceAccount, view.Source)
	assert.Equal(t, "VET-LEGACY01", view.Details.GetString(DetailUniqueID))
	assert.Nil(t, view.Payload)
}

func TestAccountDetailHelpers(t *testing.T) {
	acc := &Account{Details: JSONMap{
		DetailUniqueID:        "ORG-AAAA1111",
		DetailRejectionReason: "incomplete paperwork",
	}}
	assert.Equal(t, "ORG-AAAA1111", acc.UniqueID())
	assert.Equal(t, "incomplete paperwork", acc.RejectionReason())

	empty := &Account{Details: JSONMap{}}
	assert.Empty(t, empty.UniqueID())
	assert.Empty(t, empty.RejectionReason())
}
