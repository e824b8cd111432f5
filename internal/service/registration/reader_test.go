package registration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdmydbr9/EVMR-sub001/internal/config"
	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	apperrors "github.com/sdmydbr9/EVMR-sub001/pkg/errors"
)

func newTestReader(policy config.MergePolicy) (*Reader, *memoryStore) {
	store := newMemoryStore()
	cfg := testConfig()
	cfg.MergePolicy = policy
	return NewReader(&memoryRegistrations{store: store}, &memoryAccounts{store: store}, cfg), store
}

func seedRequest(store *memoryStore, name string, status model.RegistrationStatus) *model.RegistrationRequest {
	req := &model.RegistrationRequest{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Payload: model.Submission{
			FullName: name,
			Email:    name + "@example.com",
			Role:     model.RolePetParent,
		},
		Status: status,
	}
	store.requests[req.ID] = req
	return req
}

func seedAccount(store *memoryStore, name string, status model.AccountStatus) *model.Account {
	acc := &model.Account{
		ID:      uuid.New(),
		Name:    name,
		Email:   name + "@example.com",
		Role:    model.RoleVeterinarian,
		Status:  status,
		Details: model.JSONMap{},
	}
	store.accounts[acc.ID] = acc
	return acc
}

func TestListFallbackPrefersDedicatedRows(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyFallback)
	seedRequest(store, "dedicated", model.RegistrationStatusPending)
	seedAccount(store, "legacy", model.AccountStatusPending)

	views, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "dedicated", views[0].Name)
	assert.Equal(t, model.ViewSourceRegistration, views[0].Source)
}

func TestListFallbackServesLegacyWhenDedicatedEmpty(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyFallback)
	seedAccount(store, "legacy", model.AccountStatusPending)

	views, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "legacy", views[0].Name)
	assert.Equal(t, model.ViewSourceAccount, views[0].Source)
	assert.Equal(t, model.RegistrationStatusPending, views[0].Status)
}

func TestListMergeCombinesBothSources(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyMerge)
	seedRequest(store, "dedicated", model.RegistrationStatusPending)
	seedAccount(store, "legacy", model.AccountStatusPending)

	views, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	require.Len(t, views, 2)

	names := map[string]string{}
	for _, v := range views {
		names[v.Name] = v.Source
	}
	assert.Equal(t, model.ViewSourceRegistration, names["dedicated"])
	assert.Equal(t, model.ViewSourceAccount, names["legacy"])
}

func TestListMergeDeduplicatesByAccount(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyMerge)

	req := seedRequest(store, "shared", model.RegistrationStatusPending)
	store.accounts[req.AccountID] = &model.Account{
		ID:      req.AccountID,
		Name:    "shared legacy shadow",
		Email:   "shared@example.com",
		Role:    model.RolePetParent,
		Status:  model.AccountStatusPending,
		Details: model.JSONMap{},
	}

	views, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "shared", views[0].Name)
	assert.Equal(t, model.ViewSourceRegistration, views[0].Source)
}

func TestListFiltersByStage(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyFallback)
	seedRequest(store, "pending one", model.RegistrationStatusPending)
	seedRequest(store, "approved one", model.RegistrationStatusApproved)

	views, err := reader.List(context.Background(), model.RegistrationStatusApproved)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "approved one", views[0].Name)
}

func TestGetFallsBackToLegacyAccount(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyFallback)
	acc := seedAccount(store, "legacy", model.AccountStatusActive)
	acc.Details[model.DetailUniqueID] = "VET-AAAA1111"

	view, err := reader.Get(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ViewSourceAccount, view.Source)
	assert.Equal(t, model.RegistrationStatusApproved, view.Status)
	assert.Equal(t, "VET-AAAA1111", view.Details.GetString(model.DetailUniqueID))
}

func TestGetUnknownID(t *testing.T) {
	reader, _ := newTestReader(config.MergePolicyFallback)

	_, err := reader.Get(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListCachesUntilInvalidated(t *testing.T) {
	reader, store := newTestReader(config.MergePolicyFallback)
	seedRequest(store, "first", model.RegistrationStatusPending)

	views, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	require.Len(t, views, 1)

	seedRequest(store, "second", model.RegistrationStatusPending)

	cached, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	reader.Invalidate()

	fresh, err := reader.List(context.Background(), model.RegistrationStatusPending)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}
