package registration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sdmydbr9/EVMR-sub001/internal/config"
	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/internal/repository"
	apperrors "github.com/sdmydbr9/EVMR-sub001/pkg/errors"
)

// Reader serves list and detail views reconciled from two differently shaped
// sources: the dedicated registration_requests table and legacy accounts rows
// that predate it. The reconciliation policy is configured once here instead
// of being re-decided per endpoint.
//
// Under MergePolicyFallback (the historical behavior) legacy rows are
// consulted only when the dedicated table holds nothing for the requested
// stage. Under MergePolicyMerge both sources are combined, dedicated rows
// winning per account.
type Reader struct {
	registrations repository.RegistrationRepository
	accounts      repository.AccountRepository
	policy        config.MergePolicy
	cache         *gocache.Cache
}

func NewReader(registrations repository.RegistrationRepository, accounts repository.AccountRepository, cfg config.RegistrationConfig) *Reader {
	return &Reader{
		registrations: registrations,
		accounts:      accounts,
		policy:        cfg.MergePolicy,
		cache:         gocache.New(cfg.ListCacheTTL, 2*cfg.ListCacheTTL),
	}
}

// List returns views for one lifecycle stage
func (r *Reader) List(ctx context.Context, stage model.RegistrationStatus) ([]*model.RegistrationView, error) {
	cacheKey := "list:" + string(stage)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.([]*model.RegistrationView), nil
	}

	requests, err := r.registrations.ListByStatus(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	views := make([]*model.RegistrationView, 0, len(requests))
	seen := make(map[uuid.UUID]bool, len(requests))
	for _, req := range requests {
		views = append(views, model.ViewFromRequest(req))
		seen[req.AccountID] = true
	}

	includeLegacy := r.policy == config.MergePolicyMerge ||
		(r.policy == config.MergePolicyFallback && len(views) == 0)

	if includeLegacy {
		accounts, err := r.accounts.ListByStatus(ctx, stage.AccountStatus())
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, acc := range accounts {
			if seen[acc.ID] {
				continue
			}
			views = append(views, model.ViewFromAccount(acc, stage))
		}
	}

	r.cache.SetDefault(cacheKey, views)
	return views, nil
}

// Get returns one view by id, trying the dedicated table first and falling
// back to a legacy accounts row
func (r *Reader) Get(ctx context.Context, id uuid.UUID) (*model.RegistrationView, error) {
	request, err := r.registrations.Get(ctx, id)
	if err == nil {
		return model.ViewFromRequest(request), nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	account, err := r.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ViewFromAccount(account, model.StageForAccountStatus(account.Status)), nil
}

// Invalidate drops cached list views; called after every mutation
func (r *Reader) Invalidate() {
	r.cache.Flush()
}
