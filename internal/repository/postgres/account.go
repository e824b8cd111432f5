package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/internal/repository"
	apperrors "github.com/sdmydbr9/EVMR-sub001/pkg/errors"
)

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `
		SELECT id, name, email, password_hash, role, status, details, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("account", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) ListByStatus(ctx context.Context, status model.AccountStatus) ([]*model.Account, error) {
	query := `
		SELECT id, name, email, password_hash, role, status, details, created_at, updated_at
		FROM accounts
		WHERE status = $1
		ORDER BY created_at DESC
	`
	var accounts []*model.Account
	if err := r.db.SelectContext(ctx, &accounts, query, status); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
