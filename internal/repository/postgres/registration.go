package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/internal/repository"
	apperrors "github.com/sdmydbr9/EVMR-sub001/pkg/errors"
)

const uniqueViolation = "23505"

type registrationRepository struct {
	BaseRepository
}

func NewRegistrationRepository(base BaseRepository) repository.RegistrationRepository {
	return &registrationRepository{base}
}

// Upsert stores one submission keyed on account_id. Re-sent submissions
// replace the payload and bump updated_at; there is never more than one row
// per account. A pending accounts row is created alongside when the upstream
// signup referenced an account the legacy table does not know yet.
func (r *registrationRepository) Upsert(ctx context.Context, params repository.UpsertParams) (*model.RegistrationRequest, error) {
	accountQuery := `
		INSERT INTO accounts (
			id, name, email, password_hash, role, status, details,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7, $7)
		ON CONFLICT (id) DO NOTHING
	`
	requestQuery := `
		INSERT INTO registration_requests (
			id, account_id, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (account_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
		RETURNING id, account_id, payload, status, created_at, updated_at
	`

	now := time.Now()
	var request model.RegistrationRequest

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, accountQuery,
			params.AccountID,
			params.Payload.FullName,
			params.Payload.Email,
			params.PasswordHash,
			params.Payload.Role,
			model.AccountStatusPending,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to ensure account: %w", err)
		}

		return tx.GetContext(ctx, &request, requestQuery,
			uuid.New(),
			params.AccountID,
			params.Payload,
			model.RegistrationStatusPending,
			now,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert registration: %w", err)
	}

	return &request, nil
}

// Transition moves one pending registration into a terminal state. Both the
// accounts row and the registration_requests row (when one exists) change
// inside a single transaction; callers never observe partial effects.
//
// The account mutation is a single conditional write guarded by
// status = 'pending', so of two concurrent calls exactly one commits and the
// other gets not-found. Legacy accounts with no registration_requests row are
// transitioned through the same conditional write, with the supplied id
// interpreted as the account id.
func (r *registrationRepository) Transition(ctx context.Context, id uuid.UUID, params repository.TransitionParams) (*repository.TransitionResult, error) {
	if !params.Target.Terminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid target status: %s", params.Target), nil)
	}

	requestQuery := `
		SELECT id, account_id, payload, status, created_at, updated_at
		FROM registration_requests
		WHERE id = $1 AND status = $2
	`
	markRequestQuery := `
		UPDATE registration_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`

	result := &repository.TransitionResult{}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		accountID := id
		var request model.RegistrationRequest

		err := tx.GetContext(ctx, &request, requestQuery, id, model.RegistrationStatusPending)
		switch {
		case err == nil:
			accountID = request.AccountID
			result.Request = &request
		case errors.Is(err, sql.ErrNoRows):
			// Legacy row with no dedicated record; fall through with
			// the id treated as the account id.
		default:
			return fmt.Errorf("failed to read registration request: %w", err)
		}

		account, err := r.updateAccount(ctx, tx, accountID, params)
		if err != nil {
			return err
		}
		result.Account = account

		if result.Request != nil {
			res, err := tx.ExecContext(ctx, markRequestQuery,
				request.ID, params.Target, model.RegistrationStatusPending)
			if err != nil {
				return fmt.Errorf("failed to update registration request: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rows == 0 {
				return apperrors.NotFound("pending registration", nil)
			}
			result.Request.Status = params.Target
		}

		return r.recordEvent(ctx, tx, account, params)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// updateAccount performs the conditional status write. When a credential is
// being granted, a unique-index collision on details->>'unique_id' rolls back
// to a savepoint and retries with a freshly issued value, up to MaxRetries.
func (r *registrationRepository) updateAccount(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, params repository.TransitionParams) (*model.Account, error) {
	accountQuery := `
		UPDATE accounts
		SET status = $2, details = details || $3::jsonb, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id, name, email, password_hash, role, status, details, created_at, updated_at
	`

	attempts := 1
	var credential string
	if params.Credential != nil {
		credential = params.Credential()
		if params.MaxRetries > 1 {
			attempts = params.MaxRetries
		}
	}

	var account model.Account
	for attempt := 0; attempt < attempts; attempt++ {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT account_transition"); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		patch, err := detailsPatch(params, credential)
		if err != nil {
			return nil, err
		}

		err = tx.GetContext(ctx, &account, accountQuery,
			accountID, params.Target.AccountStatus(), patch, model.AccountStatusPending)
		if err == nil {
			return &account, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("pending registration", err)
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation &&
			params.Credential != nil && attempt < attempts-1 {
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT account_transition"); err != nil {
				return nil, fmt.Errorf("failed to roll back savepoint: %w", err)
			}
			credential = params.Credential()
			continue
		}

		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return nil, fmt.Errorf("credential issuance exhausted after %d attempts", attempts)
}

func detailsPatch(params repository.TransitionParams, credential string) ([]byte, error) {
	patch := model.JSONMap{}
	switch params.Target {
	case model.RegistrationStatusApproved:
		if credential != "" {
			patch[model.DetailUniqueID] = credential
		}
	case model.RegistrationStatusRejected:
		patch[model.DetailRejectionReason] = params.Reason
	}

	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal details patch: %w", err)
	}
	return data, nil
}

// recordEvent writes the lifecycle event into the outbox within the same
// transaction as the state change it describes.
func (r *registrationRepository) recordEvent(ctx context.Context, tx *sqlx.Tx, account *model.Account, params repository.TransitionParams) error {
	eventType := model.EventRegistrationApproved
	if params.Target == model.RegistrationStatusRejected {
		eventType = model.EventRegistrationRejected
	}

	payload, err := json.Marshal(model.RegistrationEvent{
		AccountID: account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
		UniqueID:  account.UniqueID(),
		Reason:    params.Reason,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
	`
	_, err = tx.ExecContext(ctx, query,
		uuid.New(), eventType, payload, model.OutboxStatusPending, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record outbox event: %w", err)
	}
	return nil
}

func (r *registrationRepository) Get(ctx context.Context, id uuid.UUID) (*model.RegistrationRequest, error) {
	query := `
		SELECT r.id, r.account_id, r.payload, r.status, r.created_at, r.updated_at,
			COALESCE(a.details, '{}'::jsonb) AS details
		FROM registration_requests r
		LEFT JOIN accounts a ON a.id = r.account_id
		WHERE r.id = $1
	`
	var request model.RegistrationRequest
	err := r.db.GetContext(ctx, &request, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("registration", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &request, nil
}

func (r *registrationRepository) ListByStatus(ctx context.Context, status model.RegistrationStatus) ([]*model.RegistrationRequest, error) {
	query := `
		SELECT r.id, r.account_id, r.payload, r.status, r.created_at, r.updated_at,
			COALESCE(a.details, '{}'::jsonb) AS details
		FROM registration_requests r
		LEFT JOIN accounts a ON a.id = r.account_id
		WHERE r.status = $1
		ORDER BY r.created_at DESC
	`
	var requests []*model.RegistrationRequest
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return requests, nil
}
