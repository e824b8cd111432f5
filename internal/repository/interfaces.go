package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
)

// UpsertParams carries one inbound registration submission
type UpsertParams struct {
	AccountID    uuid.UUID
	Payload      model.Submission
	PasswordHash string
}

// TransitionParams drives the pending -> terminal state change. Credential is
// consulted only on approval and may be called more than once when the issued
// value collides with an already granted one.
type TransitionParams struct {
	Target     model.RegistrationStatus
	Credential func() string
	Reason     string
	MaxRetries int
}

// TransitionResult reports the records as committed
type TransitionResult struct {
	Account *model.Account
	Request *model.RegistrationRequest
}

// RegistrationRepository owns the dedicated registration_requests table and
// the transactional coupling with the legacy accounts table.
type RegistrationRepository interface {
	Upsert(ctx context.Context, params UpsertParams) (*model.RegistrationRequest, error)
	Transition(ctx context.Context, id uuid.UUID, params TransitionParams) (*TransitionResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RegistrationRequest, error)
	ListByStatus(ctx context.Context, status model.RegistrationStatus) ([]*model.RegistrationRequest, error)
}

// AccountRepository is the read side over the legacy accounts table
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
	ListByStatus(ctx context.Context, status model.AccountStatus) ([]*model.Account, error)
}

// OutboxRepository stores lifecycle events for asynchronous publication
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
