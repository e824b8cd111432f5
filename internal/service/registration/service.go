package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sdmydbr9/EVMR-sub001/internal/config"
	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/internal/notifier"
	"github.com/sdmydbr9/EVMR-sub001/internal/repository"
	apperrors "github.com/sdmydbr9/EVMR-sub001/pkg/errors"
	"github.com/sdmydbr9/EVMR-sub001/pkg/logger"
	"github.com/sdmydbr9/EVMR-sub001/pkg/metrics"
	"github.com/sdmydbr9/EVMR-sub001/pkg/security"
)

// Servicer is what the HTTP layer depends on
type Servicer interface {
	Ingest(ctx context.Context, accountID uuid.UUID, submission model.Submission) (*model.RegistrationRequest, error)
	Approve(ctx context.Context, id uuid.UUID) (*repository.TransitionResult, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*repository.TransitionResult, error)
	List(ctx context.Context, stage model.RegistrationStatus) ([]*model.RegistrationView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RegistrationView, error)
}

// Service orchestrates the pending -> {approved, rejected} state machine.
// The store owns atomicity; this layer owns validation, credential policy and
// the best-effort notification hooks.
type Service struct {
	repo     repository.RegistrationRepository
	accounts repository.AccountRepository
	reader   *Reader
	issuer   CredentialIssuer
	notifier notifier.Notifier
	hasher   security.PasswordHasher
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *logger.Logger
	cfg      config.RegistrationConfig
}

func NewService(
	repo repository.RegistrationRepository,
	accounts repository.AccountRepository,
	reader *Reader,
	issuer CredentialIssuer,
	notif notifier.Notifier,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg config.RegistrationConfig,
) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		reader:   reader,
		issuer:   issuer,
		notifier: notif,
		hasher:   security.NewBcryptHasher(cfg.BcryptCost),
		validate: validator.New(),
		metrics:  m,
		logger:   log,
		cfg:      cfg,
	}
}

// Ingest validates and stores one submission from the upstream signup
// collaborator. Ingestion is an upsert keyed on account id, so re-delivery of
// the same account's submission replaces the payload instead of duplicating
// the row.
func (s *Service) Ingest(ctx context.Context, accountID uuid.UUID, submission model.Submission) (*model.RegistrationRequest, error) {
	if accountID == uuid.Nil {
		return nil, apperrors.BadRequest("account id is required", nil)
	}
	if err := s.validateSubmission(submission); err != nil {
		return nil, err
	}

	var passwordHash string
	if submission.Password != "" {
		hash, err := s.hasher.Hash(submission.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = hash
		submission.Password = ""
	}

	request, err := s.repo.Upsert(ctx, repository.UpsertParams{
		AccountID:    accountID,
		Payload:      submission,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RegistrationsIngested.Inc()
	s.reader.Invalidate()

	s.logger.Info("registration ingested",
		"account_id", accountID.String(),
		"role", string(submission.Role))

	return request, nil
}

// Approve transitions one pending registration to approved, issuing a
// role-scoped credential where the role carries one. The subject is notified
// after commit; notification failure is logged and swallowed because the
// state change is already durable.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*repository.TransitionResult, error) {
	role, err := s.resolveRole(ctx, id)
	if err != nil {
		return nil, err
	}

	params := repository.TransitionParams{
		Target:     model.RegistrationStatusApproved,
		MaxRetries: s.cfg.CredentialRetry,
	}
	if _, eligible := s.issuer.Issue(role); eligible {
		params.Credential = func() string {
			credential, _ := s.issuer.Issue(role)
			return credential
		}
	}

	result, err := s.repo.Transition(ctx, id, params)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.metrics.TransitionConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.RegistrationsApproved.Inc()
	s.reader.Invalidate()

	account := result.Account
	s.logger.Info("registration approved",
		"account_id", account.ID.String(),
		"role", string(account.Role))

	go s.notifyApproved(account)

	return result, nil
}

// Reject transitions one pending registration to rejected. The reason is
// mandatory and is validated before the store is touched.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*repository.TransitionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.BadRequest("rejection reason is required", nil)
	}

	result, err := s.repo.Transition(ctx, id, repository.TransitionParams{
		Target: model.RegistrationStatusRejected,
		Reason: reason,
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.metrics.TransitionConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.RegistrationsRejected.Inc()
	s.reader.Invalidate()

	account := result.Account
	s.logger.Info("registration rejected",
		"account_id", account.ID.String(),
		"reason", reason)

	go s.notifyRejected(account, reason)

	return result, nil
}

// List serves reconciled views for one stage
func (s *Service) List(ctx context.Context, stage model.RegistrationStatus) ([]*model.RegistrationView, error) {
	return s.reader.List(ctx, stage)
}

// Get serves one reconciled view
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.RegistrationView, error) {
	return s.reader.Get(ctx, id)
}

// resolveRole finds the role of the record under review, looking at the
// dedicated table first and at legacy accounts rows for ids that predate it
func (s *Service) resolveRole(ctx context.Context, id uuid.UUID) (model.Role, error) {
	request, err := s.repo.Get(ctx, id)
	if err == nil {
		return request.Payload.Role, nil
	}
	if !apperrors.IsNotFound(err) {
		return "", err
	}

	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

func (s *Service) notifyApproved(account *model.Account) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.Approved(ctx, account, account.UniqueID()); err != nil {
		s.metrics.NotifierFailures.WithLabelValues("approved").Inc()
		s.logger.Error(err, "approval notification failed",
			"account_id", account.ID.String())
	}
}

func (s *Service) notifyRejected(account *model.Account, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.Rejected(ctx, account, reason); err != nil {
		s.metrics.NotifierFailures.WithLabelValues("rejected").Inc()
		s.logger.Error(err, "rejection notification failed",
			"account_id", account.ID.String())
	}
}

// validateSubmission checks the role-tagged payload once, at the boundary.
// The branch matching the role must be present; stray branches for other
// roles are rejected rather than silently ignored.
func (s *Service) validateSubmission(submission model.Submission) error {
	if err := s.validate.Struct(submission); err != nil {
		return apperrors.BadRequest("invalid submission", err)
	}

	switch submission.Role {
	case model.RoleVeterinarian:
		if submission.Veterinarian == nil {
			return apperrors.BadRequest("veterinarian details are required", nil)
		}
		if submission.PetParent != nil || submission.Organisation != nil {
			return apperrors.BadRequest("submission carries details for a different role", nil)
		}
	case model.RoleOrgAdmin:
		if submission.Organisation == nil {
			return apperrors.BadRequest("organisation details are required", nil)
		}
		if submission.PetParent != nil || submission.Veterinarian != nil {
			return apperrors.BadRequest("submission carries details for a different role", nil)
		}
	case model.RolePetParent:
		if submission.Veterinarian != nil || submission.Organisation != nil {
			return apperrors.BadRequest("submission carries details for a different role", nil)
		}
	default:
		return apperrors.BadRequest(fmt.Sprintf("unsupported role: %s", submission.Role), nil)
	}

	return nil
}
