package notifier

import (
	"context"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
)

// Notifier is the best-effort communication hook invoked after a registration
// decision commits. Failures are the caller's to log and swallow; they must
// never block or revert the decision.
type Notifier interface {
	Approved(ctx context.Context, account *model.Account, credential string) error
	Rejected(ctx context.Context, account *model.Account, reason string) error
}

// Noop discards all notifications; used in tests and when SMTP is not
// configured.
type Noop struct{}

func (Noop) Approved(_ context.Context, _ *model.Account, _ string) error { return nil }
func (Noop) Rejected(_ context.Context, _ *model.Account, _ string) error { return nil }
