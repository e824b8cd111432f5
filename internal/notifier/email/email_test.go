package email

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
)

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, m...)
	return nil
}

func testAccount() *model.Account {
	return &model.Account{
		ID:    uuid.New(),
		Name:  "Dr. Jane Doe",
		Email: "jane.doe@example.com",
		Role:  model.RoleVeterinarian,
	}
}

func TestApprovedEmailCarriesCredential(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "noreply@example.com")

	err := n.Approved(context.Background(), testAccount(), "VET-TESTAAAA")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"jane.doe@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your registration has been approved"}, msg.GetHeader("Subject"))
}

func TestRejectedEmail(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "noreply@example.com")

	err := n.Rejected(context.Background(), testAccount(), "license expired")
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"Your registration was not approved"}, sender.messages[0].GetHeader("Subject"))
}

func TestSendFailureIsReturned(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	n := NewNotifierWithSender(sender, "noreply@example.com")

	err := n.Approved(context.Background(), testAccount(), "VET-TESTAAAA")
	assert.Error(t, err)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "noreply@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Approved(ctx, testAccount(), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.messages)
}
