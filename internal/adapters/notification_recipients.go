package adapters

import (
	"context"
	"errors"

	agentsrepo "crm_backend/internal/agents/repository"
	"crm_backend/internal/notification"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// NotificationRecipients resolves notified users from the user directory.
type NotificationRecipients struct {
	users UserDirectory
}

func NewNotificationRecipients(users UserDirectory) *NotificationRecipients {
	return &NotificationRecipients{users: users}
}

func (r *NotificationRecipients) ResolveRecipient(ctx context.Context, tenantID, userID uuid.UUID) (notification.Recipient, error) {
	u, err := r.users.GetUser(ctx, tenantID, userID)
	if errors.Is(err, agentsrepo.ErrNotFound) {
		return notification.Recipient{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return notification.Recipient{}, err
	}
	if !u.Active {
		return notification.Recipient{}, apperr.Gone("user is inactive")
	}
	return notification.Recipient{
		Name:  buildDisplayName(u.FirstName, u.LastName, u.Email),
		Email: u.Email,
	}, nil
}

var _ notification.RecipientResolver = (*NotificationRecipients)(nil)
