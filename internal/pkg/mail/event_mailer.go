package mail

import (
	"context"
	"fmt"

	"github.com/jariassh/dropcost-master/app/models"
)

// UserLookup resolves the address of a notification recipient.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Sender delivers a rendered message.
type Sender interface {
	SendMail(to, subject, body string) error
}

// EventMailer turns queued notification events into emails.
type EventMailer struct {
	Sender Sender
	Users  UserLookup
}

// Send renders event and mails it to the user named in data["user_id"].
// An explicit data["email"] wins over the stored profile address.
func (m *EventMailer) Send(ctx context.Context, event string, data map[string]string) error {
	to := data["email"]
	if to == "" {
		userID := data["user_id"]
		if userID == "" {
			return fmt.Errorf("%s notification has no recipient", event)
		}
		user, err := m.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("lookup recipient %s: %w", userID, err)
		}
		to = user.Email
	}
	if to == "" {
		return fmt.Errorf("user %s has no email address", data["user_id"])
	}

	subject, body, err := Render(event, data)
	if err != nil {
		return err
	}
	return m.Sender.SendMail(to, subject, body)
}
