package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jariassh/dropcost-master/app/models"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentMail
}

func (f *fakeSender) SendMail(to, subject, body string) error {
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func TestRender(t *testing.T) {
	subject, body, err := Render(EventSubscriptionActivated, map[string]string{
		"amount": "29.99", "currency": "USD", "plan_id": "plan_pro", "period": "monthly", "expires_at": "2025-02-15",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "plan_pro")
	assert.Contains(t, body, "2025-02-15")

	_, body, err = Render(EventReferralCommissionEarned, map[string]string{"amount_usd": "<b>4.50</b>"})
	require.NoError(t, err)
	assert.Contains(t, body, "&lt;b&gt;4.50&lt;/b&gt;")

	_, _, err = Render("UNKNOWN", nil)
	require.Error(t, err)
}

func TestEventMailer_Send(t *testing.T) {
	sender := &fakeSender{}
	m := &EventMailer{Sender: sender, Users: fakeUsers{"R1": {ID: "R1", Email: "r1@example.com"}}}
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, EventReferralCommissionEarned, map[string]string{"user_id": "R1", "amount_usd": "4.50"}))
	require.NoError(t, m.Send(ctx, EventSubscriptionActivated, map[string]string{"user_id": "U1", "email": "payer@example.com"}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "r1@example.com", sender.sent[0].to)
	assert.Equal(t, "payer@example.com", sender.sent[1].to)

	require.Error(t, m.Send(ctx, EventReferralCommissionEarned, map[string]string{"user_id": "ghost"}))
	require.Error(t, m.Send(ctx, EventReferralCommissionEarned, map[string]string{}))
}

func TestSMTPMailer_SendMail(t *testing.T) {
	var gotAddr, gotFrom string
	var gotMsg []byte
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "2525", Sender: "billing@dropcost.test"})
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg = addr, from, msg
		assert.Equal(t, []string{"u1@example.com"}, to)
		return nil
	}

	require.NoError(t, m.SendMail("u1@example.com", "Hola", "<p>body</p>"))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "billing@dropcost.test", gotFrom)
	assert.Contains(t, string(gotMsg), "Subject: Hola\r\n")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")

	unconfigured := NewSMTPMailer(Config{})
	require.ErrorIs(t, unconfigured.SendMail("u1@example.com", "x", "y"), ErrNotConfigured)
}
