package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	EventSubscriptionActivated    = "SUBSCRIPTION_ACTIVATED"
	EventReferralCommissionEarned = "REFERRAL_COMMISSION_EARNED"
)

type eventTemplate struct {
	subject string
	body    *template.Template
}

var eventTemplates = map[string]eventTemplate{
	EventSubscriptionActivated: {
		subject: "Tu suscripción DropCost está activa",
		body: template.Must(template.New("subscription").Parse(`<p>Hola,</p>
<p>Recibimos tu pago de {{.amount}} {{.currency}}. Tu plan <strong>{{.plan_id}}</strong> ({{.period}}) está activo hasta el {{.expires_at}}.</p>
<p>Gracias por usar DropCost.</p>`)),
	},
	EventReferralCommissionEarned: {
		subject: "Ganaste una comisión por referido",
		body: template.Must(template.New("commission").Parse(`<p>Hola,</p>
<p>Uno de tus referidos activó su plan. Acreditamos <strong>{{.amount_usd}} USD</strong> en tu billetera.</p>
<p>Referencia de pago: {{.payment_id}}</p>`)),
	},
}

// Render returns the subject and HTML body for event.
func Render(event string, data map[string]string) (string, string, error) {
	tpl, ok := eventTemplates[event]
	if !ok {
		return "", "", fmt.Errorf("no email template for event %s", event)
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", event, err)
	}
	return tpl.subject, buf.String(), nil
}
