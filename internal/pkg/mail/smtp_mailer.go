package mail

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/jariassh/dropcost-master/internal/pkg/env"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// LoadConfig reads SMTP_* from the environment.
func LoadConfig() Config {
	cfg := Config{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
	}
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", cfg.Sender)
	}
	return cfg
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML emails via SMTP
type SMTPMailer struct {
	cfg  Config
	send sendFunc
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// SendMail delivers one HTML message to a single recipient.
func (m *SMTPMailer) SendMail(to, subject, body string) error {
	if m.cfg.Host == "" {
		return ErrNotConfigured
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.cfg.Sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(addr, auth, m.cfg.Sender, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}
