package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/healthpoint-api/pkg/logger"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService sends plain-text mail through an SMTP relay.
func NewSMTPService(cfg Config) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type logService struct {
	logger *logger.Logger
}

// NewLogService writes mail to the log instead of sending it. Used when no
// SMTP host is configured.
func NewLogService(log *logger.Logger) Service {
	return &logService{logger: log}
}

func (s *logService) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email not sent, no smtp host configured", "to", to, "subject", subject)
	return nil
}

// New picks the SMTP service when a host is configured.
func New(cfg Config, log *logger.Logger) Service {
	if cfg.Host == "" {
		return NewLogService(log)
	}
	return NewSMTPService(cfg)
}
