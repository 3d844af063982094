// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers OTP codes over SMTP. It is the notifier
// collaborator of the OTP issuer; when SMTP is not configured the issuer
// falls back to surfacing codes in-app.
package email

import (
	"context"
	"fmt"

	"github.com/Railfan3/RevenueRadar/internal/config"
	"github.com/Railfan3/RevenueRadar/internal/i18n"
	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/wneessen/go-mail"
)

// Service sends OTP emails via SMTP using go-mail.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service. An incomplete SMTP config is
// allowed; the service then reports itself as unconfigured.
func NewService(cfg *config.SMTPConfig) *Service {
	return &Service{cfg: cfg}
}

// Configured reports whether the service can actually send mail.
func (s *Service) Configured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// Send delivers an OTP code to recipientEmail with purpose-specific
// subject and body. The send is bounded by ctx; callers put a timeout on
// it so a stalled SMTP conversation cannot hang a request.
func (s *Service) Send(ctx context.Context, recipientEmail, code string, purpose models.Purpose) error {
	if !s.Configured() {
		return fmt.Errorf("SMTP is not configured")
	}

	var subject, body string
	expiresIn := int(purpose.TTL().Minutes())
	data := map[string]any{"Code": code, "ExpiresIn": expiresIn}

	if purpose == models.PurposeRegistration {
		subject = i18n.T(ctx, "otp_email_registration_subject")
		body = i18n.TData(ctx, "otp_email_registration_body", data)
	} else {
		subject = i18n.T(ctx, "otp_email_login_subject")
		body = i18n.TData(ctx, "otp_email_login_body", data)
	}

	return s.send(ctx, recipientEmail, subject, body)
}

// send ships one HTML message over SMTP.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
