package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendEmailSender delivers transactional mail through the Resend API.
// Every call site treats delivery as best-effort.
type ResendEmailSender struct {
	client *resend.Client
	from   string
}

func NewResendEmailSender(apiKey, from string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendEmailSender{}
	}
	return &ResendEmailSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendEmailSender) SendVerificationCode(ctx context.Context, email, code, firstName string) error {
	greeting := greet(firstName)
	subject := "Your verification code"
	html := fmt.Sprintf("<p>%s</p><p>Your verification code is:</p><h2>%s</h2><p>It expires in 10 minutes.</p>", greeting, code)
	text := fmt.Sprintf("%s Your verification code is %s. It expires in 10 minutes.", greeting, code)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) SendPasswordResetLink(ctx context.Context, email, firstName, url string) error {
	greeting := greet(firstName)
	subject := "Reset your password"
	html := fmt.Sprintf("<p>%s</p><p>Click to reset your password:</p><p><a href=\"%s\">Reset Password</a></p><p>The link expires in 1 hour.</p>", greeting, url)
	text := fmt.Sprintf("%s Reset your password: %s (expires in 1 hour)", greeting, url)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) SendLoginAlert(ctx context.Context, email, device, browser, location, ip string) error {
	subject := "New login to your account"
	detail := fmt.Sprintf("%s · %s · %s", device, browser, location)
	if ip != "" {
		detail += " · " + ip
	}
	html := fmt.Sprintf("<p>A new login to your account was detected:</p><p>%s</p><p>If this wasn't you, reset your password immediately.</p>", detail)
	text := fmt.Sprintf("New login detected: %s. If this wasn't you, reset your password immediately.", detail)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) send(ctx context.Context, to, subject, html, text string) error {
	if s.client == nil {
		return fmt.Errorf("email sender not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}
	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func greet(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return "Hi,"
	}
	return "Hi " + firstName + ","
}
