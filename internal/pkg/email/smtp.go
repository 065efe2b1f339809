// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"

	"github.com/your-org/storefront-orders/internal/config"
)

// SMTPSender delivers emails straight to an SMTP relay
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates a sender from the email configuration
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     from,
	}
}

// Send delivers email. Port 465 uses implicit TLS, anything else STARTTLS.
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	if s.host == "" || s.username == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	msg := buildMessage(s.from, email)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	serverAddr := fmt.Sprintf("%s:%d", s.host, s.port)

	envelopeFrom := s.username
	if addr := extractAddress(s.from); addr != "" {
		envelopeFrom = addr
	}

	if s.port == 465 {
		return s.sendWithTLS(ctx, serverAddr, auth, envelopeFrom, email.To, msg)
	}
	return smtp.SendMail(serverAddr, auth, envelopeFrom, email.To, msg)
}

// sendWithTLS sends email over an implicit TLS connection
func (s *SMTPSender) sendWithTLS(ctx context.Context, serverAddr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: &tls.Config{ServerName: s.host}}
	conn, err := dialer.DialContext(ctx, "tcp", serverAddr)
	if err != nil {
		return fmt.Errorf("failed to create TLS connection: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send DATA command: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write email content: %w", err)
	}
	return writer.Close()
}

func buildMessage(from string, email *Email) []byte {
	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(email.To, ", "),
		"Subject":      email.Subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg bytes.Buffer
	for _, k := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, headers[k]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)
	return msg.Bytes()
}

func extractAddress(from string) string {
	start := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return from[start+1 : end]
	}
	return from
}
