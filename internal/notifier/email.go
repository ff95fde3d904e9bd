package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string // SMTP server host
	Port     int    // SMTP server port (465 for implicit TLS, 587 for STARTTLS)
	Username string // SMTP username (optional)
	Password string // SMTP password (optional)
	From     string // From address
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// SMTPMailer delivers messages over SMTP, one recipient per send.
type SMTPMailer struct {
	config EmailConfig
}

// NewSMTPMailer creates a new SMTP mailer.
func NewSMTPMailer(config EmailConfig) (*SMTPMailer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	return &SMTPMailer{config: config}, nil
}

// Send delivers the message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to string, msg *Message) error {
	if to == "" {
		return &SendError{Permanent: true, Err: fmt.Errorf("empty recipient address")}
	}
	body := m.buildMIMEMessage(to, msg)
	return m.sendMail(ctx, to, body)
}

// Close is a no-op for the SMTP mailer.
func (m *SMTPMailer) Close() error {
	return nil
}

// buildMIMEMessage builds a MIME multipart message with HTML and plain text.
func (m *SMTPMailer) buildMIMEMessage(to string, msg *Message) []byte {
	boundary := fmt.Sprintf("----=_Part_%d", time.Now().UnixNano())

	var b strings.Builder

	// Headers
	b.WriteString(fmt.Sprintf("From: %s\r\n", m.config.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	b.WriteString("\r\n")

	// Plain text part
	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.PlainBody)
	b.WriteString("\r\n")

	// HTML part
	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")

	// End boundary
	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(b.String())
}

// sendMail sends the message via SMTP.
func (m *SMTPMailer) sendMail(ctx context.Context, to string, body []byte) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	tlsConfig := &tls.Config{
		ServerName: m.config.Host,
	}

	var client *smtp.Client
	var err error

	if m.config.Port == 465 {
		// Implicit TLS (SMTPS)
		client, err = m.connectImplicitTLS(addr, tlsConfig)
	} else {
		// STARTTLS (port 587 or 25)
		client, err = m.connectSTARTTLS(ctx, addr, tlsConfig)
	}
	if err != nil {
		return &SendError{Err: fmt.Errorf("connect to SMTP server: %w", err)}
	}
	defer client.Close()

	if m.config.Username != "" && m.config.Password != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return &SendError{Err: fmt.Errorf("SMTP authentication: %w", err)}
		}
	}

	if err := client.Mail(extractEmail(m.config.From)); err != nil {
		return &SendError{Err: fmt.Errorf("set sender: %w", err)}
	}

	// A rejected recipient is a bad address; retrying the same address
	// cannot help.
	if err := client.Rcpt(to); err != nil {
		return &SendError{Permanent: true, Err: fmt.Errorf("recipient %s rejected: %w", to, err)}
	}

	w, err := client.Data()
	if err != nil {
		return &SendError{Err: fmt.Errorf("start data: %w", err)}
	}

	if _, err := w.Write(body); err != nil {
		return &SendError{Err: fmt.Errorf("write message: %w", err)}
	}

	if err := w.Close(); err != nil {
		return &SendError{Err: fmt.Errorf("close data: %w", err)}
	}

	if err := client.Quit(); err != nil {
		return &SendError{Err: fmt.Errorf("quit: %w", err)}
	}
	return nil
}

// connectImplicitTLS connects using implicit TLS (port 465).
func (m *SMTPMailer) connectImplicitTLS(addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, m.config.Host)
}

// connectSTARTTLS connects using STARTTLS (port 587 or 25).
func (m *SMTPMailer) connectSTARTTLS(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}

// extractEmail extracts the email address from a "Name <email>" format.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end != -1 {
			return addr[start+1 : end]
		}
	}
	return addr
}
