package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/RivalWatch/internal/config"
)

// ErrMailDisabled is returned when SMTP credentials are missing.
var ErrMailDisabled = errors.New("email not configured")

// Attachment is a file sent alongside the HTML body.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outgoing mail.
type Message struct {
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers the digest over SMTP with STARTTLS and PLAIN auth.
type Mailer struct {
	cfg     config.EmailConfig
	timeout time.Duration
	tls     *tls.Config
	logger  *slog.Logger
}

// NewMailer creates a mailer from the email config section.
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{
		cfg:     cfg,
		timeout: 30 * time.Second,
		tls:     &tls.Config{ServerName: cfg.SMTPServer},
		logger:  logger.With("component", "mailer"),
	}
}

// Send delivers msg to every configured recipient.
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	if !m.cfg.Enabled() {
		return ErrMailDisabled
	}
	if len(m.cfg.To) == 0 {
		return fmt.Errorf("email.to must list at least one recipient")
	}

	boundary := fmt.Sprintf("mixed_%d", time.Now().UnixNano())
	content := BuildMessage(m.cfg.From, m.cfg.To, msg, boundary)

	addr := net.JoinHostPort(m.cfg.SMTPServer, strconv.Itoa(m.cfg.SMTPPort))
	m.logger.Info("sending email", "server", addr, "recipients", len(m.cfg.To), "bytes", len(content))
	if err := m.send(ctx, addr, content); err != nil {
		return err
	}
	m.logger.Info("email sent", "subject", msg.Subject)
	return nil
}

func (m *Mailer) send(ctx context.Context, addr string, content []byte) error {
	d := &net.Dialer{Timeout: m.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(m.tls); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPServer)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(addressOnly(m.cfg.From)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range m.cfg.To {
		if err := client.Rcpt(addressOnly(rcpt)); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// BuildMessage renders msg as a MIME document. Attachments switch the body
// to multipart/mixed.
func BuildMessage(from string, to []string, msg *Message, boundary string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		writeHTMLPart(&b, msg.HTML)
		return b.Bytes()
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\n", boundary)
	writeHTMLPart(&b, msg.HTML)
	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		name := mime.QEncoding.Encode("utf-8", a.Filename)
		fmt.Fprintf(&b, "\r\n--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s; name=\"%s\"\r\n", ct, name)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", name)
		writeBase64(&b, a.Content)
	}
	fmt.Fprintf(&b, "\r\n--%s--\r\n", boundary)
	return b.Bytes()
}

func writeHTMLPart(b *bytes.Buffer, html string) {
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	writeBase64(b, []byte(html))
}

// writeBase64 writes data in 76-character lines (RFC 2045).
func writeBase64(b *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += 76 {
		end := min(i+76, len(encoded))
		b.WriteString(encoded[i:end])
		b.WriteString("\r\n")
	}
}

// addressOnly strips a display name: "Ops <ops@example.com>" -> "ops@example.com".
func addressOnly(s string) string {
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Address
	}
	return strings.TrimSpace(s)
}
