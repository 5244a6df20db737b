// Package email sends share notifications over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends templated HTML email.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   SendFunc
}

// NewService creates an email service. send may be nil to use smtp.SendMail.
func NewService(config Config, send SendFunc) *Service {
	if send == nil {
		send = smtp.SendMail
	}
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   send,
	}
}

// IsConfigured returns true if SMTP is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTML sends one HTML email with a plain-text fallback part.
func (s *Service) SendHTML(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", headerSafe(s.config.FromName), s.config.From)
	}

	boundary := "foru-boundary"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", headerSafe(strings.Join(to, ", ")))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerSafe(subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "Someone sent you something special on FORU. Open this email in an HTML-capable client to see it.\r\n\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	if err := s.send(s.server, s.auth, s.config.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// ShareNotification is the data for the share notification email.
type ShareNotification struct {
	SenderName string
	ShareURL   string
}

// SendShareNotification tells the recipient that a bouquet is waiting.
func (s *Service) SendShareNotification(to string, n ShareNotification) error {
	if n.SenderName == "" {
		n.SenderName = "Someone"
	}
	html, err := renderTemplate(shareTemplate, n)
	if err != nil {
		return fmt.Errorf("render share template: %w", err)
	}
	subject := fmt.Sprintf("%s sent you something special", n.SenderName)
	return s.SendHTML([]string{to}, subject, html)
}

var shareTemplate = template.Must(template.New("share").Parse(shareEmailTemplate))

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

const shareEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>A gift from {{.SenderName}}</title>
    <style>
        body { font-family: Georgia, 'Times New Roman', serif; line-height: 1.6; color: #4a2c2a; max-width: 560px; margin: 0 auto; padding: 24px; background: #fff7f5; }
        .card { background: #ffffff; border-radius: 12px; padding: 32px; text-align: center; }
        .flower { font-size: 48px; }
        .button { display: inline-block; padding: 12px 28px; background: #d9486b; color: #ffffff; text-decoration: none; border-radius: 24px; margin: 20px 0; }
        .footer { margin-top: 24px; font-size: 12px; color: #9b7b78; text-align: center; }
    </style>
</head>
<body>
    <div class="card">
        <div class="flower">💐</div>
        <h2>{{.SenderName}} made something for you</h2>
        {{if .ShareURL}}
        <p>
            <a href="{{.ShareURL}}" class="button">Open your gift</a>
        </p>
        {{else}}
        <p>Keep an eye out for the link they share with you.</p>
        {{end}}
    </div>
    <div class="footer">
        <p>Sent with FORU</p>
    </div>
</body>
</html>`
