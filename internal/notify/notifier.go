// Package notify delivers claim notifications by mail.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier sends one message to one address.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier only logs. Used in development and when no mail backend is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, address, subject, body string) error {
	n.logger.Info("notification",
		zap.String("to", address),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}

// MailRelayNotifier posts messages to an HTTP mail relay:
// POST {relay} {"from","to","subject","text"}.
type MailRelayNotifier struct {
	relayURL   string
	from       string
	httpClient *resty.Client
}

type relayMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func NewMailRelayNotifier(relayURL, token, from string, timeout time.Duration) *MailRelayNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &MailRelayNotifier{relayURL: relayURL, from: from, httpClient: client}
}

func (n *MailRelayNotifier) Send(ctx context.Context, address, subject, body string) error {
	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(relayMessage{From: n.from, To: address, Subject: subject, Text: body}).
		Post(n.relayURL)
	if err != nil {
		return fmt.Errorf("mail relay request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode())
	}
	return nil
}

// SMTPNotifier sends plain-text mail through an SMTP server.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(addr, user, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if user != "" {
		host := addr
		if i := strings.LastIndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPNotifier{addr: addr, from: from, auth: auth, send: smtp.SendMail}
}

func (n *SMTPNotifier) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMIME(n.from, address, subject, body)
	if err := n.send(n.addr, n.auth, n.from, []string{address}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func buildMIME(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
