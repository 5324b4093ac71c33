package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
)

// Send implements Client. The message is composed as MIME and submitted over
// SMTP: implicit TLS on port 465, STARTTLS otherwise.
func (c *IMAPClient) Send(ctx context.Context, msg *Outgoing) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrValidation)
	}
	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: attachment file %s", ErrNotFound, path)
		}
	}

	raw, err := c.composeMessage(msg)
	if err != nil {
		return err
	}

	auth, err := c.smtpAuth(ctx)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", c.smtpHost, c.smtpPort)
	tlsConfig := &tls.Config{ServerName: c.smtpHost, MinVersion: tls.VersionTLS12}

	var sc *smtp.Client
	if c.smtpPort == 465 {
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: c.timeout}, "tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
		}
		sc = smtp.NewClient(conn)
	} else {
		sc, err = smtp.DialStartTLS(addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
		}
	}
	defer sc.Close()

	if err := sc.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate with SMTP server: %w", err)
	}

	if err := sc.Mail(c.email, nil); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range recipients(msg) {
		if err := sc.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	wc, err := sc.Data()
	if err != nil {
		return fmt.Errorf("failed to open data stream: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	c.logger.WithField("to", msg.To).Info("Message sent via SMTP")
	return sc.Quit()
}

// smtpAuth picks the SASL mechanism matching the configured credentials.
func (c *IMAPClient) smtpAuth(ctx context.Context) (sasl.Client, error) {
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		return NewXOAuth2Client(c.email, token), nil
	}
	return sasl.NewPlainClient("", c.email, c.password), nil
}

// composeMessage builds the MIME wire form of an outgoing message.
func (c *IMAPClient) composeMessage(msg *Outgoing) ([]byte, error) {
	b := enmime.Builder().
		From("", c.email).
		Subject(msg.Subject)

	for _, addr := range msg.To {
		b = b.To("", addr)
	}
	for _, addr := range msg.Cc {
		b = b.CC("", addr)
	}
	for _, addr := range msg.Bcc {
		b = b.BCC("", addr)
	}

	if msg.Text != "" {
		b = b.Text([]byte(msg.Text))
	}
	if msg.HTML != "" {
		b = b.HTML([]byte(msg.HTML))
	}
	for _, path := range msg.Attachments {
		b = b.AddFileAttachment(path)
	}

	part, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

func recipients(msg *Outgoing) []string {
	all := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	all = append(all, msg.To...)
	all = append(all, msg.Cc...)
	all = append(all, msg.Bcc...)
	return all
}
