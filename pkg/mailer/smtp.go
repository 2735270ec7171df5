package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

// SMTPSender delivers OTP emails through an SMTP relay using STARTTLS when offered.
type SMTPSender struct {
	config  utils.EmailConfig
	appName string
	log     *zap.Logger
}

func NewSMTPSender(config utils.EmailConfig, appName string, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		config:  config,
		appName: appName,
		log:     log.With(zap.String("mailer", "smtp")),
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, code string) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig(s.config.Host)); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.config.User != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt %s: %w", email, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(s.message(email, code)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	s.log.Info("OTP email sent", zap.String("email", email))
	return client.Quit()
}

func (s *SMTPSender) message(to, code string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Your %s login code\r\n", s.appName)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Your login code is %s. It expires in 5 minutes.\r\n", code)
	return b.Bytes()
}
