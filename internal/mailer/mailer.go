// Package mailer は確認コードメールの送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// Sender は確認コードを宛先に送信する。
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// Config はSMTP送信の設定。Hostが空の場合はログ出力のみのSenderを使う。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// New は設定に応じたSenderを返す。
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST is not set; verification codes will only be logged")
		return NewLogSender(logger), nil
	}
	return NewSMTPSender(cfg)
}

// SMTPSender はgo-mailでSMTPサーバーへ送信するSender。
type SMTPSender struct {
	from    string
	timeout time.Duration
	send    func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPSender はSMTPSenderを生成する。接続は送信ごとに確立する。
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{
		from:    cfg.From,
		timeout: cfg.Timeout,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// SendVerificationCode は確認コードを含むメールを送信する。
// 送信はtimeoutで打ち切られる。
func (s *SMTPSender) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	msg, err := buildVerificationMessage(s.from, to, code, ttl)
	if err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func buildVerificationMessage(from, to, code string, ttl time.Duration) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Your verification code")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Your verification code is %s.\nIt expires in %d minutes.\n",
		code, int(ttl.Minutes()),
	))
	return msg, nil
}

// LogSender はメールを送らず、宛先と確認コードをログに出すSender。
// コードが平文で残るため、SMTP未設定の開発環境でのみ使う。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendVerificationCode は送信を行わずにログへ記録する。
func (s *LogSender) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	s.logger.InfoContext(ctx, "verification email (not sent)",
		slog.String("to", to),
		slog.String("code", code),
		slog.Duration("ttl", ttl),
	)
	return nil
}
