// Package smtp подключается к почтовому серверу для отправки уведомлений.
package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Client покрывает шаги отправки одного письма; *smtp.Client из net/smtp ему соответствует.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer выдаёт сессию и адрес отправителя. Реализуется Transport и моками в тестах.
type Dialer interface {
	Connect() (Client, error)
	Sender() string
}

var _ Dialer = (*Transport)(nil)

// Transport подключается к SMTP-серверу со STARTTLS и PLAIN-аутентификацией.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

// NewTransport создает транспорт по секции smtp конфигурации.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log.With(slog.String("smtp_host", cfg.SMTPHost))}
}

// Connect открывает аутентифицированную сессию.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"

	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", op, addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		t.closeQuietly(conn.Close)
		return nil, fmt.Errorf("%s: new client: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeQuietly(client.Close)
		return nil, fmt.Errorf("%s: server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{ServerName: t.cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		t.closeQuietly(client.Close)
		return nil, fmt.Errorf("%s: starttls: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		t.closeQuietly(client.Close)
		return nil, fmt.Errorf("%s: auth: %w", op, err)
	}
	return client, nil
}

// Sender возвращает адрес отправителя писем.
func (t *Transport) Sender() string {
	return t.cfg.SMTPUser
}

func (t *Transport) closeQuietly(closeFn func() error) {
	if err := closeFn(); err != nil {
		t.log.Error("failed to close smtp connection", sl.Err(err))
	}
}
