// Package sender отправляет письма о сессиях из очередей уведомлений.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/calendar"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/smtp"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Service превращает сообщения о сессиях в письма с приложенным событием календаря.
type Service struct {
	dialer smtp.Dialer
	log    *slog.Logger
	now    func() time.Time
}

// New создает сервис отправки писем.
func New(dialer smtp.Dialer, log *slog.Logger) *Service {
	return &Service{dialer: dialer, log: log, now: time.Now}
}

// HandleConfirmation отправляет подтверждение новой сессии.
func (s *Service) HandleConfirmation(ctx context.Context, body []byte) error {
	return s.handle(ctx, body, models.NotificationConfirmation)
}

// HandleReminder отправляет напоминание о предстоящей сессии.
func (s *Service) HandleReminder(ctx context.Context, body []byte) error {
	return s.handle(ctx, body, models.NotificationReminder)
}

func (s *Service) handle(ctx context.Context, body []byte, kind string) error {
	const op = "sender.handle"
	log := s.log.With(slog.String("op", op), slog.String("kind", kind))

	var msg models.BookingConfirmation
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: unmarshal message: %w", op, errors.Join(rabbitmq.ErrDrop, err))
	}
	if msg.Email == "" {
		return fmt.Errorf("%s: booking %s: %w", op, msg.BookingID, errors.Join(rabbitmq.ErrDrop, errors.New("empty recipient")))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	event := calendar.FromNotification(msg)
	subject, text := render(kind, msg, calendar.GoogleURL(event))
	raw, err := compose(s.dialer.Sender(), msg.Email, subject, text, calendar.ICS(event, s.now()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.send(msg.Email, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("email sent", slog.String("booking_id", msg.BookingID))
	return nil
}

func render(kind string, msg models.BookingConfirmation, calendarURL string) (string, string) {
	when := msg.ScheduledAt.UTC().Format("02.01.2006 15:04 MST")

	var subject, intro string
	if kind == models.NotificationReminder {
		subject = "Напоминание о сессии с ментором"
		intro = fmt.Sprintf("Напоминаем, что %s у вас сессия с ментором %s.", when, msg.MentorName)
	} else {
		subject = "Сессия с ментором запланирована"
		intro = fmt.Sprintf("Ваша сессия с ментором %s запланирована на %s.", msg.MentorName, when)
	}

	lines := []string{
		"Здравствуйте!",
		"",
		intro,
		fmt.Sprintf("Длительность: %d мин.", msg.Duration),
	}
	if msg.MeetingURL != "" {
		lines = append(lines, "Ссылка на встречу: "+msg.MeetingURL)
	}
	lines = append(lines, "", "Добавить в Google Calendar: "+calendarURL,
		"Событие для других календарей приложено к письму.")
	return subject, strings.Join(lines, "\r\n")
}

// compose собирает письмо multipart/mixed: текст и файл invite.ics.
func compose(from, to, subject, text string, ics []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", mw.Boundary()),
		"",
		"",
	}, "\r\n")
	out := bytes.NewBufferString(header)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/plain; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(text)); err != nil {
		return nil, err
	}

	part, err = mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":        {`text/calendar; charset="UTF-8"; method=PUBLISH`},
		"Content-Disposition": {`attachment; filename="invite.ics"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(ics); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

func (s *Service) send(to string, raw []byte) error {
	client, err := s.dialer.Connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(s.dialer.Sender()); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to %s: %w", to, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	return nil
}
