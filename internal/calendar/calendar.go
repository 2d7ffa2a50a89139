// Package calendar выгружает сессию в iCalendar (RFC 5545) и в ссылку-шаблон Google Calendar.
package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

const (
	prodID     = "-//mentorship-booking//booking//EN"
	stampFmt   = "20060102T150405Z"
	googleBase = "https://calendar.google.com/calendar/render"
	foldWidth  = 75
)

// Event: событие календаря.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// FromNotification строит событие по сообщению о сессии.
func FromNotification(msg models.BookingConfirmation) Event {
	start := msg.ScheduledAt.UTC()
	e := Event{
		UID:      msg.BookingID + "@mentorship-booking",
		Summary:  "Mentoring session with " + msg.MentorName,
		Location: msg.MeetingURL,
		Start:    start,
		End:      start.Add(time.Duration(msg.Duration) * time.Minute),
	}
	if msg.Notes != "" {
		e.Description = msg.Notes
	}
	return e
}

// FromBooking строит событие по сессии.
func FromBooking(b models.Booking, mentorName string) Event {
	return FromNotification(models.NewNotification(models.NotificationConfirmation, b, mentorName))
}

// ICS возвращает календарь из одного события. stamp попадает в DTSTAMP.
func ICS(e Event, stamp time.Time) []byte {
	var b strings.Builder
	line := func(name, value string) {
		b.WriteString(fold(name + ":" + value))
		b.WriteString("\r\n")
	}

	line("BEGIN", "VCALENDAR")
	line("VERSION", "2.0")
	line("PRODID", prodID)
	line("CALSCALE", "GREGORIAN")
	line("METHOD", "PUBLISH")
	line("BEGIN", "VEVENT")
	line("UID", escape(e.UID))
	line("DTSTAMP", stamp.UTC().Format(stampFmt))
	line("DTSTART", e.Start.UTC().Format(stampFmt))
	line("DTEND", e.End.UTC().Format(stampFmt))
	line("SUMMARY", escape(e.Summary))
	if e.Description != "" {
		line("DESCRIPTION", escape(e.Description))
	}
	if e.Location != "" {
		line("LOCATION", escape(e.Location))
		line("URL", e.Location)
	}
	line("STATUS", "CONFIRMED")
	line("END", "VEVENT")
	line("END", "VCALENDAR")
	return []byte(b.String())
}

// GoogleURL возвращает ссылку, открывающую форму создания события в Google Calendar.
func GoogleURL(e Event) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", e.Summary)
	q.Set("dates", fmt.Sprintf("%s/%s", e.Start.UTC().Format(stampFmt), e.End.UTC().Format(stampFmt)))
	if e.Description != "" {
		q.Set("details", e.Description)
	}
	if e.Location != "" {
		q.Set("location", e.Location)
	}
	return googleBase + "?" + q.Encode()
}

var escaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escape(s string) string {
	return escaper.Replace(s)
}

// fold переносит строку длиннее 75 октетов, не разрывая символы UTF-8.
func fold(s string) string {
	if len(s) <= foldWidth {
		return s
	}
	var b strings.Builder
	width := 0
	limit := foldWidth
	for _, r := range s {
		n := len(string(r))
		if width+n > limit {
			b.WriteString("\r\n ")
			width = 0
			limit = foldWidth - 1
		}
		b.WriteRune(r)
		width += n
	}
	return b.String()
}
