package models

import (
	"fmt"
	"time"
)

// Mentor представляет ментора платформы. Поле Rating производное
// и записывается только агрегатором рейтинга.
type Mentor struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Active          bool      `json:"active"`
	Rating          *float64  `json:"rating,omitempty"`
	Level           string    `json:"level"`
	Specializations []Segment `json:"specializations"`
	Timezone        string    `json:"timezone"`
}

// Location возвращает часовой пояс ментора, в котором заданы правила доступности.
// Пустое значение трактуется как UTC.
func (m Mentor) Location() (*time.Location, error) {
	if m.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return nil, fmt.Errorf("mentor %s: %w", m.ID, err)
	}
	return loc, nil
}

// RuleKind: вид правила доступности.
type RuleKind string

const (
	RuleRecurring RuleKind = "RECURRING"
	RuleOneOff    RuleKind = "ONE_OFF"
)

// ClockTime: время суток в минутах от полуночи, 0..1440.
type ClockTime int

// ParseClock разбирает строку вида "HH:MM". Допускается "24:00" как конец суток.
func ParseClock(s string) (ClockTime, error) {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// AvailabilityRule: правило доступности ментора. Это размеченный вариант:
// RECURRING использует Weekday, ONE_OFF использует Date.
// Правила никогда не хранятся как слоты: они раскрываются в окна при каждом запросе.
type AvailabilityRule struct {
	Kind     RuleKind     `json:"kind"`
	Weekday  time.Weekday `json:"weekday,omitempty"`
	Date     time.Time    `json:"date,omitempty"`
	Start    ClockTime    `json:"start"`
	End      ClockTime    `json:"end"`
	MentorID string       `json:"mentor_id"`
}

// Recurring создаёт еженедельное правило.
func Recurring(day time.Weekday, start, end ClockTime) AvailabilityRule {
	return AvailabilityRule{Kind: RuleRecurring, Weekday: day, Start: start, End: end}
}

// OneOff создаёт правило на конкретную дату. Учитываются только год, месяц и день.
func OneOff(date time.Time, start, end ClockTime) AvailabilityRule {
	y, m, d := date.Date()
	return AvailabilityRule{Kind: RuleOneOff, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Start: start, End: end}
}

// Validate проверяет форму правила.
func (r AvailabilityRule) Validate() error {
	if r.Start < 0 || r.End > 24*60 || r.Start >= r.End {
		return fmt.Errorf("rule window %s-%s is empty or out of day bounds", r.Start, r.End)
	}
	switch r.Kind {
	case RuleRecurring:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fmt.Errorf("invalid weekday %d", r.Weekday)
		}
	case RuleOneOff:
		if r.Date.IsZero() {
			return fmt.Errorf("one-off rule without date")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

// Window: непрерывный полуоткрытый интервал [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains сообщает, лежит ли [start, end) целиком внутри окна.
func (w Window) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

// Overlaps реализует проверку пересечения полуоткрытых интервалов:
// [a, a+d) и [b, b+d2) пересекаются тогда и только тогда, когда a < b+d2 и b < a+d.
// Смежные интервалы не пересекаются.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// AvailabilityRuleInput: правило в JSON-запросе на замену набора правил.
type AvailabilityRuleInput struct {
	Kind    RuleKind `json:"kind" validate:"required,oneof=RECURRING ONE_OFF"`
	Weekday *int     `json:"weekday,omitempty" validate:"omitempty,min=0,max=6"`
	Date    string   `json:"date,omitempty"`
	Start   string   `json:"start" validate:"required,len=5"`
	End     string   `json:"end" validate:"required,len=5"`
}

// ReplaceAvailabilityRequest: тело запроса замены правил доступности ментора.
type ReplaceAvailabilityRequest struct {
	Rules []AvailabilityRuleInput `json:"rules" validate:"dive"`
}

// ToRule преобразует входное правило в доменное.
func (in AvailabilityRuleInput) ToRule() (AvailabilityRule, error) {
	start, err := ParseClock(in.Start)
	if err != nil {
		return AvailabilityRule{}, err
	}
	end, err := ParseClock(in.End)
	if err != nil {
		return AvailabilityRule{}, err
	}
	var rule AvailabilityRule
	switch in.Kind {
	case RuleRecurring:
		if in.Weekday == nil {
			return AvailabilityRule{}, fmt.Errorf("recurring rule without weekday")
		}
		rule = Recurring(time.Weekday(*in.Weekday), start, end)
	case RuleOneOff:
		date, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return AvailabilityRule{}, fmt.Errorf("invalid date %q: %w", in.Date, err)
		}
		rule = OneOff(date, start, end)
	default:
		return AvailabilityRule{}, fmt.Errorf("unknown rule kind %q", in.Kind)
	}
	return rule, rule.Validate()
}
