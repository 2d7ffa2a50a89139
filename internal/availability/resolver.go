// Package availability раскрывает правила доступности ментора в конкретные окна времени.
//
// Раскрытие является чистой функцией от набора правил: без побочных эффектов и без хранения
// результата. Последовательность окон ленивая, конечная и может быть пройдена повторно.
package availability

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// MaxRangeDays ограничивает длину запрашиваемого диапазона дат.
const MaxRangeDays = 92

// DateRange: диапазон календарных дат в часовом поясе ментора, обе границы включительно.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day возвращает диапазон из одной даты, на которую приходится момент t в поясе loc.
func Day(t time.Time, loc *time.Location) DateRange {
	local := t.In(loc)
	d := civil(local)
	return DateRange{From: d, To: d}
}

// Between возвращает диапазон дат в поясе loc, покрывающий интервал [start, end).
func Between(start, end time.Time, loc *time.Location) DateRange {
	last := end
	if end.After(start) {
		last = end.Add(-time.Nanosecond)
	}
	return DateRange{From: civil(start.In(loc)), To: civil(last.In(loc))}
}

// Bounds возвращает полуоткрытый интервал моментов, занимаемый диапазоном дат в поясе loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time) {
	from := civil(r.From)
	to := civil(r.To).AddDate(0, 0, 1)
	return time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc),
		time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
}

// Validate проверяет, что диапазон непуст и не длиннее MaxRangeDays.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("date range bounds are required")
	}
	if civil(r.To).Before(civil(r.From)) {
		return fmt.Errorf("date range end %s is before start %s", r.To.Format(time.DateOnly), r.From.Format(time.DateOnly))
	}
	if r.days() > MaxRangeDays {
		return fmt.Errorf("date range longer than %d days", MaxRangeDays)
	}
	return nil
}

func (r DateRange) days() int {
	return int(civil(r.To).Sub(civil(r.From)).Hours()/24) + 1
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type span struct {
	start, end models.ClockTime
}

// daySpans собирает экземпляры правил, попадающие на дату day, и объединяет
// пересекающиеся и смежные интервалы. Между видами правил нет приоритета.
func daySpans(rules []models.AvailabilityRule, day time.Time) []span {
	var spans []span
	for _, r := range rules {
		switch r.Kind {
		case models.RuleRecurring:
			if r.Weekday != day.Weekday() {
				continue
			}
		case models.RuleOneOff:
			if !civil(r.Date).Equal(day) {
				continue
			}
		default:
			continue
		}
		if r.Start < r.End {
			spans = append(spans, span{r.Start, r.End})
		}
	}
	slices.SortFunc(spans, func(a, b span) int { return int(a.start - b.start) })

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.start <= merged[n-1].end {
			merged[n-1].end = max(merged[n-1].end, s.end)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func instant(day time.Time, c models.ClockTime, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(c)/60, int(c)%60, 0, 0, loc)
}

// Resolve раскрывает правила в отсортированную последовательность непересекающихся окон
// для диапазона дат r. Окно, заканчивающееся в полночь, склеивается с окном следующего дня,
// начинающимся в полночь.
func Resolve(rules []models.AvailabilityRule, loc *time.Location, r DateRange) iter.Seq[models.Window] {
	if loc == nil {
		loc = time.UTC
	}
	return func(yield func(models.Window) bool) {
		from := civil(r.From)
		n := r.days()
		var pending *models.Window
		for i := 0; i < n; i++ {
			day := from.AddDate(0, 0, i)
			for _, s := range daySpans(rules, day) {
				w := models.Window{Start: instant(day, s.start, loc), End: instant(day, s.end, loc)}
				if pending != nil && !w.Start.After(pending.End) {
					if w.End.After(pending.End) {
						pending.End = w.End
					}
					continue
				}
				if pending != nil && !yield(*pending) {
					return
				}
				pending = &w
			}
		}
		if pending != nil {
			yield(*pending)
		}
	}
}

// Covers сообщает, лежит ли интервал [start, end) целиком внутри одного из окон.
func Covers(windows iter.Seq[models.Window], start, end time.Time) bool {
	for w := range windows {
		if w.Contains(start, end) {
			return true
		}
		if !w.Start.Before(end) {
			return false
		}
	}
	return false
}

// Subtract вычитает из отсортированных окон занятые интервалы и возвращает свободные окна.
func Subtract(windows iter.Seq[models.Window], busy []models.Window) []models.Window {
	busy = slices.Clone(busy)
	slices.SortFunc(busy, func(a, b models.Window) int { return a.Start.Compare(b.Start) })

	var free []models.Window
	for w := range windows {
		cur := w.Start
		for _, b := range busy {
			if !models.Overlaps(cur, w.End, b.Start, b.End) {
				continue
			}
			if b.Start.After(cur) {
				free = append(free, models.Window{Start: cur, End: b.Start})
			}
			if b.End.After(cur) {
				cur = b.End
			}
		}
		if cur.Before(w.End) {
			free = append(free, models.Window{Start: cur, End: w.End})
		}
	}
	return free
}
