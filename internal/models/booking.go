package models

import "time"

// BookingStatus: состояние сессии в жизненном цикле.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "SCHEDULED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// HoldsTime сообщает, занимает ли сессия в этом статусе время ментора.
func (s BookingStatus) HoldsTime() bool {
	return s == BookingScheduled || s == BookingCompleted
}

// GoalsAchieved: ответ на вопрос обратной связи о достижении целей.
type GoalsAchieved string

const (
	GoalsYes       GoalsAchieved = "yes"
	GoalsNo        GoalsAchieved = "no"
	GoalsPartially GoalsAchieved = "partially"
)

// Feedback: структурированная обратная связь по завершённой сессии.
// Поля проверяются на границе (HTTP-слой), а не внутри жизненного цикла.
type Feedback struct {
	Rating         int           `json:"rating" validate:"required,min=1,max=5"`
	HelpfulRating  int           `json:"helpful_rating" validate:"required,min=1,max=5"`
	GoalsAchieved  GoalsAchieved `json:"goals_achieved" validate:"required,oneof=yes no partially"`
	WouldRecommend string        `json:"would_recommend" validate:"required,oneof=yes no"`
	Comment        string        `json:"comment,omitempty" validate:"max=2000"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

// Booking: сессия ментора с пользователем.
type Booking struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	UserEmail      string        `json:"user_email,omitempty"`
	MentorID       string        `json:"mentor_id"`
	PackageID      string        `json:"package_id"`
	SubscriptionID string        `json:"subscription_id"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Duration       int           `json:"duration"`
	Status         BookingStatus `json:"status"`
	Notes          string        `json:"notes,omitempty"`
	Feedback       *Feedback     `json:"feedback,omitempty"`
	SessionNumber  int           `json:"session_number"`
	MeetingURL     string        `json:"meeting_url,omitempty"`
	CancelReason   string        `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	// RemindedAt отмечает отправленное напоминание. Перенос сессии его сбрасывает.
	RemindedAt     *time.Time    `json:"reminded_at,omitempty"`
}

// EndsAt возвращает конец полуоткрытого интервала сессии.
func (b Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.Duration) * time.Minute)
}

// CreateBookingRequest используется для приёма данных новой сессии из JSON-запроса.
type CreateBookingRequest struct {
	MentorID    string    `json:"mentor_id" validate:"required"`
	PackageID   string    `json:"package_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Duration    int       `json:"duration" validate:"required,min=15,max=240"`
	Notes       string    `json:"notes,omitempty" validate:"max=2000"`
}

// RescheduleRequest: тело запроса переноса сессии.
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// CancelRequest: тело запроса отмены сессии.
type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// BookingConfirmation: сообщение для NotificationDispatcher.
type BookingConfirmation struct {
	Kind        string    `json:"kind"`
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	MentorID    string    `json:"mentor_id"`
	MentorName  string    `json:"mentor_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Duration    int       `json:"duration"`
	MeetingURL  string    `json:"meeting_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

const (
	// NotificationConfirmation: подтверждение новой сессии.
	NotificationConfirmation = "booking.confirmation"
	// NotificationReminder: напоминание о предстоящей сессии.
	NotificationReminder = "booking.reminder"
)

// NewNotification собирает сообщение вида kind о сессии b.
func NewNotification(kind string, b Booking, mentorName string) BookingConfirmation {
	return BookingConfirmation{
		Kind:        kind,
		BookingID:   b.ID,
		UserID:      b.UserID,
		Email:       b.UserEmail,
		MentorID:    b.MentorID,
		MentorName:  mentorName,
		ScheduledAt: b.ScheduledAt,
		Duration:    b.Duration,
		MeetingURL:  b.MeetingURL,
		Notes:       b.Notes,
	}
}
