package meetingprovider

import "time"

// CreateRoomRequest: запрос на создание комнаты видеовстречи.
type CreateRoomRequest struct {
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

// CreateRoomResponse: ответ провайдера с адресом комнаты.
type CreateRoomResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
