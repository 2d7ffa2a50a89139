// Package meetingprovider выдаёт ссылки на видеовстречи через HTTP API провайдера.
package meetingprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/mentorship-booking/internal/config"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Client: клиент API провайдера видеовстреч.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент по секции meeting_provider конфигурации.
func NewClient(cfg config.MeetingProvider) *Client {
	return &Client{
		apiKey:     cfg.MeetingAPIKey,
		apiURL:     cfg.MeetingURL,
		httpClient: &http.Client{Timeout: cfg.MeetingTimeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateRoom создаёт комнату для сессии и возвращает её адрес.
func (c *Client) CreateRoom(ctx context.Context, b models.Booking) (string, error) {
	const op = "meetingprovider.CreateRoom"

	req, err := c.newRequest(ctx, http.MethodPost, "/rooms", CreateRoomRequest{
		ExternalID: b.ID,
		Title:      "Mentoring session " + b.ID,
		StartsAt:   b.ScheduledAt.UTC(),
		EndsAt:     b.EndsAt().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var room CreateRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if room.URL == "" {
		return "", fmt.Errorf("%s: %w", op, errors.New("provider returned empty room url"))
	}
	return room.URL, nil
}
