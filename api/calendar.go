package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Desarso/advisorchat/models"
)

const calendarPrefix = "/api/calendar"

// CalendarEvents lists events between timeMin and timeMax. Zero times are omitted.
func (c *Client) CalendarEvents(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	query := url.Values{}
	if !timeMin.IsZero() {
		query.Set("timeMin", timeMin.Format(time.RFC3339))
	}
	if !timeMax.IsZero() {
		query.Set("timeMax", timeMax.Format(time.RFC3339))
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, calendarPrefix+"/events", query, nil, &raw); err != nil {
		return nil, err
	}
	list, err := unwrapList[models.CalendarEvent](raw, "events")
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar events: %w", err)
	}
	return list, nil
}

func (c *Client) CreateCalendarEvent(ctx context.Context, ev models.CalendarEvent) (*models.CalendarEvent, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, calendarPrefix+"/events", nil, ev, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.CalendarEvent](raw, "event")
}

func (c *Client) UpdateCalendarEvent(ctx context.Context, id string, ev models.CalendarEvent) (*models.CalendarEvent, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, calendarPrefix+"/events/"+url.PathEscape(id), nil, ev, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.CalendarEvent](raw, "event")
}

func (c *Client) DeleteCalendarEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, calendarPrefix+"/events/"+url.PathEscape(id), nil, nil, nil)
}

// AvailableSlots returns free start times on date for a meeting of the given
// length. A non-positive duration means 30 minutes.
func (c *Client) AvailableSlots(ctx context.Context, date string, duration time.Duration) ([]string, error) {
	minutes := int(duration / time.Minute)
	if minutes <= 0 {
		minutes = 30
	}
	query := url.Values{"date": {date}, "duration": {strconv.Itoa(minutes)}}
	var out struct {
		Slots []string `json:"slots"`
	}
	if err := c.do(ctx, http.MethodGet, calendarPrefix+"/available-slots", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

func (c *Client) ScheduleAppointment(ctx context.Context, req models.AppointmentRequest) (*models.CalendarEvent, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, calendarPrefix+"/schedule", nil, req, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.CalendarEvent](raw, "event")
}

func (c *Client) CalendarSettings(ctx context.Context) (*models.CalendarConfig, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, calendarPrefix+"/settings", nil, nil, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.CalendarConfig](raw, "settings")
}

func (c *Client) UpdateCalendarSettings(ctx context.Context, cfg models.CalendarConfig) (*models.CalendarConfig, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, calendarPrefix+"/settings", nil, cfg, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.CalendarConfig](raw, "settings")
}
