package google

import (
	"context"
	"fmt"
	"time"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/domain/calendar"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	gcal "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// Calendar implementa calendar.EventStore sobre a Google Calendar API
type Calendar struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	logger     logger.Logger
}

func NewCalendar(svc *gcal.Service, calendarID string, loc *time.Location, log logger.Logger) *Calendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{svc: svc, calendarID: calendarID, loc: loc, logger: log}
}

// ListEvents retorna os eventos que intersectam [from, to), já expandidos
func (c *Calendar) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	var out []calendar.Event
	call := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Context(ctx)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, err := c.toDomain(item)
			if err != nil {
				c.logger.Warn("Evento com data inválida ignorado", "event_id", item.Id, "error", err)
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.Event, error) {
	item := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       c.eventTime(in.Start, in.AllDay),
		End:         c.eventTime(in.End, in.AllDay),
	}
	created, err := c.svc.Events.Insert(c.calendarID, item).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, err
	}
	return c.toDomain(created)
}

func (c *Calendar) UpdateEvent(ctx context.Context, id string, patch calendar.EventPatch) (calendar.Event, error) {
	item := &gcal.Event{}
	if patch.Summary != nil {
		item.Summary = *patch.Summary
		item.ForceSendFields = append(item.ForceSendFields, "Summary")
	}
	if patch.Location != nil {
		item.Location = *patch.Location
		item.ForceSendFields = append(item.ForceSendFields, "Location")
	}
	if patch.Start != nil {
		item.Start = c.eventTime(*patch.Start, false)
	}
	if patch.End != nil {
		item.End = c.eventTime(*patch.End, false)
	}

	updated, err := c.svc.Events.Patch(c.calendarID, id, item).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, err
	}
	return c.toDomain(updated)
}

func (c *Calendar) DeleteEvent(ctx context.Context, id string) error {
	return c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
}

func (c *Calendar) eventTime(t time.Time, allDay bool) *gcal.EventDateTime {
	if allDay {
		return &gcal.EventDateTime{Date: t.In(c.loc).Format(dateLayout)}
	}
	return &gcal.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: c.loc.String()}
}

func (c *Calendar) toDomain(item *gcal.Event) (calendar.Event, error) {
	ev := calendar.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if item.Start == nil || item.End == nil {
		return ev, fmt.Errorf("evento %s sem início ou fim", item.Id)
	}

	var err error
	if item.Start.DateTime == "" {
		ev.AllDay = true
		if ev.Start, err = time.ParseInLocation(dateLayout, item.Start.Date, c.loc); err != nil {
			return ev, err
		}
		if ev.End, err = time.ParseInLocation(dateLayout, item.End.Date, c.loc); err != nil {
			return ev, err
		}
	} else {
		if ev.Start, err = time.Parse(time.RFC3339, item.Start.DateTime); err != nil {
			return ev, err
		}
		if ev.End, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
			return ev, err
		}
		ev.Start = ev.Start.In(c.loc)
		ev.End = ev.End.In(c.loc)
	}

	if t, err := time.Parse(time.RFC3339, item.Updated); err == nil {
		ev.Updated = t
	}
	return ev, nil
}
