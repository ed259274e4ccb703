package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// CalendarEvent is one weekly recurring session.
type CalendarEvent struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// Calendar groups events rendered into a single VCALENDAR.
type Calendar struct {
	Name string
	// Weeks bounds the weekly recurrence; zero repeats indefinitely.
	Weeks  int
	Events []CalendarEvent
}

// ICSExporter renders iCalendar feeds.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

func (e *ICSExporter) ContentType() string { return "text/calendar" }

func (e *ICSExporter) Extension() string { return "ics" }

// Render serializes the calendar.
func (e *ICSExporter) Render(c Calendar) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//timetable-scheduler//EN")
	if c.Name != "" {
		cal.SetName(c.Name)
		cal.SetXWRCalName(c.Name)
	}

	rrule := "FREQ=WEEKLY"
	if c.Weeks > 0 {
		rrule = fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", c.Weeks)
	}

	stamp := e.now().UTC()
	for _, ev := range c.Events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event requires a uid")
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		event := cal.AddEvent(ev.UID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(ev.Start)
		event.SetEndAt(ev.End)
		event.SetSummary(ev.Summary)
		if ev.Location != "" {
			event.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			event.SetDescription(ev.Description)
		}
		event.AddRrule(rrule)
	}

	return []byte(cal.Serialize()), nil
}
