package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// CalendarEntry is one all-day block rendered into an iCalendar feed.
type CalendarEntry struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	// End is exclusive, as iCalendar expects for all-day events.
	End time.Time
}

// ICSExporter renders calendar entries as an iCalendar document.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter(productID string) *ICSExporter {
	if productID == "" {
		productID = "-//roomboard//board export//EN"
	}
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render produces an ICS payload with one VEVENT per entry.
func (e *ICSExporter) Render(entries []CalendarEntry, name string) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := e.now().UTC()
	for _, entry := range entries {
		if entry.UID == "" {
			return nil, fmt.Errorf("ics entry %q has no uid", entry.Summary)
		}
		if !entry.End.After(entry.Start) {
			return nil, fmt.Errorf("ics entry %s ends before it starts", entry.UID)
		}
		event := cal.AddEvent(entry.UID)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(entry.Start)
		event.SetAllDayEndAt(entry.End)
		event.SetSummary(entry.Summary)
		if entry.Description != "" {
			event.SetDescription(entry.Description)
		}
		if entry.Location != "" {
			event.SetLocation(entry.Location)
		}
	}
	return []byte(cal.Serialize()), nil
}
