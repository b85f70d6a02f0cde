package export

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
)

const (
	prodID    = "-//Lab Reservations//Booking Export//EN"
	uidDomain = "lab-reservations"
)

// lineBreaks collapses CRLF and lone CR to LF so TEXT values escape every break as \n.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// RenderICS renders ev as a single-event iCalendar request. now becomes DTSTAMP.
func RenderICS(ev booking.ExportEvent, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetMethod(ics.MethodRequest)

	event := cal.AddEvent(eventUID(ev))
	event.SetDtStampTime(now)
	event.SetStartAt(ev.Start)
	event.SetEndAt(ev.End)
	event.SetSummary(lineBreaks.Replace(ev.Title))
	event.SetDescription(lineBreaks.Replace(ev.Description))
	if ev.Location != "" {
		event.SetLocation(lineBreaks.Replace(ev.Location))
	}
	if ev.OrganizerID != "" {
		event.SetProperty(ics.ComponentPropertyOrganizer, "mailto:"+ev.OrganizerID)
	}
	if ev.AttendeeID != "" {
		event.AddProperty(ics.ComponentPropertyAttendee, "mailto:"+ev.AttendeeID,
			ics.ParticipationRoleReqParticipant,
			ics.WithRSVP(true),
		)
	}
	event.SetProperty(ics.ComponentPropertyStatus, string(ics.ObjectStatusConfirmed))

	alarm := event.AddAlarm()
	alarm.SetProperty(ics.ComponentPropertyTrigger, "-PT30M")
	alarm.SetProperty(ics.ComponentPropertyAction, string(ics.ActionDisplay))
	alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder")

	return []byte(cal.Serialize())
}

// Filename is the suggested download name for ev's artifact.
func Filename(ev booking.ExportEvent) string {
	return "booking-" + ev.BookingID + ".ics"
}

// eventUID is stable per reservation and attendee so re-exports update the same entry.
func eventUID(ev booking.ExportEvent) string {
	key := ev.BookingID
	if ev.GroupID != "" {
		key = ev.GroupID + "-" + ev.AttendeeID
	}
	return key + "@" + uidDomain
}
