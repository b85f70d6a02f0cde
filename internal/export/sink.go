package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventType labels calendar export messages.
const EventType = "reservation.calendar_export.v1"

// LogSink records exports in the application log. It is used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "export")}
}

func (s *LogSink) Export(ctx context.Context, ev booking.ExportEvent) error {
	s.logger.InfoContext(ctx, "calendar export",
		"booking_id", ev.BookingID,
		"attendee_id", ev.AttendeeID,
		"start", ev.Start,
		"end", ev.End,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per export, keyed by booking id. The value
// carries the event and its rendered ICS artifact.
type KafkaSink struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// Payload is the JSON value of an export message.
type Payload struct {
	BookingID   string    `json:"booking_id"`
	GroupID     string    `json:"group_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	OrganizerID string    `json:"organizer_id"`
	AttendeeID  string    `json:"attendee_id"`
	ICS         string    `json:"ics"`
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaSink(w, logger)
}

func newKafkaSink(w messageWriter, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{writer: w, logger: logger.With("component", "export"), now: time.Now}
}

func (s *KafkaSink) Export(ctx context.Context, ev booking.ExportEvent) error {
	value, err := json.Marshal(Payload{
		BookingID:   ev.BookingID,
		GroupID:     ev.GroupID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.Start,
		End:         ev.End,
		OrganizerID: ev.OrganizerID,
		AttendeeID:  ev.AttendeeID,
		ICS:         string(RenderICS(ev, s.now())),
	})
	if err != nil {
		return fmt.Errorf("marshal export payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.BookingID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(EventType)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish export for booking %s: %w", ev.BookingID, err)
	}
	s.logger.DebugContext(ctx, "calendar export published", "booking_id", ev.BookingID, "attendee_id", ev.AttendeeID)
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// injectTraceHeaders appends W3C trace context headers to Kafka headers.
func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
