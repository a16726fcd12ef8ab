package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/attendance/internal/models"
)

// AttendanceHandler receives each decoded event. Returning an error naks the
// message for redelivery.
type AttendanceHandler func(ctx context.Context, ev models.AttendanceEvent) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

func decodeAttendance(data []byte) (models.AttendanceEvent, error) {
	var ev models.AttendanceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode attendance event: %w", err)
	}
	return ev, nil
}

// ConsumeAttendance delivers new attendance events to handler until ctx is done.
func (c *Consumer) ConsumeAttendance(ctx context.Context, consumerName string, handler AttendanceHandler) error {
	stream, err := c.js.Stream(ctx, AttendanceStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", AttendanceStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: AttendanceSubjectBase + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch attendance events", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				ev, err := decodeAttendance(msg.Data())
				if err != nil {
					// Malformed payloads never become valid; drop them.
					slog.Error("drop attendance event", "error", err, "subject", msg.Subject())
					_ = msg.Term()
					continue
				}
				if err := handler(ctx, ev); err != nil {
					slog.Error("process attendance event", "error", err, "attendance_id", ev.AttendanceID)
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}
	}()

	slog.Info("attendance consumer started", "consumer", consumerName)
	return nil
}

// DurableName joins parts into a valid JetStream consumer name.
func DurableName(parts ...string) string {
	r := strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-", "/", "-", "\\", "-")
	return r.Replace(strings.Join(parts, "-"))
}

func (c *Consumer) Close() {
	c.nc.Close()
}
