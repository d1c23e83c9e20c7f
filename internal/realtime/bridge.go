package realtime

import (
	"context"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/events"
	"github.com/neboloop/promptpulse/internal/scheduler"
	"github.com/neboloop/promptpulse/internal/settings"
)

// Bridge forwards bus events to every client. The returned function removes
// the subscriptions.
func Bridge(hub *Hub, bus *events.Subject) func() {
	subs := []events.Subscription{
		events.Subscribe(bus, events.TopicRunStarted, func(ctx context.Context, r db.Run) error {
			hub.Broadcast(NewMessage(TypeRunStarted, r))
			return nil
		}),
		events.Subscribe(bus, events.TopicRunFinished, func(ctx context.Context, r db.Run) error {
			hub.Broadcast(NewMessage(TypeRunFinished, r))
			return nil
		}),
		events.Subscribe(bus, events.TopicSettingsChanged, func(ctx context.Context, c settings.Change) error {
			hub.Broadcast(NewMessage(TypeSettingsChanged, c.Current))
			return nil
		}),
		events.Subscribe(bus, events.TopicAlarmChanged, func(ctx context.Context, a scheduler.Alarm) error {
			hub.Broadcast(NewMessage(TypeAlarmChanged, a))
			return nil
		}),
	}
	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
}
