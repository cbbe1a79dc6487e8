package database

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"macrocopilot/src/utils/errors"
)

// NotificationManager fans postgres NOTIFY payloads of the form
// "<objectId>;<message>" out to in-process subscribers.
type NotificationManager struct {
	db          *gorm.DB
	listener    *pq.Listener
	subscribers map[string]map[string]map[string]chan<- string
	mu          sync.RWMutex
}

func NewNotificationManager(db *gorm.DB) (*NotificationManager, error) {
	dialector, ok := db.Config.Dialector.(*postgres.Dialector)
	if !ok {
		return nil, errors.New("notifications need a postgres dialector")
	}
	listener := pq.NewListener(dialector.DSN, 10*time.Second, time.Minute, logListenerEvent)

	nm := &NotificationManager{
		db:          db,
		listener:    listener,
		subscribers: make(map[string]map[string]map[string]chan<- string), // channel -> objectID -> subscriberID -> chan
	}

	go nm.listen()

	return nm, nil
}

func logListenerEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		slog.Warn("Postgres listener event", "event", ev, "error", err)
	}
}

func (nm *NotificationManager) listen() {
	for notification := range nm.listener.Notify {
		if notification == nil {
			// connection was re-established, notifications may have been lost
			continue
		}
		nm.handleNotification(notification.Channel, notification.Extra)
	}
}

func (nm *NotificationManager) handleNotification(channel, payload string) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	objectId, msg, ok := strings.Cut(payload, ";")
	if !ok {
		slog.Error("Invalid payload format", "payload", payload)

		return
	}

	if subs, ok := nm.subscribers[channel]; ok {
		if objSubs, ok := subs[objectId]; ok {
			for _, ch := range objSubs {
				select {
				case ch <- msg:
					slog.Debug("Notification sent", "channel", channel, "objectID", objectId, "payload", msg)
				default:
					slog.Warn("Notification channel is full, skipping", "channel", channel)
				}
			}
		}
	}
}

// addSubscriber registers a buffered channel and reports whether the channel
// had no subscribers before.
func (nm *NotificationManager) addSubscriber(subscriberID, channel, objectID string) (<-chan string, bool) {
	first := false
	if _, ok := nm.subscribers[channel]; !ok {
		nm.subscribers[channel] = make(map[string]map[string]chan<- string)
		first = true
	}
	if nm.subscribers[channel][objectID] == nil {
		nm.subscribers[channel][objectID] = make(map[string]chan<- string)
	}
	ch := make(chan string, 10)
	nm.subscribers[channel][objectID][subscriberID] = ch
	return ch, first
}

// removeSubscribers closes the subscriber's channels and reports whether the
// channel has no subscribers left.
func (nm *NotificationManager) removeSubscribers(subscriberID, channel string, objectIDs ...string) (bool, error) {
	subs, ok := nm.subscribers[channel]
	if !ok {
		return false, errors.Newf("no subscribers for channel %s", channel)
	}

	for _, objectID := range objectIDs {
		if objSubs, ok := subs[objectID]; ok {
			if ch, exists := objSubs[subscriberID]; exists {
				close(ch)
				delete(objSubs, subscriberID)
			}

			if len(objSubs) == 0 {
				delete(subs, objectID)
			}
		}
	}

	if len(subs) == 0 {
		delete(nm.subscribers, channel)
		return true, nil
	}
	return false, nil
}

func (nm *NotificationManager) Subscribe(ctx context.Context, subscriberID string, objectType string, objectID string) (<-chan string, error) {
	channel := objectType
	nm.mu.Lock()
	defer nm.mu.Unlock()

	ch, first := nm.addSubscriber(subscriberID, channel, objectID)
	if first {
		if err := nm.listener.Listen(channel); err != nil {
			_, _ = nm.removeSubscribers(subscriberID, channel, objectID)
			return nil, errors.Wrapf(err, "failed to listen on channel %s", channel)
		}
	}

	slog.Info("Subscribed to channel", "channel", channel, "objectID", objectID, "subscriberID", subscriberID)
	return ch, nil
}

func (nm *NotificationManager) NewSubscriber(ctx context.Context) string {
	return uuid.New().String()
}

func (nm *NotificationManager) Unsubscribe(objectType string, subscriberID string, objectIDs ...string) error {
	channel := objectType

	nm.mu.Lock()
	defer nm.mu.Unlock()

	empty, err := nm.removeSubscribers(subscriberID, channel, objectIDs...)
	if err != nil {
		return err
	}
	if empty {
		if err := nm.listener.Unlisten(channel); err != nil {
			return errors.Wrapf(err, "failed to unlisten on channel %s", channel)
		}
	}

	return nil
}

func (nm *NotificationManager) Close() error {
	nm.listener.UnlistenAll()

	return nm.listener.Close()
}

func notifyPayload(objectID, payload string) string {
	return objectID + ";" + payload
}

func Notify(db *gorm.DB, objectType string, objectID string, payload string) error {
	channel := objectType

	if err := db.Exec("SELECT pg_notify(?, ?)", channel, notifyPayload(objectID, payload)).Error; err != nil {
		return errors.Wrapf(err, "failed to send notification")
	}

	return nil
}
