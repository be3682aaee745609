package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Notifier fans PostgreSQL LISTEN/NOTIFY events out to in-process
// callbacks. A cron job fires every channel periodically so subscribers
// resynchronise even if a notification was lost while reconnecting.
type Notifier struct {
	listener *pq.Listener
	sched    *cron.Cron
	log      *zap.Logger

	mu        sync.Mutex
	handlers  map[string]map[string]func()
	listening map[string]bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewNotifier(dsn string, resync time.Duration, log *zap.Logger) (*Notifier, error) {
	n := &Notifier{
		log:       log,
		handlers:  make(map[string]map[string]func()),
		listening: make(map[string]bool),
		done:      make(chan struct{}),
	}
	n.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, n.onEvent)

	n.sched = cron.New()
	if _, err := n.sched.AddFunc(fmt.Sprintf("@every %s", resync), n.fireAll); err != nil {
		n.listener.Close()
		return nil, fmt.Errorf("schedule resync: %w", err)
	}

	n.wg.Add(1)
	go n.run()
	n.sched.Start()
	return n, nil
}

// Subscribe calls fn whenever channel is notified. The returned function
// removes the subscription.
func (n *Notifier) Subscribe(channel string, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.listening[channel] {
		if err := n.listener.Listen(channel); err != nil {
			return nil, fmt.Errorf("listen %s: %w", channel, err)
		}
		n.listening[channel] = true
	}
	if n.handlers[channel] == nil {
		n.handlers[channel] = make(map[string]func())
	}
	id := uuid.NewString()
	n.handlers[channel][id] = fn

	return func() {
		n.mu.Lock()
		delete(n.handlers[channel], id)
		n.mu.Unlock()
	}, nil
}

func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		<-n.sched.Stop().Done()
		n.wg.Wait()
		err = n.listener.Close()
	})
	return err
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case ev := <-n.listener.Notify:
			if ev == nil {
				// The connection was re-established; anything could have changed.
				n.fireAll()
				continue
			}
			n.fire(ev.Channel)
		case <-time.After(90 * time.Second):
			go func() {
				if err := n.listener.Ping(); err != nil {
					n.log.Warn("listener ping failed", zap.Error(err))
				}
			}()
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) onEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		n.log.Warn("listener event", zap.Int("event", int(ev)), zap.Error(err))
	}
}

func (n *Notifier) fire(channel string) {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.handlers[channel]))
	for _, fn := range n.handlers[channel] {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (n *Notifier) fireAll() {
	n.mu.Lock()
	channels := make([]string, 0, len(n.handlers))
	for c := range n.handlers {
		channels = append(channels, c)
	}
	n.mu.Unlock()
	for _, c := range channels {
		n.fire(c)
	}
}
