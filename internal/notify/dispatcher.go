package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DispatcherConfig defines the worker pool.
type DispatcherConfig struct {
	// Workers is the number of concurrent deliveries.
	Workers int
	// QueueSize bounds the number of pending messages.
	QueueSize int
	// Timeout bounds a single delivery.
	Timeout time.Duration
}

// DefaultDispatcherConfig returns the default pool settings.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:   2,
		QueueSize: 100,
		Timeout:   10 * time.Second,
	}
}

// Dispatcher is an asynchronous Notifier. Notify enqueues and returns;
// workers deliver through the wrapped Notifier.
type Dispatcher struct {
	next   Notifier
	config DispatcherConfig
	log    *logrus.Logger
	queue  chan Message

	mu        sync.Mutex
	started   bool
	stopped   bool
	delivered int
	failed    int
	dropped   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher in front of next.
func NewDispatcher(next Notifier, cfg DispatcherConfig, log *logrus.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		next:   next,
		config: cfg,
		log:    log,
		queue:  make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers.
// Config returns the effective pool settings after defaults were applied.
func (d *Dispatcher) Config() DispatcherConfig {
	return d.config
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.WithField("workers", d.config.Workers).Info("notification dispatcher started")
}

// Stop stops accepting messages, delivers what is queued and waits for the
// workers to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	d.log.Info("notification dispatcher stopped")
}

// Notify enqueues msg. When the queue is full the message is dropped with a
// warning. It never blocks.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.dropped++
		d.log.WithField("to", msg.To).Warn("notification dropped: dispatcher stopped")
		return nil
	}
	select {
	case d.queue <- msg:
	default:
		d.dropped++
		d.log.WithField("to", msg.To).Warn("notification dropped: queue full")
	}
	return nil
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, d.config.Timeout)
	defer cancel()

	err := d.next.Notify(ctx, msg)

	d.mu.Lock()
	if err != nil {
		d.failed++
	} else {
		d.delivered++
	}
	d.mu.Unlock()

	if err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Warn("notification delivery failed")
	}
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]int{
		"workers":   d.config.Workers,
		"queued":    len(d.queue),
		"delivered": d.delivered,
		"failed":    d.failed,
		"dropped":   d.dropped,
	}
}
