package engine

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	permitgate "github.com/permitgate/permitgate-go"
)

// Events receives engine notifications. Implementations must not call back
// into the engine's mutating entry points; they run with the execution guard
// held.
type Events interface {
	Paid(ev permitgate.PaidEvent)
	Refunded(ev permitgate.RefundedEvent)
	// ConfigChanged reports an administrative mutation: action names the
	// operation (token_added, relayer_removed, paused, ...), subject is
	// the affected identity when there is one.
	ConfigChanged(action string, subject common.Address)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) Paid(permitgate.PaidEvent)              {}
func (NopEvents) Refunded(permitgate.RefundedEvent)      {}
func (NopEvents) ConfigChanged(string, common.Address)   {}

// Collector retains every notification, for tests and inspection endpoints.
type Collector struct {
	mu            sync.Mutex
	paid          []permitgate.PaidEvent
	refunded      []permitgate.RefundedEvent
	configChanges []string
}

// NewCollector creates an empty event collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Paid(ev permitgate.PaidEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paid = append(c.paid, ev)
}

func (c *Collector) Refunded(ev permitgate.RefundedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refunded = append(c.refunded, ev)
}

func (c *Collector) ConfigChanged(action string, _ common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configChanges = append(c.configChanges, action)
}

// PaidEvents returns a copy of the collected settlement notifications.
func (c *Collector) PaidEvents() []permitgate.PaidEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]permitgate.PaidEvent, len(c.paid))
	copy(out, c.paid)
	return out
}

// RefundedEvents returns a copy of the collected refund notifications.
func (c *Collector) RefundedEvents() []permitgate.RefundedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]permitgate.RefundedEvent, len(c.refunded))
	copy(out, c.refunded)
	return out
}

// ConfigChanges returns a copy of the collected admin actions.
func (c *Collector) ConfigChanges() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.configChanges))
	copy(out, c.configChanges)
	return out
}

var _ Events = NopEvents{}
var _ Events = (*Collector)(nil)
