package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

// Deps are the collaborators task handlers may use. Nil senders disable the
// matching notification channel.
type Deps struct {
	DB        *gorm.DB
	Store     services.BookingStore
	Ledger    services.RefundLedger
	Scheduler services.TaskScheduler
	Events    services.EventPublisher
	Mailer    services.Mailer
	Whatsapp  services.WhatsappSender
	// OpsEmail receives alerts for refunds that could not be reconciled
	OpsEmail string
	Logger   *zap.Logger
}

// TaskHandler runs one attempt of a scheduled task. attempt starts at 1.
type TaskHandler func(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error)

// Registry stores the mapping of task names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]TaskHandler)}
}

// GlobalRegistry is the default global registry
var GlobalRegistry = NewRegistry()

// Register adds a handler for a task name
func (r *Registry) Register(name string, handler TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get retrieves a handler for a task name
func (r *Registry) Get(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// RegisterHandler is a helper to register to the global registry
func RegisterHandler(name string, handler TaskHandler) {
	GlobalRegistry.Register(name, handler)
}

// GetHandler is a helper to get from the global registry
func GetHandler(name string) (TaskHandler, bool) {
	return GlobalRegistry.Get(name)
}
