// Package panel holds the per-session filter state and republishes both
// context criteria after every mutation.
package panel

import (
	"context"
	"sync"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
	"budgetfilter/internal/log"
)

// previewBase is the base predicate the diagnostic preview prepends.
const previewBase = "where 1=1"

// Identity is the session the controller works for. It is passed in at
// construction; the controller never looks it up itself.
type Identity struct {
	SessionID string
	UserID    string
	Preview   bool
}

// Criteria is the pair of fragments compiled from one state.
type Criteria struct {
	Revenue string `json:"revenue"`
	Expense string `json:"expense"`

	RevenueArgs []any `json:"revenue_args,omitempty"`
	ExpenseArgs []any `json:"expense_args,omitempty"`
}

// Preview is the diagnostic view of the current criteria.
type Preview struct {
	UserID  string `json:"user_id"`
	Revenue string `json:"revenue"`
	Expense string `json:"expense"`
}

// Config wires a controller.
type Config struct {
	Registry *dimension.Registry
	// Renderer defaults to filter.VerbatimRenderer.
	Renderer filter.Renderer
	Identity Identity
	Revenue  Sink
	Expense  Sink
	Logger   *log.Logger
}

// Controller owns one filter set. Mutations are serialized and each one
// recompiles and publishes both criteria before returning.
type Controller struct {
	mu       sync.Mutex
	registry *dimension.Registry
	compiler *filter.Compiler
	identity Identity
	sinks    map[dimension.Context]Sink
	logger   *log.Logger

	set      *filter.Set
	criteria Criteria
}

// New returns a controller with every registered field set to All.
// The initial criteria are compiled but not published.
func New(cfg Config) *Controller {
	registry := cfg.Registry
	if registry == nil {
		registry = dimension.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	c := &Controller{
		registry: registry,
		compiler: filter.NewCompiler(registry, cfg.Renderer),
		identity: cfg.Identity,
		sinks: map[dimension.Context]Sink{
			dimension.Revenue: cfg.Revenue,
			dimension.Expense: cfg.Expense,
		},
		logger: logger.WithComponent(log.ComponentPanel).With(
			log.NewFields().WithSession(cfg.Identity.SessionID, cfg.Identity.UserID).ToSlice()...),
		set: filter.NewSetFor(registry.Fields()),
	}
	c.criteria = c.compile()
	return c
}

// SetFilter replaces the selection of field and republishes.
func (c *Controller) SetFilter(ctx context.Context, field dimension.Field, sel filter.Selection) error {
	if !c.registry.Has(field) {
		return &dimension.UnknownFieldError{Field: field}
	}
	if sel == nil {
		sel = filter.All{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.set.Put(field, sel)
	c.logger.DebugContext(ctx, "Filter updated",
		log.NewFields().WithFilter(string(field), string(sel.Mode())).WithOperation(log.OpSetFilter).ToSlice()...)
	c.recompile(ctx)
	return nil
}

// ClearAll resets every field to All and republishes.
func (c *Controller) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set.Reset(c.registry.Fields())
	c.logger.DebugContext(ctx, "Filters cleared", log.FieldOperation, log.OpClearAll)
	c.recompile(ctx)
}

// HasActiveFilters reports whether any field narrows the result.
func (c *Controller) HasActiveFilters() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Active()
}

// Criteria returns the last compiled pair.
func (c *Controller) Criteria() Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// Snapshot is a consistent view of one controller state.
type Snapshot struct {
	Selections *filter.Set
	Criteria   Criteria
	Active     bool
}

// Snapshot reads the selections, criteria and activity under one lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Selections: c.set.Clone(),
		Criteria:   c.criteria,
		Active:     c.set.Active(),
	}
}

// Selections returns a copy of the current filter set.
func (c *Controller) Selections() *filter.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.Clone()
}

// Identity returns the session the controller was built for.
func (c *Controller) Identity() Identity {
	return c.identity
}

// Preview returns the criteria behind the base predicate. It is only
// available to sessions flagged for previews.
func (c *Controller) Preview() (Preview, bool) {
	if !c.identity.Preview {
		return Preview{}, false
	}
	cr := c.Criteria()
	return Preview{
		UserID:  c.identity.UserID,
		Revenue: previewBase + cr.Revenue,
		Expense: previewBase + cr.Expense,
	}, true
}

func (c *Controller) compile() Criteria {
	var cr Criteria
	cr.Revenue, cr.RevenueArgs = c.compiler.CompileContext(c.set, dimension.Revenue)
	cr.Expense, cr.ExpenseArgs = c.compiler.CompileContext(c.set, dimension.Expense)
	return cr
}

// recompile must be called with c.mu held. Sink failures are logged; the
// new state stands either way.
func (c *Controller) recompile(ctx context.Context) {
	c.criteria = c.compile()

	for _, qctx := range dimension.Contexts() {
		sink := c.sinks[qctx]
		if sink == nil {
			continue
		}
		value, args := c.criteria.Revenue, c.criteria.RevenueArgs
		if qctx == dimension.Expense {
			value, args = c.criteria.Expense, c.criteria.ExpenseArgs
		}
		if err := sink.Publish(ctx, qctx, value, args); err != nil {
			c.logger.ErrorContext(ctx, "Failed to publish criteria",
				log.NewFields().WithCriteria(string(qctx), value).WithOperation(log.OpPublish).WithError(err).ToSlice()...)
		}
	}
}
