package http

import (
	"sync"

	"budgetfilter/internal/amqp"
	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
	"budgetfilter/internal/log"
	"budgetfilter/internal/panel"
	"budgetfilter/internal/session"
)

// panelEntry is the controller of one session and its in-memory sinks.
type panelEntry struct {
	ctrl    *panel.Controller
	revenue *panel.LatestSink
	expense *panel.LatestSink
}

// panelRegistry creates one controller per session on first use.
type panelRegistry struct {
	mu        sync.Mutex
	panels    map[string]*panelEntry
	registry  *dimension.Registry
	renderer  filter.Renderer
	publisher amqp.Publisher
	logger    *log.Logger
}

func newPanelRegistry(registry *dimension.Registry, renderer filter.Renderer, publisher amqp.Publisher, logger *log.Logger) *panelRegistry {
	return &panelRegistry{
		panels:    make(map[string]*panelEntry),
		registry:  registry,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
	}
}

func (p *panelRegistry) get(sess session.Session) *panelEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.panels[sess.ID]; ok {
		return e
	}

	e := &panelEntry{revenue: &panel.LatestSink{}, expense: &panel.LatestSink{}}
	var revenue, expense panel.Sink = e.revenue, e.expense
	if p.publisher != nil {
		broker := amqp.NewSink(p.publisher, sess.ID, sess.UserID)
		revenue = panel.Fanout{e.revenue, broker}
		expense = panel.Fanout{e.expense, broker}
	}

	e.ctrl = panel.New(panel.Config{
		Registry: p.registry,
		Renderer: p.renderer,
		Identity: panel.Identity{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Preview:   sess.Preview,
		},
		Revenue: revenue,
		Expense: expense,
		Logger:  p.logger,
	})
	p.panels[sess.ID] = e
	return e
}

func (p *panelRegistry) drop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.panels, sessionID)
}

func (p *panelRegistry) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.panels)
}
