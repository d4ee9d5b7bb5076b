package amqp

import (
	"context"

	"budgetfilter/internal/dimension"
)

// Publisher is the part of Client the sink needs.
type Publisher interface {
	PublishCriteria(ctx context.Context, msg *CriteriaMessage) error
}

// Sink forwards every compiled criteria of one session to the broker.
type Sink struct {
	pub       Publisher
	sessionID string
	userID    string
}

// NewSink binds a publisher to a session.
func NewSink(pub Publisher, sessionID, userID string) *Sink {
	return &Sink{pub: pub, sessionID: sessionID, userID: userID}
}

func (s *Sink) Publish(ctx context.Context, qctx dimension.Context, criteria string, args []any) error {
	msg := NewCriteriaMessage(s.sessionID, s.userID, qctx, criteria)
	msg.Args = args
	return s.pub.PublishCriteria(ctx, msg)
}
