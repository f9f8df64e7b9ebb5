package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/events"
)

type eventPublisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID),
			zap.Error(err))
	}
}

func citizenActor(id string) events.Actor {
	return events.Actor{Type: domain.ActorCitizen, ID: &id}
}

func adminActor(id string) events.Actor {
	return events.Actor{Type: domain.ActorAdmin, ID: &id}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.ActorSystem}
}

func sessionActor(session *domain.Session) events.Actor {
	if session.IsAdmin() {
		return adminActor(session.Identity.ID)
	}
	return citizenActor(session.Identity.ID)
}

func historyActor(actor events.Actor) (domain.ActorType, *string) {
	return actor.Type, actor.ID
}
