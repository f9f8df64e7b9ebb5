package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicseva/civic-complaints/internal/domain"
)

func TestPublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	d.Subscribe(EventComplaintCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.ComplaintID)
		return errors.New("relay down")
	})
	d.Subscribe(EventComplaintCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.ComplaintID)
		return nil
	})
	d.Subscribe(EventComplaintVoted, func(_ context.Context, e Event) error {
		seen = append(seen, "voted")
		return nil
	})

	err := d.Publish(context.Background(), New(EventComplaintCreated, "c-1", Actor{Type: domain.ActorCitizen}, nil))
	assert.ErrorContains(t, err, "relay down")
	assert.Equal(t, []string{"first:c-1", "second:c-1"}, seen)
}

func TestPublishWithoutHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), New(EventComplaintReopened, "c-1", Actor{Type: domain.ActorCitizen}, nil)))
}

func TestNewStampsEvent(t *testing.T) {
	a := New(EventComplaintVoted, "c-1", Actor{Type: domain.ActorCitizen}, nil)
	b := New(EventComplaintVoted, "c-1", Actor{Type: domain.ActorCitizen}, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
}
