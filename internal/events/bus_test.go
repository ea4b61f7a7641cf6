package events

import (
	"context"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inked/pkg/domain"
)

func TestEventType(t *testing.T) {
	assert.Equal(t, "com.inked.pen.created", EventType(domain.EntityPen, domain.ActionCreate))
	assert.Equal(t, "com.inked.ink.updated", EventType(domain.EntityInk, domain.ActionUpdate))
	assert.Equal(t, "com.inked.brand_logo.deleted", EventType(domain.EntityBrandLogo, domain.ActionDelete))
	assert.Equal(t, "com.inked.pen.touch", EventType(domain.EntityPen, domain.Action("touch")))
}

func TestNewChangeEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ink := domain.Ink{Base: domain.Base{ID: "101"}, Brand: "Diamine", Name: "Oxford Blue", Color: "#002147"}
	event, err := NewChangeEvent("test", domain.Change{Entity: domain.EntityInk, Action: domain.ActionCreate, After: ink}, at)
	require.NoError(t, err)

	assert.Equal(t, "com.inked.ink.created", event.Type())
	assert.Equal(t, "test", event.Source())
	assert.Equal(t, "101", event.Subject())
	assert.Equal(t, cloudevents.ApplicationJSON, event.DataContentType())
	assert.True(t, event.Time().Equal(at))
	id, err := uuid.Parse(event.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	payload, err := DecodeChange(event)
	require.NoError(t, err)
	assert.Equal(t, domain.EntityInk, payload.Entity)
	var decoded domain.Ink
	require.NoError(t, payload.DecodeAfter(&decoded))
	assert.Equal(t, "Oxford Blue", decoded.Name)
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus("", zerolog.Nop())
	var (
		mu  sync.Mutex
		got []string
	)
	unsubscribe := bus.Subscribe(func(_ context.Context, e cloudevents.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type()+" "+e.Subject())
	})
	other := 0
	bus.Subscribe(func(context.Context, cloudevents.Event) { other++ })
	require.Equal(t, 2, bus.Subscribers())

	pen := domain.Pen{Base: domain.Base{ID: "1"}, Brand: "Lamy"}
	require.NoError(t, bus.PublishChange(context.Background(), domain.Change{Entity: domain.EntityPen, Action: domain.ActionDelete, Before: pen}))
	assert.Equal(t, []string{"com.inked.pen.deleted 1"}, got)
	assert.Equal(t, 1, other)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, bus.Subscribers())
	require.NoError(t, bus.PublishChange(context.Background(), domain.Change{Entity: domain.EntityPen, Action: domain.ActionCreate, After: pen}))
	assert.Len(t, got, 1)
	assert.Equal(t, 2, other)
}

func TestBusDefaultsSource(t *testing.T) {
	bus := NewBus("", zerolog.Nop())
	var source string
	bus.Subscribe(func(_ context.Context, e cloudevents.Event) { source = e.Source() })
	require.NoError(t, bus.PublishChange(context.Background(), domain.Change{Entity: domain.EntityBrandLogo, Action: domain.ActionCreate, After: domain.BrandLogo{BrandKey: "lamy"}}))
	assert.Equal(t, DefaultSource, source)
}
