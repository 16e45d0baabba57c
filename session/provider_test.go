package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribeReceivesEventsInOrder(t *testing.T) {
	p := NewProvider()
	var got []string

	unsubA := p.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	unsubB := p.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Kind)) })
	defer unsubA()
	defer unsubB()

	id := Identity{UserID: uuid.New(), Email: "grower@example.com"}
	p.Publish(Event{Kind: SignedIn, Identity: id})
	p.Publish(Event{Kind: SignedOut, Identity: id})

	assert.Equal(t, []string{"a:signed_in", "b:signed_in", "a:signed_out", "b:signed_out"}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := NewProvider()
	calls := 0
	unsub := p.Subscribe(func(Event) { calls++ })
	assert.Equal(t, 1, p.Subscribers())

	p.Publish(Event{Kind: SignedIn})
	unsub()
	unsub()
	p.Publish(Event{Kind: SignedIn})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, p.Subscribers())
}

func TestPublishStampsTime(t *testing.T) {
	p := NewProvider()
	var ev Event
	defer p.Subscribe(func(e Event) { ev = e })()

	p.Publish(Event{Kind: SignedOut})
	assert.False(t, ev.At.IsZero())
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	p := NewProvider()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := p.Subscribe(func(Event) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			p.Publish(Event{Kind: SignedIn})
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, p.Subscribers())
	assert.GreaterOrEqual(t, total, 20)
}
