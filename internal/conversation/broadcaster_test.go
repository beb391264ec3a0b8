// ABOUTME: Tests for the in-memory room broadcaster
// ABOUTME: Covers join/publish/disconnect semantics, sender echo and slow-consumer drops

package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func assertNoDelivery(t *testing.T, ch <-chan any) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected delivery: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_PublishReachesRoomMembers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id1, ch1 := b.Connect()
	id2, ch2 := b.Connect()
	b.Join(id1, "room-1")
	b.Join(id2, "room-1")

	b.Publish("room-1", "hello")

	assert.Equal(t, "hello", recvOne(t, ch1))
	assert.Equal(t, "hello", recvOne(t, ch2))
}

func TestBroadcaster_SenderConnectionGetsEcho(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	// The publisher's own connection is a regular room member; it is
	// not suppressed from delivery.
	id, ch := b.Connect()
	b.Join(id, "room-1")

	b.Publish("room-1", "echo")

	assert.Equal(t, "echo", recvOne(t, ch))
}

func TestBroadcaster_NonMembersDoNotReceive(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id1, ch1 := b.Connect()
	_, ch2 := b.Connect()
	b.Join(id1, "room-1")

	b.Publish("room-1", "members only")

	assert.Equal(t, "members only", recvOne(t, ch1))
	assertNoDelivery(t, ch2)
}

func TestBroadcaster_RoomsAreIsolated(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id1, ch1 := b.Connect()
	id2, ch2 := b.Connect()
	b.Join(id1, "room-1")
	b.Join(id2, "room-2")

	b.Publish("room-1", "one")
	b.Publish("room-2", "two")

	assert.Equal(t, "one", recvOne(t, ch1))
	assert.Equal(t, "two", recvOne(t, ch2))
	assertNoDelivery(t, ch1)
	assertNoDelivery(t, ch2)
}

func TestBroadcaster_ConnectionCanJoinMultipleRooms(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id, ch := b.Connect()
	b.Join(id, "room-1")
	b.Join(id, "room-2")

	b.Publish("room-1", "from one")
	b.Publish("room-2", "from two")

	assert.Equal(t, "from one", recvOne(t, ch))
	assert.Equal(t, "from two", recvOne(t, ch))
}

func TestBroadcaster_DoubleJoinDeliversOnce(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id, ch := b.Connect()
	b.Join(id, "room-1")
	b.Join(id, "room-1")

	b.Publish("room-1", "once")

	assert.Equal(t, "once", recvOne(t, ch))
	assertNoDelivery(t, ch)
}

func TestBroadcaster_DisconnectStopsDelivery(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id1, ch1 := b.Connect()
	id2, ch2 := b.Connect()
	b.Join(id1, "room-1")
	b.Join(id2, "room-1")

	b.Disconnect(id1)
	b.Publish("room-1", "after disconnect")

	// Disconnected channel is closed; remaining member still receives.
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, "after disconnect", recvOne(t, ch2))
	assert.Equal(t, 1, b.ConnectionCount())
}

func TestBroadcaster_JoinAfterDisconnectIsIgnored(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id, _ := b.Connect()
	b.Disconnect(id)

	// Must not panic or resurrect the connection.
	b.Join(id, "room-1")
	b.Publish("room-1", "nobody home")
	assert.Equal(t, 0, b.ConnectionCount())
}

func TestBroadcaster_PublishToEmptyRoomIsNoop(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	// No members at all; must not panic.
	b.Publish("ghost-room", "anyone?")
}

func TestBroadcaster_SlowConnectionDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	id, ch := b.Connect()
	b.Join(id, "room-1")

	// Fill the buffer without draining, then publish one more. The
	// extra publish must return rather than block.
	for i := 0; i < connectionBufferSize; i++ {
		b.Publish("room-1", i)
	}

	done := make(chan struct{})
	go func() {
		b.Publish("room-1", "overflow")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full connection channel")
	}

	// Buffered payloads survive; the overflow one was dropped.
	for i := 0; i < connectionBufferSize; i++ {
		require.Equal(t, i, recvOne(t, ch))
	}
	assertNoDelivery(t, ch)
}

func TestBroadcaster_PublishDisconnectChurn(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	// Publishes racing member disconnects must only ever drop payloads,
	// never send on a torn-down connection.
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					b.Publish("churn-room", "payload")
				}
			}
		}()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					id, ch := b.Connect()
					b.Join(id, "churn-room")
					select {
					case <-ch:
					default:
					}
					b.Disconnect(id)
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Equal(t, 0, b.ConnectionCount())
}

func TestBroadcaster_CloseClosesAllChannels(t *testing.T) {
	b := NewBroadcaster(nil)

	_, ch1 := b.Connect()
	_, ch2 := b.Connect()

	b.Close()

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)
	assert.Equal(t, 0, b.ConnectionCount())
}
