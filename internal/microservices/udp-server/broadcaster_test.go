package udp

import (
	"net"
	"testing"
	"time"

	"darwinawards/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *net.UDPConn) *Message {
	t.Helper()
	buffer := make([]byte, MaxDatagramSize)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buffer)
	require.NoError(t, err)
	msg, err := ParseMessage(buffer[:n])
	require.NoError(t, err)
	return msg
}

func expectSilence(t *testing.T, conn *net.UDPConn) {
	t.Helper()
	buffer := make([]byte, MaxDatagramSize)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, err := conn.Read(buffer)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestBroadcaster_BroadcastExceptSkipsOrigin(t *testing.T) {
	sender := listenLoopback(t)
	peerA := listenLoopback(t)
	peerB := listenLoopback(t)

	sm := NewSubscriberManager(time.Minute)
	sm.Add("a", "Erik", peerA.LocalAddr().(*net.UDPAddr))
	sm.Add("b", "Astrid", peerB.LocalAddr().(*net.UDPAddr))

	b := NewBroadcaster(sender, sm, nil)
	msg := NewDeath("d1", "a", shared.DeathMessage{Category: "general", Text: "R.I.P. Erik"})

	delivered, err := b.BroadcastExcept(msg, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	got := readMessage(t, peerB)
	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, "R.I.P. Erik", got.Text)

	expectSilence(t, peerA)
}

func TestBroadcaster_NoSubscribers(t *testing.T) {
	b := NewBroadcaster(listenLoopback(t), NewSubscriberManager(time.Minute), nil)

	delivered, err := b.BroadcastToAll(NewControl(MessagePong, "x"))
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestBroadcaster_FailedSendMarksInactive(t *testing.T) {
	sender := listenLoopback(t)
	sm := NewSubscriberManager(time.Minute)
	sm.Add("gone", "Bjorn", udpAddr(t, "127.0.0.1:9"))

	// a closed socket fails every write
	sender.Close()
	b := NewBroadcaster(sender, sm, nil)

	delivered, err := b.BroadcastToAll(NewControl(MessagePong, "x"))
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, sm.GetAll())
	assert.Equal(t, 1, sm.Count(), "the peer stays known until cleanup or resubscribe")
}
