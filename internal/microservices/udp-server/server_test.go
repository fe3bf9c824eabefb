package udp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"darwinawards/internal/shared"
	"darwinawards/internal/synced"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerSuite struct {
	suite.Suite
	server *Server
	source *synced.Source
	cancel context.CancelFunc
	done   chan error
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.source = synced.NewSource()
	s.source.Assign(synced.CorpusKey, []byte(`general: ["R.I.P. {player}"]`))
	s.source.Assign(synced.SettingsKey, []byte(`{"locked":true,"number_of_deaths":3,"timer_for_deaths":10}`))

	server, err := NewServer("127.0.0.1:0", s.source, time.Minute, nil)
	s.Require().NoError(err)
	s.server = server

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() { s.done <- server.Start(ctx) }()
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("server did not stop")
	}
}

func (s *ServerSuite) dial() *net.UDPConn {
	conn, err := net.DialUDP("udp", nil, s.server.Addr())
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })
	return conn
}

func (s *ServerSuite) send(conn *net.UDPConn, msg *Message) {
	data, err := msg.ToJSON()
	s.Require().NoError(err)
	_, err = conn.Write(data)
	s.Require().NoError(err)
}

// subscribe registers a peer and drains the confirmation and initial sync.
func (s *ServerSuite) subscribe(peerID, player string) *net.UDPConn {
	conn := s.dial()
	s.send(conn, NewSubscribe(peerID, player))

	s.Equal(MessageSubscribed, readMessage(s.T(), conn).Type)
	for range s.source.Snapshot() {
		s.Equal(MessageSync, readMessage(s.T(), conn).Type)
	}
	return conn
}

func (s *ServerSuite) TestSubscribeSendsConfirmationThenValues() {
	conn := s.dial()
	s.send(conn, NewSubscribe("peer-a", "Erik"))

	s.Equal(MessageSubscribed, readMessage(s.T(), conn).Type)

	got := map[string]synced.Value{}
	for range 2 {
		msg := readMessage(s.T(), conn)
		s.Require().Equal(MessageSync, msg.Type)
		got[msg.Name] = msg.Value()
	}

	corpusValue, _ := s.source.Get(synced.CorpusKey)
	s.Equal(corpusValue, got[synced.CorpusKey])
	s.Contains(got, synced.SettingsKey)
	s.Equal(1, s.server.SubscriberCount())
}

func (s *ServerSuite) TestDeathRelayedToOthersOnly() {
	a := s.subscribe("peer-a", "Erik")
	b := s.subscribe("peer-b", "Astrid")
	c := s.subscribe("peer-c", "Bjorn")

	s.send(a, NewDeath("d1", "peer-a", shared.DeathMessage{Category: "death by fire", Text: "Burned to a crisp by Troll"}))

	for _, conn := range []*net.UDPConn{b, c} {
		msg := readMessage(s.T(), conn)
		s.Equal(MessageDeath, msg.Type)
		s.Equal("d1", msg.ID)
		s.Equal("Burned to a crisp by Troll", msg.Text)
	}
	expectSilence(s.T(), a)
}

func (s *ServerSuite) TestLateJoinerDoesNotReceivePastDeaths() {
	a := s.subscribe("peer-a", "Erik")
	s.subscribe("peer-b", "Astrid")

	s.send(a, NewDeath("d1", "peer-a", shared.DeathMessage{Category: "general", Text: "R.I.P. Erik"}))
	time.Sleep(100 * time.Millisecond)

	late := s.subscribe("peer-late", "Sigrid")
	expectSilence(s.T(), late)
}

func (s *ServerSuite) TestDeathFromUnknownPeerDropped() {
	b := s.subscribe("peer-b", "Astrid")
	stranger := s.dial()

	s.send(stranger, NewDeath("d1", "ghost", shared.DeathMessage{Category: "general", Text: "R.I.P. ghost"}))
	expectSilence(s.T(), b)
}

func (s *ServerSuite) TestPingPong() {
	conn := s.subscribe("peer-a", "Erik")
	s.send(conn, NewControl(MessagePing, "peer-a"))
	s.Equal(MessagePong, readMessage(s.T(), conn).Type)
}

func (s *ServerSuite) TestUnsubscribe() {
	conn := s.subscribe("peer-a", "Erik")
	s.send(conn, NewControl(MessageUnsubscribe, "peer-a"))

	s.Equal(MessageUnsubscribed, readMessage(s.T(), conn).Type)
	s.Equal(0, s.server.SubscriberCount())
}

func (s *ServerSuite) TestPublishValueReachesAllPeers() {
	a := s.subscribe("peer-a", "Erik")
	b := s.subscribe("peer-b", "Astrid")

	v := s.source.Assign(synced.CorpusKey, []byte(`{}`))
	s.Require().NoError(s.server.PublishValue(context.Background(), v))

	for _, conn := range []*net.UDPConn{a, b} {
		msg := readMessage(s.T(), conn)
		s.Equal(MessageSync, msg.Type)
		s.Equal(v.Version, msg.Version)
	}
}

func (s *ServerSuite) TestInvalidDatagramIgnored() {
	conn := s.subscribe("peer-a", "Erik")
	_, err := conn.Write([]byte(`garbage`))
	s.Require().NoError(err)

	raw, _ := json.Marshal(map[string]string{"type": "PING", "peer_id": "peer-a"})
	_, err = conn.Write(raw)
	s.Require().NoError(err)

	s.Equal(MessagePong, readMessage(s.T(), conn).Type)
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	server, err := NewServer("127.0.0.1:0", nil, time.Minute, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
}
