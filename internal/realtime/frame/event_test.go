package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresenceShapes(t *testing.T) {
	cases := map[string][]string{
		`["u2","u1"]`:      {"u1", "u2"},
		`"u1,u2"`:          {"u1", "u2"},
		`"[u1, u2]"`:       {"u1", "u2"},
		`u1 u2 u1`:         {"u1", "u2"},
		`[1, 2]`:           {"1", "2"},
		``:                 {},
		`null`:             {},
		`""`:               {},
		`["", " u3 "]`:     {"u3"},
	}

	for body, want := range cases {
		got, err := ParsePresence([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}
}

func TestParsePresenceRejectsObject(t *testing.T) {
	_, err := ParsePresence([]byte(`{"users":["u1"]}`))
	assert.Error(t, err)
}

func TestDecodeInboxResolvesPeer(t *testing.T) {
	body := []byte(`{"type":"CHAT","sender":"bob","receiver":"alice","content":"hi"}`)

	evt, err := Decode(InboxTopic("alice"), body, "alice")
	require.NoError(t, err)
	inbox, ok := evt.(InboxEvent)
	require.True(t, ok)
	assert.Equal(t, "bob", inbox.Peer)

	evt, err = Decode(InboxTopic("bob"), body, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", evt.(InboxEvent).Peer)
}

func TestDecodeInboxDropsForeignMessage(t *testing.T) {
	body := []byte(`{"type":"CHAT","sender":"bob","receiver":"carol","content":"hi"}`)

	evt, err := Decode(InboxTopic("alice"), body, "alice")
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, evt.Kind())
}

func TestDecodeNoticeKinds(t *testing.T) {
	evt, err := Decode(NoticeTopic("alice"), []byte(`{"type":"NEW_MESSAGE","sender":"bob"}`), "alice")
	require.NoError(t, err)
	assert.Equal(t, EventNotice, evt.Kind())

	evt, err = Decode(NoticeTopic("alice"), []byte(`{"type":"PRICE_DROP"}`), "alice")
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, evt.Kind())

	_, err = Decode(NoticeTopic("alice"), []byte(`{"type":`), "alice")
	assert.Error(t, err)
}

func TestParseTopic(t *testing.T) {
	kind, id := ParseTopic("/topic/inbox.alice")
	assert.Equal(t, TopicInbox, kind)
	assert.Equal(t, "alice", id)

	kind, _ = ParseTopic("/topic/inbox.")
	assert.Equal(t, TopicUnknown, kind)

	kind, _ = ParseTopic(TopicOnlineUsers)
	assert.Equal(t, TopicPresence, kind)
}
