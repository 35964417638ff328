package http_test

import (
	"encoding/json"
	"testing"

	rerunhttp "github.com/aretw0/rerun/pkg/adapters/http"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamManager_FanOut(t *testing.T) {
	sm := rerunhttp.NewStreamManager(nil)
	a, cancelA := sm.Subscribe("s1")
	b, cancelB := sm.Subscribe("s1")
	other, cancelOther := sm.Subscribe("s2")
	defer cancelA()
	defer cancelB()
	defer cancelOther()

	assert.Equal(t, 2, sm.Subscribers("s1"))

	sm.SendStatus("s1", domain.StatusBegin, nil)

	for _, ch := range []<-chan []byte{a, b} {
		var msg domain.Message
		require.NoError(t, json.Unmarshal(<-ch, &msg))
		assert.Equal(t, domain.MessageTypeStatus, msg.Type)
		assert.Equal(t, "s1", msg.SessionID)
	}
	assert.Empty(t, other)
}

func TestStreamManager_UpdateEncoding(t *testing.T) {
	sm := rerunhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	render := "<p>hi</p>"
	index := 3
	sm.Send("s1", domain.Update{Render: &render, Container: domain.Main, Index: &index, ClearBefore: true})

	var msg domain.Message
	require.NoError(t, json.Unmarshal(<-ch, &msg))
	assert.Equal(t, domain.MessageTypeUpdate, msg.Type)
	assert.Equal(t, "main", msg.Container)
	require.NotNil(t, msg.Index)
	assert.Equal(t, 3, *msg.Index)
	assert.True(t, msg.ClearBefore)
	assert.Equal(t, render, *msg.Render)
}

func TestStreamManager_CancelClosesOnce(t *testing.T) {
	sm := rerunhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, sm.Subscribers("s1"))

	// Publishing to a session without subscribers is a no-op.
	sm.SendStatus("s1", domain.StatusEnd, nil)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := rerunhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	for i := 0; i < rerunhttp.DefaultBufferSize+10; i++ {
		sm.Broadcast("s1", []byte("x"))
	}
	assert.Len(t, ch, rerunhttp.DefaultBufferSize)
}
