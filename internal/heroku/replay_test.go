package heroku

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplayGuard_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewReplayGuard(time.Minute, func() time.Time { return now })

	body := []byte(`{"resource":"release"}`)
	assert.False(t, g.Seen(body))

	g.Record(body)
	assert.True(t, g.Seen(body))
	assert.False(t, g.Seen([]byte(`{"resource":"dyno"}`)))

	now = now.Add(time.Minute - time.Second)
	assert.True(t, g.Seen(body))

	now = now.Add(time.Second)
	assert.False(t, g.Seen(body))
	assert.Equal(t, 0, g.Len())
}

func TestReplayGuard_RecordPrunes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewReplayGuard(time.Minute, func() time.Time { return now })

	g.Record([]byte("a"))
	g.Record([]byte("b"))
	assert.Equal(t, 2, g.Len())

	now = now.Add(2 * time.Minute)
	g.Record([]byte("c"))
	assert.Equal(t, 1, g.Len())
}

func TestReplayGuard_Disabled(t *testing.T) {
	g := NewReplayGuard(0, nil)
	assert.Nil(t, g)

	g.Record([]byte("a"))
	assert.False(t, g.Seen([]byte("a")))
	assert.Equal(t, 0, g.Len())
}
