package logsurface

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_CreatesChannelLazilyAndReusesIt(t *testing.T) {
	p := NewProvider(DefaultName)
	assert.False(t, p.Created())

	first := p.Channel()
	assert.True(t, p.Created())
	assert.Same(t, first, p.Channel())
	assert.Equal(t, "Bokeh", first.Name())
}

func TestChannel_AppendIsUnmodified(t *testing.T) {
	ch := NewProvider(DefaultName).Channel()

	ch.AppendLine("Examining file...")
	ch.Append("2024-01-01 INFO Bokeh app running at: http://localhost:5006/\n\x1b[31mred\x1b[0m")
	ch.Append("")

	assert.Equal(t,
		"Examining file...\n2024-01-01 INFO Bokeh app running at: http://localhost:5006/\n\x1b[31mred\x1b[0m",
		ch.Contents())
}

func TestChannel_RetentionKeepsNewestBytes(t *testing.T) {
	ch := NewProvider(DefaultName, WithCapacity(8)).Channel()

	ch.Append("abcdef")
	ch.Append("ghij")
	assert.Equal(t, "cdefghij", ch.Contents())
	assert.Equal(t, 8, ch.Size())

	ch.Append("0123456789")
	assert.Equal(t, "23456789", ch.Contents())
}

func TestChannel_SubscribersReceiveAppends(t *testing.T) {
	ch := NewProvider(DefaultName).Channel()
	sub, cancel := ch.Subscribe()
	defer cancel()

	ch.AppendLine("Starting server...")

	select {
	case got := <-sub:
		assert.Equal(t, "Starting server...\n", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for appended text")
	}
}

func TestChannel_CancelSubscriptionTwice(t *testing.T) {
	ch := NewProvider(DefaultName).Channel()
	sub, cancel := ch.Subscribe()
	cancel()
	cancel()

	_, ok := <-sub
	assert.False(t, ok)
}

func TestChannel_MirrorsToFileInAppendMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bokeh.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	p := NewProvider(DefaultName, WithFile(path))
	p.Channel().AppendLine("Using /usr/bin/python3")
	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run\nUsing /usr/bin/python3\n", string(data))
}

func TestChannel_CloseEndsSubscriptionsAndIgnoresLaterText(t *testing.T) {
	p := NewProvider(DefaultName)
	ch := p.Channel()
	sub, _ := ch.Subscribe()
	ch.Append("kept")

	require.NoError(t, p.Close())
	ch.Append("dropped")

	for range sub {
	}
	assert.False(t, strings.Contains(ch.Contents(), "dropped"))
	assert.Equal(t, "kept", ch.Contents())
}

func TestProvider_CloseWithoutChannel(t *testing.T) {
	assert.NoError(t, NewProvider(DefaultName).Close())
}

func TestProvider_OnCreateRunsOnce(t *testing.T) {
	var created []*Channel
	p := NewProvider(DefaultName, WithOnCreate(func(ch *Channel) { created = append(created, ch) }))
	assert.Empty(t, created)

	ch := p.Channel()
	p.Channel()

	require.Len(t, created, 1)
	assert.Same(t, ch, created[0])
}
