package serialmux

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameLine = `{"frame":1,"detected":true,"joints":{"left_elbow":{"x":0.1,"y":0.2}}}`

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "subscriber channel closed early")
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return")
		return nil
	}
}

func TestSerialMux_SubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	m := NewSerialMux(NewTestableSerialPort())
	id1, ch1 := m.Subscribe()
	id2, _ := m.Subscribe()
	assert.NotEqual(t, id1, id2)
	assert.Len(t, m.subscribers, 2)

	m.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok, "unsubscribe closes the channel")
	assert.Len(t, m.subscribers, 1)

	// unknown ids are ignored
	m.Unsubscribe("nope")
	assert.Len(t, m.subscribers, 1)
}

func TestSerialMux_SendCommand(t *testing.T) {
	t.Parallel()

	t.Run("appends newline once", func(t *testing.T) {
		t.Parallel()
		port := NewTestableSerialPort()
		m := NewSerialMux(port)
		require.NoError(t, m.SendCommand("fps 30"))
		require.NoError(t, m.SendCommand("model lite\n"))
		assert.Equal(t, "fps 30\nmodel lite\n", string(port.GetWrittenData()))
	})

	t.Run("write error", func(t *testing.T) {
		t.Parallel()
		port := NewTestableSerialPort()
		port.WriteError = io.ErrClosedPipe
		err := NewSerialMux(port).SendCommand("x")
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	})

	t.Run("short write", func(t *testing.T) {
		t.Parallel()
		port := NewTestableSerialPort()
		port.ShortWrites = true
		err := NewSerialMux(port).SendCommand("x")
		assert.ErrorIs(t, err, ErrWriteFailed)
	})
}

func TestSerialMux_Initialise(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	m := NewSerialMux(port, WithStartCommands("start", "stream json"))
	require.NoError(t, m.Initialise())
	assert.Equal(t, "start\nstream json\n", string(port.GetWrittenData()))

	failing := NewTestableSerialPort()
	failing.WriteError = errors.New("unplugged")
	err := NewSerialMux(failing, WithStartCommands("start")).Initialise()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"start"`)

	// no commands configured is a no-op
	quiet := NewTestableSerialPort()
	require.NoError(t, NewSerialMux(quiet).Initialise())
	assert.Empty(t, quiet.GetWrittenData())
}

func TestSerialMux_MonitorFansOut(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.BlockReads = true
	m := NewSerialMux(port)
	_, a := m.Subscribe()
	_, b := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Monitor(ctx) }()

	port.AddReadData([]byte(frameLine + "\n" + `{"status":{"fps":30,"model":"lite"}}` + "\n"))

	assert.Equal(t, frameLine, recv(t, a))
	assert.Equal(t, frameLine, recv(t, b))
	recv(t, a)
	recv(t, b)

	assert.Equal(t, map[string]any{"fps": float64(30), "model": "lite"}, m.Status().Snapshot())
	read, dropped := m.LineCounts()
	assert.Equal(t, uint64(2), read)
	assert.Zero(t, dropped)

	cancel()
	assert.ErrorIs(t, waitErr(t, done), context.Canceled)
	require.NoError(t, m.Close())
}

func TestSerialMux_MonitorEOF(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.AddReadData([]byte("a\nb\n"))
	m := NewSerialMux(port)
	_, ch := m.Subscribe()

	require.NoError(t, m.Monitor(context.Background()))
	assert.Equal(t, "a", recv(t, ch))
	assert.Equal(t, "b", recv(t, ch))

	// end of input ends every subscription so consumers can finish
	_, ok := <-ch
	assert.False(t, ok)

	_, late := m.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestSerialMux_MonitorReadError(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.BlockReads = true
	m := NewSerialMux(port)

	done := make(chan error, 1)
	go func() { done <- m.Monitor(context.Background()) }()

	boom := errors.New("device reset")
	port.FailNextRead(boom)
	assert.ErrorIs(t, waitErr(t, done), boom)
}

func TestSerialMux_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	for i := 0; i < subscriberBuffer+10; i++ {
		port.AddReadData([]byte(frameLine + "\n"))
	}
	m := NewSerialMux(port)
	_, ch := m.Subscribe()

	require.NoError(t, m.Monitor(context.Background()))
	read, dropped := m.LineCounts()
	assert.Equal(t, uint64(subscriberBuffer+10), read)
	assert.Equal(t, uint64(10), dropped)
	assert.Len(t, ch, subscriberBuffer)
}

func TestSerialMux_Close(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	m := NewSerialMux(port)
	_, a := m.Subscribe()
	_, b := m.Subscribe()

	require.NoError(t, m.Close())
	_, okA := <-a
	_, okB := <-b
	assert.False(t, okA)
	assert.False(t, okB)
	assert.True(t, port.Closed)
	assert.Empty(t, m.subscribers)
}
