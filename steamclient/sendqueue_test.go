package steamclient

import (
	"context"
	"testing"
	"time"
)

func TestSendPacketRoutesThroughWriter(t *testing.T) {
	conn := &mockConn{writeCh: make(chan []byte, 1)}
	c := New()
	c.conn = conn
	c.done = make(chan struct{})
	c.startWriter()

	if err := c.sendPacket(context.Background(), EMsgClientHeartBeat, nil, nil); err != nil {
		t.Fatalf("sendPacket: %v", err)
	}

	select {
	case <-conn.writeCh:
	case <-time.After(time.Second):
		t.Fatal("writeLoop never called conn.Write")
	}
}

func TestEnqueueFrameBlocksOnFullQueueUntilCtxDone(t *testing.T) {
	c := New()
	c.done = make(chan struct{})
	// No writer started: sendQueue fills up and stays full, so an enqueue
	// past its capacity must block until ctx expires.
	c.sendQueue = make(chan sendJob, 1)
	c.sendQueue <- sendJob{ctx: context.Background(), data: []byte("x"), result: make(chan error, 1)}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.enqueueFrame(ctx, []byte("y"))
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestEnqueueFrameReturnsOnDisconnect(t *testing.T) {
	c := New()
	c.done = make(chan struct{})
	c.sendQueue = make(chan sendJob, 1)
	c.sendQueue <- sendJob{ctx: context.Background(), data: []byte("x"), result: make(chan error, 1)}
	close(c.done)

	err := c.enqueueFrame(context.Background(), []byte("y"))
	if err != ErrDisconnected {
		t.Fatalf("err = %v, want ErrDisconnected", err)
	}
}

func TestConnStateString(t *testing.T) {
	cases := map[connState]string{
		StateDisconnected:          "Disconnected",
		StateConnecting:            "Connecting",
		StateChannelEncryptPending: "ChannelEncryptPending",
		StateEncrypted:             "Encrypted",
		StateLoggedOn:              "LoggedOn",
		StateDisconnecting:         "Disconnecting",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestSetStateAndState(t *testing.T) {
	c := New()
	c.setState(StateLoggedOn)
	if got := c.State(); got != StateLoggedOn {
		t.Errorf("State() = %v, want StateLoggedOn", got)
	}
}
