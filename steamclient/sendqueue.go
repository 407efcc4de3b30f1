package steamclient

import (
	"context"
	"fmt"
	"time"
)

// connState tracks where a connection sits in its lifecycle. It exists
// mainly for observability and the heartbeat watchdog; nothing currently
// rejects operations based on it.
type connState int32

const (
	StateDisconnected connState = iota
	StateConnecting
	StateChannelEncryptPending
	StateEncrypted
	StateLoggedOn
	StateDisconnecting
)

func (s connState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateChannelEncryptPending:
		return "ChannelEncryptPending"
	case StateEncrypted:
		return "Encrypted"
	case StateLoggedOn:
		return "LoggedOn"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

func (c *Client) setState(s connState) {
	c.state.Store(int32(s))
}

// State reports the connection's current lifecycle state.
func (c *Client) State() connState {
	return connState(c.state.Load())
}

// sendJob is one frame queued for the single writer goroutine.
type sendJob struct {
	ctx    context.Context
	data   []byte
	result chan<- error
}

// defaultSendQueueDepth bounds how many encoded frames may be queued before
// callers to sendPacket block. Backpressure is cooperative: a full queue
// makes the caller wait rather than dropping or growing unbounded.
const defaultSendQueueDepth = 64

// startWriter launches the single writer goroutine that owns c.conn.Write.
// All sends funnel through c.sendQueue so concurrent callers never
// interleave writes on the wire.
func (c *Client) startWriter() {
	c.sendQueue = make(chan sendJob, defaultSendQueueDepth)
	c.wg.Add(1)
	go c.writeLoop()
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case job := <-c.sendQueue:
			err := c.conn.Write(job.ctx, job.data)
			select {
			case job.result <- err:
			default:
			}
		}
	}
}

// enqueueFrame blocks until the writer has written the frame (returning
// the write error, if any), ctx expires, or the connection closes. While
// the queue is full this is the cooperative backpressure it applies to
// callers.
func (c *Client) enqueueFrame(ctx context.Context, data []byte) error {
	result := make(chan error, 1)
	job := sendJob{ctx: ctx, data: data, result: result}

	select {
	case c.sendQueue <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrDisconnected
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrDisconnected
	}
}

// markFrameSeen records wall-clock time of the most recent frame read off
// the wire, feeding the heartbeat watchdog.
func (c *Client) markFrameSeen() {
	c.lastFrameSeen.Store(time.Now().UnixNano())
}

// startHeartbeatWatchdog arms the 3x-heartbeat-interval staleness check
// described for the framed transport: if no frame at all (not just no
// heartbeat ack) arrives within 3x interval, the connection is presumed
// dead and torn down.
func (c *Client) startHeartbeatWatchdog(interval time.Duration) {
	c.markFrameSeen()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		threshold := 3 * interval
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				last := time.Unix(0, c.lastFrameSeen.Load())
				if time.Since(last) > threshold {
					c.setState(StateDisconnecting)
					c.fireDisconnect(&DisconnectEvent{
						Err: fmt.Errorf("steamclient: no frame received for %s (threshold %s)", time.Since(last), threshold),
					})
					c.closeOnce.Do(func() { close(c.done) })
					if c.conn != nil {
						c.conn.Close()
					}
					return
				}
			}
		}
	}()
}
