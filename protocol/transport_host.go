package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrStopped = errors.New("transport stopped")
	ErrTimeout = errors.New("timeout")
)

// DefaultAckTimeout bounds the wait for the device to acknowledge a frame.
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler is called from the read loop for every response frame.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is a frame received by the host.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// HostTransport is the host end of the link. A background goroutine reads
// the port and sorts acknowledgements from responses; SendCommand blocks
// until the frame is acknowledged.
type HostTransport struct {
	port io.ReadWriteCloser

	seq          uint32 // atomic uint8, sequence of the next frame sent
	synchronized uint32 // atomic bool

	input *FifoBuffer
	out   *ScratchOutput

	ackChan      chan Message
	responseChan chan *Message

	handlerMu       sync.Mutex
	responseHandler ResponseHandler

	sendMu sync.Mutex
	readMu sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts reading port immediately.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		seq:          MessageDest,
		synchronized: 1,
		input:        NewFifoBuffer(MessageMax),
		out:          NewScratchOutput(),
		ackChan:      make(chan Message, 4),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for its acknowledgement.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	seq := uint8(atomic.LoadUint32(&t.seq))
	t.out.Reset()
	encodeFrame(t.out, seq, func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
	msg := t.out.Result()
	if len(msg) > MessageLengthMax {
		return fmt.Errorf("command %d: frame of %d bytes exceeds %d", cmdID, len(msg), MessageLengthMax)
	}

	// stale acknowledgements belong to earlier exchanges
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	if n, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	} else if n != len(msg) {
		return fmt.Errorf("command %d: incomplete write %d/%d bytes", cmdID, n, len(msg))
	}

	if err := t.waitForAck(seq, timeout); err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}
	return nil
}

// waitForAck waits for the device to ask for the sequence after sent.
func (t *HostTransport) waitForAck(sent uint8, timeout time.Duration) error {
	want := NextSequence(sent)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence == want {
				atomic.StoreUint32(&t.seq, uint32(want))
				return nil
			}
			if ack.Sequence == sent {
				// the device still expects this frame
				return fmt.Errorf("NAK: device expects sequence %#02x", ack.Sequence)
			}
		case <-timer.C:
			return fmt.Errorf("ACK %w after %v", ErrTimeout, timeout)
		case <-t.stopChan:
			return ErrStopped
		}
	}
}

// ReceiveResponse returns the oldest unread response frame.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("response %w after %v", ErrTimeout, timeout)
	case <-t.stopChan:
		return nil, ErrStopped
	}
}

// SetResponseHandler installs a callback run for every response, in
// addition to queueing it for ReceiveResponse.
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.processMessages(buf[:n])
		}
		if err != nil {
			select {
			case <-t.stopChan:
				return
			default:
			}
			if err == io.EOF {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) processMessages(chunk []byte) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	t.input.Write(chunk)
	data := t.input.Data()
	for len(data) > 0 {
		if !t.isSynchronized() {
			var ok bool
			if data, ok = skipToSync(data); ok {
				t.setSynchronized(true)
			}
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		f, n, res := scan(data)
		if res == scanPartial {
			break
		}
		if res == scanBad {
			t.setSynchronized(false)
			continue
		}
		data = data[n:]

		payload := make([]byte, len(f.Payload))
		copy(payload, f.Payload)
		t.dispatch(&Message{Sequence: f.Sequence, Payload: payload})
	}

	if consumed := t.input.Available() - len(data); consumed > 0 {
		t.input.Pop(consumed)
	}
}

func (t *HostTransport) dispatch(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- *msg:
		default:
		}
		return
	}

	t.handlerMu.Lock()
	handler := t.responseHandler
	t.handlerMu.Unlock()
	if handler != nil {
		data := msg.Payload
		if cmdID, err := DecodeVLQUint(&data); err == nil {
			_ = handler(uint16(cmdID), &data)
		}
	}

	for {
		select {
		case t.responseChan <- msg:
			return
		default:
		}
		// full: drop the oldest
		select {
		case <-t.responseChan:
		default:
		}
	}
}

// Close stops the read loop and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		err = t.port.Close()
		<-t.doneChan
	})
	return err
}

// Reset restarts the sequence at 0x10 and drops everything queued. The
// device treats a frame with sequence 0x10 as a host restart.
func (t *HostTransport) Reset() {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	atomic.StoreUint32(&t.synchronized, 1)
	atomic.StoreUint32(&t.seq, MessageDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
	t.readMu.Lock()
	t.input.Reset()
	t.readMu.Unlock()
}

// Sequence returns the sequence of the next frame sent.
func (t *HostTransport) Sequence() uint8 {
	return uint8(atomic.LoadUint32(&t.seq))
}

func (t *HostTransport) isSynchronized() bool {
	return atomic.LoadUint32(&t.synchronized) != 0
}

func (t *HostTransport) setSynchronized(val bool) {
	var v uint32
	if val {
		v = 1
	}
	atomic.StoreUint32(&t.synchronized, v)
}
