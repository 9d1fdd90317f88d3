package protocol

import "sync/atomic"

// CommandHandler handles one decoded command. data is positioned after the
// command ID; the handler consumes its arguments from it.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the device end of the link. It validates incoming frames,
// hands in-sequence payloads to the handler and acknowledges every frame
// with the sequence it expects next.
type Transport struct {
	synchronized uint32 // atomic bool
	nextSequence uint32 // atomic uint8

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func()
}

// NewTransport returns a synchronized transport expecting sequence 0x10.
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		synchronized: 1,
		nextSequence: MessageDest,
		output:       output,
		handler:      handler,
	}
}

// Receive consumes every complete frame in input.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.isSynchronized() {
			var ok bool
			if data, ok = skipToSync(data); ok {
				t.setSynchronized(true)
				t.encodeAckNak()
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

		expected := uint8(atomic.LoadUint32(&t.nextSequence))
		if f.Sequence == MessageDest && expected != MessageDest {
			// host restarted its sequence
			expected = MessageDest
			atomic.StoreUint32(&t.nextSequence, MessageDest)
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if f.Sequence == expected {
			atomic.StoreUint32(&t.nextSequence, uint32(NextSequence(expected)))
			_ = t.dispatch(f.Payload)
		}
		// an out-of-sequence frame is answered with the expected sequence (NAK)
		t.encodeAckNak()
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.setSynchronized(false)
		}
	}()

	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.setSynchronized(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) encodeAckNak() {
	encodeFrame(t.output, uint8(atomic.LoadUint32(&t.nextSequence)), nil)
}

// SendCommand appends a response frame. Responses carry the current ack
// sequence.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	encodeFrame(t.output, uint8(atomic.LoadUint32(&t.nextSequence)), func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset returns the transport to its initial state.
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.synchronized, 1)
	atomic.StoreUint32(&t.nextSequence, MessageDest)
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a function run when the host restarts its
// sequence.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

func (t *Transport) isSynchronized() bool {
	return atomic.LoadUint32(&t.synchronized) != 0
}

func (t *Transport) setSynchronized(val bool) {
	var v uint32
	if val {
		v = 1
	}
	atomic.StoreUint32(&t.synchronized, v)
}
