package protocol

// Frame is one validated frame.
type Frame struct {
	Sequence uint8
	Payload  []byte // aliases the input
}

type scanResult uint8

const (
	scanFrame   scanResult = iota // a frame was extracted
	scanPartial                   // more bytes needed
	scanBad                       // framing error, resynchronize
)

// scan validates the frame at the head of data, which must not start with a
// sync byte. n is the frame length when a frame was found.
func scan(data []byte) (f Frame, n int, res scanResult) {
	if len(data) < MessageLengthMin {
		return f, 0, scanPartial
	}
	n = int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return f, 0, scanBad
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return f, 0, scanBad
	}
	if len(data) < n {
		return f, 0, scanPartial
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return f, 0, scanBad
	}
	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return f, 0, scanBad
	}
	return Frame{Sequence: seq, Payload: data[MessageHeaderSize : n-MessageTrailerSize]}, n, scanFrame
}

// skipToSync drops everything up to and including the next sync byte. ok is
// false when there is none.
func skipToSync(data []byte) (rest []byte, ok bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}

// encodeFrame appends a frame carrying seq and whatever body writes.
func encodeFrame(out OutputBuffer, seq uint8, body func(OutputBuffer)) {
	start := out.CurPosition()
	out.Output([]byte{0, seq})
	if body != nil {
		body(out)
	}
	out.Update(start, uint8(len(out.DataSince(start))+MessageTrailerSize))
	crc := CRC16(out.DataSince(start))
	out.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}
