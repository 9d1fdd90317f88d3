// Package protocol implements the framed serial link used to drive an HRTIM
// board from a host. Every frame is
//
//	len | seq | payload | crc16 | 0x7E
//
// where the payload is a sequence of VLQ-encoded command IDs and arguments.
package protocol

// Frame layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence byte: high nibble is always MessageDest, low nibble counts.
	MessageDest    = 0x10
	MessageSeqMask = 0x0F

	// MessageMax is the scratch space for one burst of outgoing frames.
	MessageMax = 512
)

// NextSequence returns the sequence byte following seq.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
