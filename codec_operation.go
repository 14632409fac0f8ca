package vkvideo

// CodecOperation identifies one video coding operation: decode or encode of one codec standard.
// Values match the Vulkan VkVideoCodecOperationFlagBitsKHR bits so that they can be combined into
// a CodecOperationFlags mask describing what a queue family supports.
type CodecOperation uint32

// Codec identifies a codec standard independently of the coding direction.
type Codec uint8

const (
	OperationNone       CodecOperation = 0
	OperationDecodeH264 CodecOperation = 0x00000001
	OperationDecodeH265 CodecOperation = 0x00000002
	OperationDecodeAV1  CodecOperation = 0x00000004
	OperationEncodeH264 CodecOperation = 0x00010000
	OperationEncodeH265 CodecOperation = 0x00020000
	OperationEncodeAV1  CodecOperation = 0x00040000
)

const (
	CodecUnknown Codec = iota
	CodecH264
	CodecH265
	CodecAV1
)

// decodeMask and encodeMask partition the operation bits by direction.
const (
	decodeMask = 0x0000ffff
	encodeMask = 0xffff0000
)

// CodecOperations lists every operation the checker knows about, in a stable order.
var CodecOperations = []CodecOperation{
	OperationDecodeH264,
	OperationDecodeH265,
	OperationDecodeAV1,
	OperationEncodeH264,
	OperationEncodeH265,
	OperationEncodeAV1,
}

// String returns the human-readable string representation of a CodecOperation.
func (op CodecOperation) String() string {
	switch op {
	case OperationDecodeH264:
		return "DECODE_H264"
	case OperationDecodeH265:
		return "DECODE_H265"
	case OperationDecodeAV1:
		return "DECODE_AV1"
	case OperationEncodeH264:
		return "ENCODE_H264"
	case OperationEncodeH265:
		return "ENCODE_H265"
	case OperationEncodeAV1:
		return "ENCODE_AV1"
	case OperationNone:
		return "NONE"
	}
	return "UNKNOWN"
}

// ParseCodecOperation is the inverse of CodecOperation.String.
func ParseCodecOperation(s string) (CodecOperation, bool) {
	for _, op := range CodecOperations {
		if op.String() == s {
			return op, true
		}
	}
	return OperationNone, false
}

// IsDecode returns true if the operation is a decode operation.
func (op CodecOperation) IsDecode() bool {
	return op != OperationNone && op&decodeMask == op
}

// IsEncode returns true if the operation is an encode operation.
func (op CodecOperation) IsEncode() bool {
	return op != OperationNone && op&encodeMask == op
}

// Codec returns the codec standard of the operation.
func (op CodecOperation) Codec() Codec {
	switch op {
	case OperationDecodeH264, OperationEncodeH264:
		return CodecH264
	case OperationDecodeH265, OperationEncodeH265:
		return CodecH265
	case OperationDecodeAV1, OperationEncodeAV1:
		return CodecAV1
	}
	return CodecUnknown
}

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "H264"
	case CodecH265:
		return "H265"
	case CodecAV1:
		return "AV1"
	}
	return "UNKNOWN"
}

// CodecOperationFlags is a set of codec operations, e.g. the operations a queue family supports.
type CodecOperationFlags uint32

// Has reports whether op is part of the set.
func (f CodecOperationFlags) Has(op CodecOperation) bool {
	return op != OperationNone && CodecOperationFlags(op)&f == CodecOperationFlags(op)
}
