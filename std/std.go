// Package std mirrors the codec standard structures (StdVideo*) that carry the codec-level payload of
// Vulkan Video calls. Only the fields the checker inspects are kept.
package std

// NoReferencePicture marks an unused entry of a reference list or reference name table.
const NoReferencePicture = 0xff

const (
	H264MaxNumListRef = 32
	H265MaxNumListRef = 15
	H265MaxDpbSize    = 16
	AV1NumRefFrames   = 8
	AV1RefsPerFrame   = 7
	AV1MaxTileCols    = 64
	AV1MaxTileRows    = 64
)
