package coding

// Rule identifiers reported by the command recorder validators.
const (
	RuleBeginInScope        = "CmdBeginVideoCoding-scope-active"
	RuleNotInScope          = "CmdVideoCoding-scope-inactive"
	RuleQueueOperation      = "CmdBeginVideoCoding-queueFamily-videoCodecOperations"
	RuleMemoryUnbound       = "CmdBeginVideoCoding-videoSession-memoryBound"
	RuleProtectedSession    = "CmdBeginVideoCoding-commandBuffer-protected"
	RuleParametersSession   = "CmdBeginVideoCoding-videoSessionParameters-session"
	RuleParametersRequired  = "CmdBeginVideoCoding-videoSessionParameters-required"
	RuleBeginSlotIndex      = "CmdBeginVideoCoding-slotIndex-range"
	RuleBeginSlotUnique     = "CmdBeginVideoCoding-slotIndex-unique"
	RuleBeginPictureUnique  = "CmdBeginVideoCoding-pPictureResource-unique"
	RuleBeginSlotPicture    = "CmdBeginVideoCoding-slotIndex-pPictureResource"
	RuleBeginSlotActive     = "CmdBeginVideoCoding-slotIndex-active"
	RuleBeginSlotHolds      = "CmdBeginVideoCoding-slotIndex-picture"
	RuleSessionDestroyed    = "QueueSubmit-videoSession-destroyed"
	RuleParametersDestroyed = "QueueSubmit-videoSessionParameters-destroyed"
	RuleParametersBound     = "QueueSubmit-videoSessionParameters-bound"

	RuleControlFlags              = "CmdControlVideoCoding-flags"
	RuleControlEncodeOnly         = "CmdControlVideoCoding-flags-encode"
	RuleControlRateControlMissing = "CmdControlVideoCoding-pRateControlInfo"
	RuleControlQualityLevel       = "CmdControlVideoCoding-qualityLevel"

	RuleEndActiveQuery = "CmdEndVideoCoding-activeQuery"

	RuleOperationKind = "CmdVideoCoding-videoSession-operation"

	RuleBufferMissing         = "CmdVideoCoding-buffer-missing"
	RuleBufferUsage           = "CmdVideoCoding-buffer-usage"
	RuleBufferProfile         = "CmdVideoCoding-buffer-profile"
	RuleBufferProtected       = "CmdVideoCoding-buffer-protected"
	RuleBufferOffset          = "CmdVideoCoding-bufferOffset-size"
	RuleBufferOffsetAlignment = "CmdVideoCoding-bufferOffset-alignment"
	RuleBufferRange           = "CmdVideoCoding-bufferRange-size"
	RuleBufferRangeAlignment  = "CmdVideoCoding-bufferRange-alignment"

	RulePictureView      = "CmdVideoCoding-pictureResource-imageView"
	RulePictureProfile   = "CmdVideoCoding-pictureResource-profile"
	RulePictureUsage     = "CmdVideoCoding-pictureResource-usage"
	RulePictureOffset    = "CmdVideoCoding-pictureResource-codedOffset"
	RulePictureExtent    = "CmdVideoCoding-pictureResource-codedExtent"
	RulePictureBounds    = "CmdVideoCoding-pictureResource-bounds"
	RulePictureLayer     = "CmdVideoCoding-pictureResource-baseArrayLayer"
	RulePictureLayout    = "CmdVideoCoding-pictureResource-layout"
	RulePictureProtected = "CmdVideoCoding-pictureResource-protected"

	RuleSetupRequired    = "CmdVideoCoding-pSetupReferenceSlot-required"
	RuleSetupNotAllowed  = "CmdVideoCoding-pSetupReferenceSlot-maxDpbSlots"
	RuleSetupSlotIndex   = "CmdVideoCoding-pSetupReferenceSlot-slotIndex"
	RuleSetupPicture     = "CmdVideoCoding-pSetupReferenceSlot-pPictureResource"
	RuleSetupNotBound    = "CmdVideoCoding-pSetupReferenceSlot-bound"
	RuleDpbCoincide      = "CmdDecodeVideo-dpbAndOutputCoincide"
	RuleDpbDistinct      = "CmdDecodeVideo-dpbAndOutputDistinct"
	RuleFilmGrainOutput  = "CmdDecodeVideo-av1-applyGrain-distinctOutput"
	RuleReferenceIndex   = "CmdVideoCoding-pReferenceSlots-slotIndex"
	RuleReferencePicture = "CmdVideoCoding-pReferenceSlots-pPictureResource"
	RuleReferenceBound   = "CmdVideoCoding-pReferenceSlots-bound"
	RuleReferenceUnique  = "CmdVideoCoding-pReferenceSlots-unique"
	RuleSlotReused       = "CmdVideoCoding-dpbSlot-usedMoreThanOnce"
	RuleActiveReferences = "CmdVideoCoding-maxActiveReferencePictures"
	RuleReferenceActive  = "CmdVideoCoding-pReferenceSlots-active"
	RuleReferenceHolds   = "CmdVideoCoding-pReferenceSlots-picture"

	RuleMissingPictureInfo   = "CmdVideoCoding-pStdPictureInfo"
	RuleMissingReferenceInfo = "CmdVideoCoding-pStdReferenceInfo"
	RuleParametersMissing    = "CmdVideoCoding-videoSessionParameters-missing"
	RuleMissingParameterSet  = "CmdVideoCoding-parameterSet-missing"
	RuleInlineParameters     = "CmdDecodeVideo-inlineSessionParameters"
	RuleInlineMismatch       = "CmdDecodeVideo-inlineSessionParameters-id"
	RuleSliceCount           = "CmdVideoCoding-sliceCount"
	RuleSliceOffset          = "CmdDecodeVideo-sliceOffset"
	RuleFieldUnsupported     = "CmdDecodeVideo-h264-field-pictureLayout"
	RuleFieldMismatch        = "CmdDecodeVideo-h264-field-kind"
	RuleH265RefPicSet        = "CmdDecodeVideo-h265-RefPicSet"
	RuleAV1ReferenceNames    = "CmdVideoCoding-av1-referenceNameSlotIndices"
	RuleAV1FrameHeaderOffset = "CmdDecodeVideo-av1-frameHeaderOffset"
	RuleAV1TileOffset        = "CmdDecodeVideo-av1-tileOffset"
	RuleAV1TileCount         = "CmdVideoCoding-av1-tileCount"
	RuleAV1FilmGrain         = "CmdDecodeVideo-av1-filmGrainSupport"

	RulePrecedingBytes         = "CmdEncodeVideo-precedingExternallyEncodedBytes"
	RuleQuantizationMapFlags   = "CmdEncodeVideo-quantizationMap-flags"
	RuleQuantizationMapSession = "CmdEncodeVideo-quantizationMap-session"
	RuleQuantizationMapParams  = "CmdEncodeVideo-quantizationMap-parameters"
	RuleQuantizationMapMissing = "CmdEncodeVideo-quantizationMap-missing"
	RuleQuantizationMapUsage   = "CmdEncodeVideo-quantizationMap-usage"
	RuleQuantizationMapTexel   = "CmdEncodeVideo-quantizationMap-texelSize"
	RuleQuantizationMapExtent  = "CmdEncodeVideo-quantizationMap-extent"
	RuleEmphasisMapRateControl = "CmdEncodeVideo-emphasisMap-rateControlMode"
	RuleConstantQp             = "CmdEncodeVideo-constantQp-range"
	RuleConstantQpRateControl  = "CmdEncodeVideo-constantQp-rateControlMode"
	RuleConstantQpUniform      = "CmdEncodeVideo-constantQp-perSlice"
	RuleSliceHeader            = "CmdEncodeVideo-pStdSliceHeader"
	RuleSliceType              = "CmdEncodeVideo-sliceType-different"
	RulePrefixNalu             = "CmdEncodeVideo-h264-generatePrefixNalu"
	RuleIdrFlag                = "CmdEncodeVideo-pictureType-idr"
	RuleIntraReferences        = "CmdEncodeVideo-intra-references"
	RuleRefListEntry           = "CmdEncodeVideo-refList-entry"
	RuleRefListCount           = "CmdEncodeVideo-refList-count"
	RuleBFrameInList           = "CmdEncodeVideo-refList-bFrame"
	RuleTemporalID             = "CmdEncodeVideo-temporalId"
	RuleH265Tiles              = "CmdEncodeVideo-h265-tiles"
	RuleH264SliceExtent        = "CmdEncodeVideo-h264-sliceCount-codedExtent"
	RuleH265SegmentExtent      = "CmdEncodeVideo-h265-sliceSegmentCount-codedExtent"
	RuleAV1TileExtent          = "CmdEncodeVideo-av1-tileCount-codedExtent"
	RuleAV1PredictionMode      = "CmdEncodeVideo-av1-predictionMode"
	RuleAV1ReferenceCount      = "CmdEncodeVideo-av1-referenceCount"
	RuleAV1ReferenceNameMask   = "CmdEncodeVideo-av1-referenceNameMask"
	RuleAV1Superblock          = "CmdEncodeVideo-av1-superblockSize"
	RuleAV1CapabilityFlag      = "CmdEncodeVideo-av1-capabilityFlags"

	RuleInlineQueryNotEnabled = "CmdVideoCoding-inlineQuery-session"
	RuleQueryConflict         = "CmdVideoCoding-inlineQuery-activeQuery"
	RuleQueryPool             = "CmdVideoCoding-queryPool"
	RuleQueryType             = "CmdVideoCoding-queryPool-queryType"
	RuleQueryProfile          = "CmdVideoCoding-queryPool-profile"
	RuleQueryRange            = "CmdVideoCoding-query-range"
	RuleQueryCount            = "CmdVideoCoding-query-operationCount"
	RuleQueryResultStatus     = "CmdVideoCoding-queryPool-resultStatus"
	RuleQueryFeedbackFlags    = "CmdEncodeVideo-queryPool-encodeFeedbackFlags"
)
