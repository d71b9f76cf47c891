package bq

var (
	ProtoFieldJSONName = protoFieldJSONName
	SanitizeProtoJSON  = sanitizeProtoJSON
	SplitRows          = splitRows
)
