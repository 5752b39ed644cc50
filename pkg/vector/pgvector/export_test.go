package pgvector

var (
	EncodeVector = encodeVector
	ParseVector  = parseVector
)
