package migration

import (
	"encoding/base64"
	"net/url"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes records as a single-batch migration payload.
func Marshal(records []Record) []byte {
	var b []byte
	for _, r := range records {
		sub := marshalParameters(r)
		b = protowire.AppendTag(b, fieldOTPParameters, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	b = appendVarint(b, fieldVersion, 1)
	b = appendVarint(b, fieldBatchSize, 1)
	b = appendVarint(b, fieldBatchIndex, 0)
	return b
}

func marshalParameters(r Record) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldSecret, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Secret)
	if r.Name != "" {
		b = protowire.AppendTag(b, fieldName, protowire.BytesType)
		b = protowire.AppendString(b, r.Name)
	}
	if r.Issuer != "" {
		b = protowire.AppendTag(b, fieldIssuer, protowire.BytesType)
		b = protowire.AppendString(b, r.Issuer)
	}
	b = appendVarint(b, fieldAlgorithm, uint64(r.Algorithm))
	b = appendVarint(b, fieldDigits, uint64(r.Digits))
	b = appendVarint(b, fieldType, uint64(r.Type))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// EncodeURI builds a migration URI carrying records.
func EncodeURI(records []Record) string {
	data := base64.StdEncoding.EncodeToString(Marshal(records))
	return Prefix + url.QueryEscape(data)
}
