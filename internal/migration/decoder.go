// Package migration decodes Google Authenticator "otpauth-migration" export
// URIs into account records and builds them back for export.
package migration

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

const (
	// Prefix of the URIs built by EncodeURI.
	Prefix = authority + "?data="

	authority = "otpauth-migration://offline"
)

// MigrationPayload field numbers.
const (
	fieldOTPParameters protowire.Number = 1
	fieldVersion       protowire.Number = 2
	fieldBatchSize     protowire.Number = 3
	fieldBatchIndex    protowire.Number = 4
	fieldBatchID       protowire.Number = 5
)

// OtpParameters field numbers.
const (
	fieldSecret    protowire.Number = 1
	fieldName      protowire.Number = 2
	fieldIssuer    protowire.Number = 3
	fieldAlgorithm protowire.Number = 4
	fieldDigits    protowire.Number = 5
	fieldType      protowire.Number = 6
)

// Decoder decodes migration URIs, logging records it has to skip.
type Decoder struct {
	logger logging.Logger
}

func NewDecoder(logger logging.Logger) *Decoder {
	return &Decoder{logger: logger.With("module", "migration")}
}

// Decode decodes uri with a silent decoder.
func Decode(uri string) (*Payload, error) {
	return NewDecoder(logging.NewNopLogger()).Decode(context.Background(), uri)
}

// Decode parses a migration URI. Any failure before or while reading the
// top-level message is reported as ErrMalformedMigrationPayload; broken
// account submessages are skipped and counted instead.
func (d *Decoder) Decode(ctx context.Context, uri string) (*Payload, error) {
	uri = strings.TrimSpace(uri)
	// scheme and host compare case-insensitively
	if len(uri) < len(authority) || !strings.EqualFold(uri[:len(authority)], authority) {
		return nil, fmt.Errorf("%w: not an %s uri", common.ErrMalformedMigrationPayload, authority)
	}

	value, ok := extractData(uri)
	if !ok {
		return nil, fmt.Errorf("%w: no data parameter", common.ErrMalformedMigrationPayload)
	}

	raw, err := decodeData(value)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", common.ErrMalformedMigrationPayload, err)
	}

	p, err := d.parsePayload(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedMigrationPayload, err)
	}
	return p, nil
}

func (d *Decoder) parsePayload(ctx context.Context, b []byte) (*Payload, error) {
	p := &Payload{}
	index := 0
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldOTPParameters && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			index++

			rec, err := parseParameters(v)
			if err != nil {
				p.Skipped++
				d.logger.Warn(ctx, "skipping migration record",
					logging.Err(fmt.Errorf("%w: %v", common.ErrRecordSkipped, err)),
					"index", index-1)
				continue
			}
			if len(rec.Secret) == 0 {
				p.Dropped++
				continue
			}
			p.Records = append(p.Records, rec)

		case typ == protowire.VarintType && num >= fieldVersion && num <= fieldBatchID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldVersion:
				p.Version = int32(v)
			case fieldBatchSize:
				p.BatchSize = int32(v)
			case fieldBatchIndex:
				p.BatchIndex = int32(v)
			case fieldBatchID:
				p.BatchID = int32(v)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return p, nil
}

func parseParameters(b []byte) (Record, error) {
	rec := Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num >= fieldSecret && num <= fieldIssuer:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Record{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldSecret:
				rec.Secret = append([]byte(nil), v...)
			case fieldName:
				rec.Name = string(v)
			case fieldIssuer:
				rec.Issuer = string(v)
			}

		case typ == protowire.VarintType && num >= fieldAlgorithm && num <= fieldType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Record{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldAlgorithm:
				rec.Algorithm = Algorithm(v)
			case fieldDigits:
				rec.Digits = DigitCount(v)
			case fieldType:
				rec.Type = OTPType(v)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Record{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	if rec.Algorithm == AlgorithmUnspecified {
		rec.Algorithm = AlgorithmSHA1
	}
	if rec.Digits == DigitsUnspecified {
		rec.Digits = DigitsSix
	}
	if rec.Type == TypeUnspecified {
		rec.Type = TypeTOTP
	}
	return rec, nil
}
