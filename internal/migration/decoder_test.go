package migration

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

// One account, issuer "Example", name "alice@example.com", secret
// JBSWY3DPEHPK3PXP, batch id 12345.
const sampleData = "Ci4KCkhlbGxvId6tvu8SEWFsaWNlQGV4YW1wbGUuY29tGgdFeGFtcGxlIAEoATACEAEYASAAKLlg"

func TestDecode_SingleRecord(t *testing.T) {
	p, err := Decode(Prefix + url.QueryEscape(sampleData))
	require.NoError(t, err)
	require.Len(t, p.Records, 1)

	rec := p.Records[0]
	assert.Equal(t, "JBSWY3DPEHPK3PXP", rec.Base32Secret())
	assert.Equal(t, "alice@example.com", rec.Name)
	assert.Equal(t, "Example", rec.Issuer)
	assert.Equal(t, AlgorithmSHA1, rec.Algorithm)
	assert.Equal(t, DigitsSix, rec.Digits)
	assert.Equal(t, TypeTOTP, rec.Type)
	assert.True(t, rec.Supported())

	assert.Equal(t, int32(1), p.Version)
	assert.Equal(t, int32(1), p.BatchSize)
	assert.Equal(t, int32(12345), p.BatchID)
	assert.Zero(t, p.Skipped)
	assert.Zero(t, p.Dropped)
}

func TestDecode_ExtractionFallbacks(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"query", Prefix + sampleData},
		{"extra params", "otpauth-migration://offline?foo=bar&data=" + sampleData + "&x=1"},
		{"unparseable query", Prefix + sampleData + "&bad=%zz"},
		{"surrounding whitespace", "  " + Prefix + sampleData + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.uri)
			require.NoError(t, err)
			require.Len(t, p.Records, 1)
			assert.Equal(t, "JBSWY3DPEHPK3PXP", p.Records[0].Base32Secret())
		})
	}
}

func TestDecode_UpperCaseSchemeAndHost(t *testing.T) {
	p, err := Decode("OTPAUTH-MIGRATION://OFFLINE?data=" + url.QueryEscape(sampleData))
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", p.Records[0].Base32Secret())

	v, ok := fromRegexp(reFullURI)("Otpauth-Migration://Offline?data=QUJD&x=1")
	require.True(t, ok)
	assert.Equal(t, "QUJD", v)

	_, err = Decode("OTPAUTH://TOTP/x?secret=JBSWY3DPEHPK3PXP")
	assert.ErrorIs(t, err, common.ErrMalformedMigrationPayload)
}

func TestExtractors(t *testing.T) {
	raw := "otpauth-migration://offline?data=abc%zz&y=2"

	_, ok := fromQuery(raw)
	assert.False(t, ok)

	v, ok := fromRegexp(reFullURI)(raw)
	require.True(t, ok)
	assert.Equal(t, "abc%zz", v)

	v, ok = fromSplit("junk data=xyz&more")
	require.True(t, ok)
	assert.Equal(t, "xyz", v)

	v, ok = extractData("otpauth-migration://offline?data=QUJD")
	require.True(t, ok)
	assert.Equal(t, "QUJD", v)

	_, ok = extractData("otpauth-migration://offline")
	assert.False(t, ok)
}

func TestDecode_ScannerCorruption(t *testing.T) {
	// secret bytes chosen so the base64 form contains '+' and '/'
	records := []Record{{
		Secret:    []byte{0xfb, 0xff, 0xbf, 0xfb, 0xff, 0xbf, 0xfb, 0xff, 0xbf, 0xfb},
		Name:      "bob",
		Issuer:    "Corp",
		Algorithm: AlgorithmSHA1,
		Digits:    DigitsSix,
		Type:      TypeTOTP,
	}}
	data := base64.StdEncoding.EncodeToString(Marshal(records))
	require.True(t, strings.ContainsAny(data, "+/"))

	urlSafe := strings.NewReplacer("+", "-", "/", "_").Replace(data)
	unpadded := strings.TrimRight(data, "=")

	tests := []struct {
		name string
		uri  string
	}{
		{"escaped", EncodeURI(records)},
		{"raw plus becomes space", Prefix + data},
		{"url-safe alphabet", Prefix + urlSafe},
		{"missing padding", Prefix + url.QueryEscape(unpadded)},
		{"stray characters", Prefix + url.QueryEscape("*"+data+"\t")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.uri)
			require.NoError(t, err)
			require.Len(t, p.Records, 1)
			assert.Equal(t, records[0].Secret, p.Records[0].Secret)
			assert.Equal(t, "Corp", p.Records[0].Issuer)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	truncated := base64.StdEncoding.EncodeToString([]byte{0x0a, 0x10, 0x01})

	tests := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "otpauth://totp/x?secret=JBSWY3DPEHPK3PXP"},
		{"no data", "otpauth-migration://offline?foo=bar"},
		{"not base64", Prefix + "%21%21%21"},
		{"truncated top level", Prefix + url.QueryEscape(truncated)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.uri)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedMigrationPayload)
		})
	}
}

func TestDecode_SkipsBrokenAndEmptyRecords(t *testing.T) {
	good := Record{Secret: []byte("12345678901234567890"), Name: "good", Issuer: "Acme", Type: TypeTOTP}

	var b []byte
	// truncated submessage: secret claims 5 bytes, carries 1
	b = protowire.AppendTag(b, fieldOTPParameters, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x0a, 0x05, 0x01})
	// record without a secret
	empty := protowire.AppendTag(nil, fieldName, protowire.BytesType)
	empty = protowire.AppendString(empty, "nosecret")
	b = protowire.AppendTag(b, fieldOTPParameters, protowire.BytesType)
	b = protowire.AppendBytes(b, empty)
	// good record with an unknown field
	sub := marshalParameters(good)
	sub = protowire.AppendTag(sub, 15, protowire.VarintType)
	sub = protowire.AppendVarint(sub, 7)
	b = protowire.AppendTag(b, fieldOTPParameters, protowire.BytesType)
	b = protowire.AppendBytes(b, sub)
	// unknown top-level field
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")

	var buf bytes.Buffer
	d := NewDecoder(logging.NewTextLogger(&buf, "debug"))

	uri := Prefix + url.QueryEscape(base64.StdEncoding.EncodeToString(b))
	p, err := d.Decode(context.Background(), uri)
	require.NoError(t, err)

	require.Len(t, p.Records, 1)
	assert.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", p.Records[0].Base32Secret())
	assert.Equal(t, 1, p.Skipped)
	assert.Equal(t, 1, p.Dropped)
	assert.Contains(t, buf.String(), "skipping migration record")
}

func TestDecode_DefaultsUnspecifiedEnums(t *testing.T) {
	var sub []byte
	sub = protowire.AppendTag(sub, fieldSecret, protowire.BytesType)
	sub = protowire.AppendBytes(sub, []byte("abcdefghij"))

	var b []byte
	b = protowire.AppendTag(b, fieldOTPParameters, protowire.BytesType)
	b = protowire.AppendBytes(b, sub)

	p, err := Decode(Prefix + url.QueryEscape(base64.StdEncoding.EncodeToString(b)))
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, AlgorithmSHA1, p.Records[0].Algorithm)
	assert.Equal(t, DigitsSix, p.Records[0].Digits)
	assert.Equal(t, TypeTOTP, p.Records[0].Type)
}

func TestRecord_Supported(t *testing.T) {
	base := Record{Secret: []byte("x"), Algorithm: AlgorithmSHA1, Digits: DigitsSix, Type: TypeTOTP}
	assert.True(t, base.Supported())

	hotp := base
	hotp.Type = TypeHOTP
	assert.False(t, hotp.Supported())

	eight := base
	eight.Digits = DigitsEight
	assert.False(t, eight.Supported())
	assert.Equal(t, 8, eight.Digits.Digits())

	sha256 := base
	sha256.Algorithm = AlgorithmSHA256
	assert.False(t, sha256.Supported())
	assert.Equal(t, "SHA256", sha256.Algorithm.String())
}

func TestEncodeURI_RoundTrip(t *testing.T) {
	in := []Record{
		{Secret: []byte("first-secret-bytes"), Name: "a", Issuer: "One", Algorithm: AlgorithmSHA1, Digits: DigitsSix, Type: TypeTOTP},
		{Secret: []byte("second-secret-byte"), Name: "b", Issuer: "Two", Algorithm: AlgorithmSHA1, Digits: DigitsSix, Type: TypeTOTP},
	}
	uri := EncodeURI(in)
	assert.True(t, strings.HasPrefix(uri, Prefix))

	p, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, in, p.Records)
	assert.Equal(t, int32(1), p.Version)
}
