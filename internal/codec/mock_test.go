package codec_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPublicKey = "0xpub_7f3a9c21d4e5b6a7_89"

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000)
}

func TestEncodeRoundTrip(t *testing.T) {
	for r := strategy.MinRiskLevel; r <= strategy.MaxRiskLevel; r++ {
		got, err := codec.ExtractValue(codec.Encode(r, testPublicKey, codec.LabelRisk), codec.LabelRisk)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	for a := strategy.MinAllocation; a <= strategy.MaxAllocation; a++ {
		got, err := codec.ExtractValue(codec.Encode(a, testPublicKey, codec.LabelAllocation), codec.LabelAllocation)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	for tf := strategy.MinTimeframe; tf <= strategy.MaxTimeframe; tf++ {
		got, err := codec.ExtractValue(codec.Encode(tf, testPublicKey, codec.LabelTimeframe), codec.LabelTimeframe)
		require.NoError(t, err)
		assert.Equal(t, tf, got)
	}
}

func TestEncodeIgnoresDigitsInSalt(t *testing.T) {
	// 盐中紧挨着的数字不影响解码
	salt := "0x_123_456_7890"
	field := codec.Encode(42, salt, codec.LabelAllocation)

	assert.True(t, strings.HasPrefix(field, codec.EncodedFieldTag))
	got, err := codec.ExtractValue(field, codec.LabelAllocation)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestExtractValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		label string
	}{
		{"missing tag", "deadbeef", codec.LabelRisk},
		{"bad hex", codec.EncodedFieldTag + "zz", codec.LabelRisk},
		{"wrong label", codec.Encode(3, "salt", codec.LabelTimeframe), codec.LabelRisk},
		{"no separators", codec.EncodedFieldTag + "7269736b", codec.LabelRisk},
		{"non numeric", codec.EncodedFieldTag + "7269736b5f785f", codec.LabelRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.ExtractValue(tt.field, tt.label)
			assert.ErrorIs(t, err, codec.ErrUndecodable)
		})
	}
}

func TestGenerateHash(t *testing.T) {
	h := codec.GenerateHash("abc")
	// "abc".hashCode() == 96354 == 0x17862
	assert.Equal(t, "0x"+strings.Repeat("0000000000017862", 4), h)
	assert.Len(t, h, 66)

	assert.Equal(t, "0x"+strings.Repeat("0000000000000000", 4), codec.GenerateHash(""))
	assert.Len(t, codec.GenerateHash(strings.Repeat("z", 1000)), 66)
}

func TestEncryptStrategyDeterministicForSameTimestamp(t *testing.T) {
	m := codec.Mock{Now: fixedClock}
	a := m.EncryptStrategy(7, 75, 90, testPublicKey)
	b := m.EncryptStrategy(7, 75, 90, testPublicKey)

	assert.Equal(t, a, b)
	assert.Equal(t, codec.GenerateHash(a.EncryptedData), a.Hash)

	var p codec.EncryptedPayload
	require.NoError(t, codec.Deserialize(a.EncryptedData, &p))
	assert.Equal(t, codec.SchemeMock, p.Scheme)
	assert.Equal(t, int64(1700000000000), p.Timestamp)
}

func TestComputeScoreReferenceStrategy(t *testing.T) {
	m := codec.Mock{Now: fixedClock}
	enc := m.EncryptStrategy(7, 75, 90, testPublicKey)

	res := m.ComputeScore(enc.EncryptedData, testPublicKey)
	require.NoError(t, res.Err)
	assert.False(t, res.Undecodable())

	var p codec.ScorePayload
	require.NoError(t, codec.Deserialize(res.Payload, &p))
	assert.Equal(t, 84, p.Value)
	assert.Equal(t, testPublicKey[:16], p.ComputedWith)

	dec := m.DecryptScore(res.Payload, "0xpriv_anything")
	require.NoError(t, dec.Err())
	assert.Equal(t, 84, dec.Score())
}

func TestComputeScoreMatchesFormula(t *testing.T) {
	for r := 1; r <= 10; r += 3 {
		for a := 0; a <= 100; a += 25 {
			for tf := 1; tf <= 365; tf += 91 {
				enc := codec.EncryptStrategy(r, a, tf, testPublicKey)
				score := codec.DecryptScore(codec.ComputeScore(enc.EncryptedData, "").Payload, "").Score()
				assert.Equal(t, scoring.Score(r, a, tf), score, "(%d, %d, %d)", r, a, tf)
			}
		}
	}
}

func TestComputeScoreFallsBackToZero(t *testing.T) {
	inputs := []string{
		"%%% not base64",
		base64.StdEncoding.EncodeToString([]byte("{not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"fields":{"riskLevel":"x","allocation":"y","timeframe":"z"}}`)),
		base64.StdEncoding.EncodeToString([]byte(`{"scheme":"ckks","fields":{}}`)),
	}
	for _, in := range inputs {
		res := codec.ComputeScore(in, testPublicKey)
		assert.ErrorIs(t, res.Err, codec.ErrUndecodable)

		var p codec.ScorePayload
		require.NoError(t, codec.Deserialize(res.Payload, &p))
		assert.Equal(t, 0, p.Value)
		assert.Empty(t, p.ComputedWith)
	}
}

func TestDecryptScoreMalformed(t *testing.T) {
	for _, in := range []string{"", "garbage!", base64.StdEncoding.EncodeToString([]byte(`{"timestamp":1}`))} {
		res := codec.DecryptScore(in, "0xpriv_key")
		assert.Equal(t, 0, res.Score())
		assert.Error(t, res.Err())
	}
}

func TestMockEngine(t *testing.T) {
	kp, err := key.GenerateKeyPair()
	require.NoError(t, err)

	var engine codec.Engine = codec.Mock{}
	enc, err := engine.Encrypt(strategy.Input{RiskLevel: 7, Allocation: 75, Timeframe: 90}, kp)
	require.NoError(t, err)

	res := engine.Compute(enc.EncryptedData, kp.PublicKey)
	assert.Equal(t, 84, engine.Decrypt(res.Payload, kp).Score())

	_, err = engine.Encrypt(strategy.Input{}, nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	mock := codec.Mock{}
	reg := codec.NewRegistry(mock)

	assert.Equal(t, codec.SchemeMock, reg.Default().Scheme())
	assert.Equal(t, []string{codec.SchemeMock}, reg.Schemes())

	_, ok := reg.Get(codec.SchemeCKKS)
	assert.False(t, ok)

	ckksData := base64.StdEncoding.EncodeToString([]byte(`{"scheme":"ckks"}`))
	assert.Equal(t, codec.SchemeCKKS, codec.SchemeOf(ckksData))
	assert.Equal(t, codec.SchemeMock, reg.ForPayload(ckksData).Scheme())
	assert.Equal(t, codec.SchemeMock, codec.SchemeOf("garbage"))
}

func BenchmarkEncryptStrategy(b *testing.B) {
	for i := 0; i < b.N; i++ {
		codec.EncryptStrategy(7, 75, 90, testPublicKey)
	}
}

func BenchmarkComputeScore(b *testing.B) {
	enc := codec.EncryptStrategy(7, 75, 90, testPublicKey)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		codec.ComputeScore(enc.EncryptedData, testPublicKey)
	}
}
