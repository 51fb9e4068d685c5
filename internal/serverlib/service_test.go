package serverlib

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/CamberLoid/FHEVault/internal/apperr"
	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/restfulpayload"
	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestService(t *testing.T, engines ...codec.Engine) *Service {
	if len(engines) == 0 {
		engines = []codec.Engine{codec.Mock{Now: func() time.Time { return fixedNow }}}
	}
	svc := NewService(store.NewMemory(), codec.NewRegistry(engines...), zerolog.Nop())
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func intp(v int) *int { return &v }

func submitReq(risk, alloc, tf int, data string) restfulpayload.SubmitStrategyReq {
	return restfulpayload.SubmitStrategyReq{
		RiskLevel:     restfulpayload.IntField(risk),
		Allocation:    restfulpayload.IntField(alloc),
		Timeframe:     restfulpayload.IntField(tf),
		EncryptedData: data, EncryptedHash: codec.GenerateHash(data),
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	enc := codec.EncryptStrategy(7, 75, 90, "0xpub_abc")
	rec, err := svc.Submit(ctx, submitReq(7, 75, 90, enc.EncryptedData))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, strategy.StatusPending, rec.Status)
	assert.Equal(t, enc.EncryptedData, rec.EncryptedData)
	assert.True(t, fixedNow.Equal(rec.CreatedAt))

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestSubmit_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	testCases := []struct {
		name   string
		req    restfulpayload.SubmitStrategyReq
		fields []string
	}{
		{"risk too high", submitReq(11, 50, 30, "x"), []string{"riskLevel"}},
		{"everything out of range", submitReq(0, 101, 366, "x"), []string{"riskLevel", "allocation", "timeframe"}},
		{"missing fields", restfulpayload.SubmitStrategyReq{Allocation: restfulpayload.IntField(500)}, []string{
			"riskLevel", "timeframe", "allocation", "encryptedData", "encryptedHash",
		}},
		{"malformed numbers", restfulpayload.SubmitStrategyReq{
			RiskLevel:     json.RawMessage(`"7"`),
			Allocation:    json.RawMessage(`7.5`),
			Timeframe:     json.RawMessage(`30`),
			EncryptedData: "x", EncryptedHash: "y",
		}, []string{"riskLevel", "allocation"}},
		{"empty payload", restfulpayload.SubmitStrategyReq{
			RiskLevel:  restfulpayload.IntField(5),
			Allocation: restfulpayload.IntField(0),
			Timeframe:  restfulpayload.IntField(1),
		}, []string{"encryptedData", "encryptedHash"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.req)
			require.Error(t, err)
			assert.Equal(t, "invalid_input", apperr.Kind(err))

			var fields []string
			for _, f := range apperr.Details(err) {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tc.fields, fields)
		})
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	enc := codec.EncryptStrategy(7, 75, 90, "0xpub_abc")
	rec, err := svc.Submit(ctx, submitReq(7, 75, 90, enc.EncryptedData))
	require.NoError(t, err)

	done, err := svc.Compute(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.StatusCompleted, done.Status)
	require.NoError(t, done.CheckInvariant())
	require.NotNil(t, done.EncryptedScore)
	assert.Equal(t, 84, codec.DecryptScore(*done.EncryptedScore, "").Score())

	var payload codec.ScorePayload
	require.NoError(t, codec.Deserialize(*done.EncryptedScore, &payload))
	assert.Empty(t, payload.ComputedWith)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{TotalStrategies: 1, TotalComputations: 1}, stats)
}

func TestCompute_UndecodableScoresZero(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	rec, err := svc.Submit(ctx, submitReq(5, 50, 30, "not base64 at all!"))
	require.NoError(t, err)

	done, err := svc.Compute(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.StatusCompleted, done.Status)
	assert.Equal(t, 0, codec.DecryptScore(*done.EncryptedScore, "").Score())
}

func TestCompute_UnknownID(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Compute(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "not_found", apperr.Kind(err))
}

type panickyEngine struct{ codec.Mock }

func (panickyEngine) Compute(string, string) codec.ComputeResult {
	panic("evaluator exploded")
}

func TestCompute_PanicMarksFailed(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, panickyEngine{})

	rec, err := svc.Submit(ctx, submitReq(5, 50, 30, "data"))
	require.NoError(t, err)

	_, err = svc.Compute(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, IsInternal(err))

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.StatusFailed, got.Status)
	require.NoError(t, got.CheckInvariant())
}

func TestCompute_CKKS(t *testing.T) {
	ctx := context.Background()
	ckksEngine := codec.NewCKKS()
	svc := newTestService(t, codec.Mock{}, ckksEngine)

	kp, err := key.GenerateKeyPairWithCKKS()
	require.NoError(t, err)
	in := strategy.Input{RiskLevel: 7, Allocation: 75, Timeframe: 90}
	enc, err := ckksEngine.Encrypt(in, kp)
	require.NoError(t, err)

	rec, err := svc.Submit(ctx, submitReq(7, 75, 90, enc.EncryptedData))
	require.NoError(t, err)
	done, err := svc.Compute(ctx, rec.ID)
	require.NoError(t, err)

	res := ckksEngine.Decrypt(*done.EncryptedScore, kp)
	require.NoError(t, res.Err())
	assert.Equal(t, 84, res.Score())
}

func TestReportDecrypted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	enc := codec.EncryptStrategy(3, 20, 10, "k")
	rec, err := svc.Submit(ctx, submitReq(3, 20, 10, enc.EncryptedData))
	require.NoError(t, err)

	_, err = svc.ReportDecrypted(ctx, rec.ID, intp(45))
	assert.ErrorIs(t, err, strategy.ErrNotCompleted)
	assert.Equal(t, "conflict", apperr.Kind(err))

	_, err = svc.Compute(ctx, rec.ID)
	require.NoError(t, err)

	_, err = svc.ReportDecrypted(ctx, rec.ID, intp(101))
	assert.Equal(t, "invalid_input", apperr.Kind(err))
	_, err = svc.ReportDecrypted(ctx, rec.ID, nil)
	assert.Equal(t, "invalid_input", apperr.Kind(err))
	_, err = svc.ReportDecrypted(ctx, "missing", intp(1))
	assert.Equal(t, "not_found", apperr.Kind(err))

	got, err := svc.ReportDecrypted(ctx, rec.ID, intp(45))
	require.NoError(t, err)
	require.NotNil(t, got.DecryptedScore)
	assert.Equal(t, 45, *got.DecryptedScore)
}

func TestRecover(t *testing.T) {
	assert.NoError(t, Recover(func() {}))
	err := Recover(func() { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestParseIntField(t *testing.T) {
	testCases := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"7", 7, nil},
		{"7.0", 7, nil},
		{"-3", -3, nil},
		{"0", 0, nil},
		{"", 0, errFieldMissing},
		{"null", 0, errFieldMissing},
		{`"7"`, 0, errNotInteger},
		{"7.5", 0, errNotInteger},
		{"true", 0, errNotInteger},
		{"[1]", 0, errNotInteger},
		{"1e20", 0, errNotInteger},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := parseIntField(json.RawMessage(tc.raw))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
