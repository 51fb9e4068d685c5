// 包 serverlib 实现服务端的策略操作：提交、计算、查询
package serverlib

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/CamberLoid/FHEVault/internal/apperr"
	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/logger"
	"github.com/CamberLoid/FHEVault/internal/restfulpayload"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/store"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Service struct {
	store   store.Store
	engines *codec.Registry
	log     zerolog.Logger

	// 测试时可替换
	Now   func() time.Time
	NewID func() string
}

func NewService(st store.Store, engines *codec.Registry, log zerolog.Logger) *Service {
	return &Service{
		store:   st,
		engines: engines,
		log:     logger.Component(log, "serverlib"),
		Now:     time.Now,
		NewID:   func() string { return uuid.New().String() },
	}
}

func (s *Service) Schemes() []string {
	return s.engines.Schemes()
}

// Submit 校验并保存一个 pending 状态的策略
func (s *Service) Submit(ctx context.Context, req restfulpayload.SubmitStrategyReq) (*strategy.Record, error) {
	in, err := submitInput(req)
	if err != nil {
		return nil, err
	}

	rec := strategy.NewRecord(s.NewID(), in, req.EncryptedData, req.EncryptedHash, s.Now())
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "create strategy")
	}

	s.log.Info().
		Str("strategy_id", rec.ID).
		Str("scheme", codec.SchemeOf(rec.EncryptedData)).
		Msg("strategy submitted")
	return rec, nil
}

func submitInput(req restfulpayload.SubmitStrategyReq) (strategy.Input, error) {
	verr := &strategy.ValidationError{}
	var in strategy.Input

	field := func(name string, raw json.RawMessage, dst *int) {
		v, err := parseIntField(raw)
		switch {
		case errors.Is(err, errFieldMissing):
			verr.Add(name, "required")
		case err != nil:
			verr.Add(name, "must be an integer")
		default:
			*dst = v
		}
	}
	field("riskLevel", req.RiskLevel, &in.RiskLevel)
	field("allocation", req.Allocation, &in.Allocation)
	field("timeframe", req.Timeframe, &in.Timeframe)

	var rangeErr *strategy.ValidationError
	if errors.As(in.Validate(), &rangeErr) {
		for _, f := range rangeErr.Fields {
			// 缺失或类型错误的字段已经报告过
			if !verr.Has(f.Field) {
				verr.Add(f.Field, f.Message)
			}
		}
	}

	if req.EncryptedData == "" {
		verr.Add("encryptedData", "required")
	}
	if req.EncryptedHash == "" {
		verr.Add("encryptedHash", "required")
	}
	return in, verr.OrNil()
}

var (
	errFieldMissing = errors.New("field missing")
	errNotInteger   = errors.New("not an integer")
)

// parseIntField 接受 JSON 数字形式的整数，包括 7.0 这样的整数值浮点数
// 字符串、布尔、小数以及超出 int32 的值都视为非整数
func parseIntField(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errFieldMissing
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errNotInteger
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, errNotInteger
	}
	return int(f), nil
}

// Compute 模拟链上计算
// 解码失败不是错误：记录仍然完成，评分为 0
// 计算过程 panic 时记录标记为 failed
func (s *Service) Compute(ctx context.Context, id string) (*strategy.Record, error) {
	rec, err := s.store.Update(ctx, id, func(r *strategy.Record) error {
		r.MarkComputing()
		return nil
	})
	if err != nil {
		return nil, err
	}

	engine := s.engines.ForPayload(rec.EncryptedData)
	log := s.log.With().Str("strategy_id", id).Str("scheme", engine.Scheme()).Logger()

	var res codec.ComputeResult
	start := time.Now()
	if perr := Recover(func() { res = engine.Compute(rec.EncryptedData, "") }); perr != nil {
		log.Error().Err(perr).Msg("computation failed")
		if _, err := s.store.Update(ctx, id, func(r *strategy.Record) error {
			r.MarkFailed()
			return nil
		}); err != nil {
			log.Error().Err(err).Msg("could not mark strategy failed")
		}
		return nil, errors.Wrap(perr, "compute strategy score")
	}
	if res.Undecodable() {
		log.Warn().Err(res.Err).Msg("encrypted data undecodable, scoring as 0")
	}

	rec, err = s.store.Update(ctx, id, func(r *strategy.Record) error {
		r.Complete(res.Payload, s.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("strategy computed")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*strategy.Record, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*strategy.Record, error) {
	return s.store.List(ctx)
}

func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

// ReportDecrypted 保存客户端回报的明文评分，仅对 completed 的记录有效
func (s *Service) ReportDecrypted(ctx context.Context, id string, score *int) (*strategy.Record, error) {
	verr := &strategy.ValidationError{}
	switch {
	case score == nil:
		verr.Add("decryptedScore", "required")
	case *score < scoring.MinScore || *score > scoring.MaxScore:
		verr.Add("decryptedScore", "must be between 0 and 100")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	rec, err := s.store.Update(ctx, id, func(r *strategy.Record) error {
		return r.SetDecryptedScore(*score)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("strategy_id", id).Int("score", *score).Msg("decrypted score reported")
	return rec, nil
}

// IsInternal reports whether err should be hidden from API callers.
func IsInternal(err error) bool {
	return apperr.Kind(err) == "internal"
}
