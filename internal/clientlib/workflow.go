package clientlib

import (
	"context"
	"fmt"
	"sync"

	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/logger"
	"github.com/CamberLoid/FHEVault/internal/restfulpayload"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State 是客户端流程的状态
type State string

const (
	StateIdle       State = "idle"
	StateEncrypting State = "encrypting"
	StateSubmitting State = "submitting"
	StateComputing  State = "computing"
	StateCompleted  State = "completed"
)

// 正常路径上的后继状态；任何状态都可以失败回到 idle
var nextState = map[State]State{
	StateIdle:       StateEncrypting,
	StateEncrypting: StateSubmitting,
	StateSubmitting: StateComputing,
	StateComputing:  StateCompleted,
}

var (
	ErrIllegalTransition = errors.New("illegal workflow transition")
	ErrNoResult          = errors.New("workflow has no completed result")
)

// Transition 通知给观察者；Err 非空表示失败回退
type Transition struct {
	From State
	To   State
	Err  error
}

type Observer func(Transition)

// Result 是一次完整流程的产物
type Result struct {
	StrategyID     string
	EncryptedData  string
	EncryptedHash  string
	EncryptedScore string
}

// Workflow 驱动 加密 - 提交 - 计算 的流程
type Workflow struct {
	client *Client
	engine codec.Engine
	keys   *key.KeyPair
	log    zerolog.Logger

	mu        sync.Mutex
	state     State
	result    *Result
	observers []Observer
}

func NewWorkflow(client *Client, engine codec.Engine, keys *key.KeyPair, log zerolog.Logger) *Workflow {
	return &Workflow{
		client: client,
		engine: engine,
		keys:   keys,
		log:    logger.Component(log, "workflow"),
		state:  StateIdle,
	}
}

func (w *Workflow) Observe(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Result() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}

// Advance 沿正常路径前进一步
func (w *Workflow) Advance(to State) error {
	w.mu.Lock()
	from := w.state
	if nextState[from] != to {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	w.state = to
	observers := w.observers
	w.mu.Unlock()

	w.notify(observers, Transition{From: from, To: to})
	return nil
}

// Fail 从任意状态回到 idle，返回 cause 本身
func (w *Workflow) Fail(cause error) error {
	w.mu.Lock()
	from := w.state
	w.state = StateIdle
	w.result = nil
	observers := w.observers
	w.mu.Unlock()

	w.log.Warn().Err(cause).Str("from", string(from)).Msg("workflow failed")
	w.notify(observers, Transition{From: from, To: StateIdle, Err: cause})
	return cause
}

func (w *Workflow) Reset() {
	w.mu.Lock()
	from := w.state
	w.state = StateIdle
	w.result = nil
	observers := w.observers
	w.mu.Unlock()

	if from != StateIdle {
		w.notify(observers, Transition{From: from, To: StateIdle})
	}
}

func (w *Workflow) notify(observers []Observer, t Transition) {
	for _, o := range observers {
		o(t)
	}
}

// Run 依次完成本地加密、提交、触发计算
// 只能从 idle 开始；失败时回到 idle
func (w *Workflow) Run(ctx context.Context, in strategy.Input) (*Result, error) {
	if err := w.Advance(StateEncrypting); err != nil {
		return nil, err
	}

	if err := in.Validate(); err != nil {
		return nil, w.Fail(err)
	}
	enc, err := w.engine.Encrypt(in, w.keys)
	if err != nil {
		return nil, w.Fail(errors.Wrap(err, "encrypt strategy"))
	}
	w.log.Debug().Str("scheme", w.engine.Scheme()).Str("hash", enc.Hash).Msg("strategy encrypted")

	if err := w.Advance(StateSubmitting); err != nil {
		return nil, w.Fail(err)
	}
	submitted, err := w.client.SubmitStrategy(ctx, restfulpayload.NewSubmitStrategyReq(in, enc.EncryptedData, enc.Hash))
	if err != nil {
		return nil, w.Fail(errors.Wrap(err, "submit strategy"))
	}

	if err := w.Advance(StateComputing); err != nil {
		return nil, w.Fail(err)
	}
	computed, err := w.client.ComputeStrategy(ctx, submitted.StrategyID)
	if err != nil {
		return nil, w.Fail(errors.Wrap(err, "compute strategy"))
	}

	res := &Result{
		StrategyID:     submitted.StrategyID,
		EncryptedData:  enc.EncryptedData,
		EncryptedHash:  enc.Hash,
		EncryptedScore: computed.EncryptedScore,
	}
	w.mu.Lock()
	w.result = res
	w.mu.Unlock()

	if err := w.Advance(StateCompleted); err != nil {
		return nil, w.Fail(err)
	}
	w.log.Info().Str("strategy_id", res.StrategyID).Msg("strategy computed")

	out := *res
	return &out, nil
}

// Decrypt 在本地解密评分并分级，不经过服务端
// 无法解码的评分按 0 处理
func (w *Workflow) Decrypt() (scoring.Analysis, error) {
	w.mu.Lock()
	state, res := w.state, w.result
	w.mu.Unlock()

	if state != StateCompleted || res == nil {
		return scoring.Analysis{}, ErrNoResult
	}

	dec := w.engine.Decrypt(res.EncryptedScore, w.keys)
	if dec.Err() != nil {
		w.log.Warn().Err(dec.Err()).Msg("encrypted score undecodable, treating as 0")
	}
	return scoring.Classify(dec.Score()), nil
}

// Report 把本地解密的评分回报给服务端
func (w *Workflow) Report(ctx context.Context, score int) error {
	res, ok := w.Result()
	if !ok {
		return ErrNoResult
	}
	_, err := w.client.ReportDecrypted(ctx, res.StrategyID, score)
	return err
}
