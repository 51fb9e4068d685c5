package codec

import (
	"sort"

	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/strategy"
)

// Engine 是一种"加密方案"：客户端加密、服务端计算、客户端解密
type Engine interface {
	Scheme() string
	Encrypt(in strategy.Input, kp *key.KeyPair) (EncryptionResult, error)
	// Compute never fails outright: the result always carries a usable
	// payload, with Err set when the input could not be decoded.
	Compute(encryptedData, publicKey string) ComputeResult
	Decrypt(encryptedScore string, kp *key.KeyPair) DecryptResult
}

// ComputeResult 总是包含一个合法的 ScorePayload
// 解码失败时 Payload 为 value = 0 的兜底结果，Err 记录原因
type ComputeResult struct {
	Payload string
	Err     error
}

func (r ComputeResult) Undecodable() bool {
	return r.Err != nil
}

// DecryptResult 在无法解码时由 Score() 收敛为 0
type DecryptResult struct {
	score int
	err   error
}

func NewDecryptResult(score int, err error) DecryptResult {
	return DecryptResult{score: score, err: err}
}

func (r DecryptResult) Score() int {
	if r.err != nil {
		return 0
	}
	return r.score
}

func (r DecryptResult) Err() error {
	return r.err
}

// Registry 按方案名查找 Engine
type Registry struct {
	engines  map[string]Engine
	fallback Engine
}

// NewRegistry 的第一个 engine 作为默认方案
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		if r.fallback == nil {
			r.fallback = e
		}
		r.engines[e.Scheme()] = e
	}
	return r
}

func (r *Registry) Get(scheme string) (Engine, bool) {
	e, ok := r.engines[scheme]
	return e, ok
}

func (r *Registry) Default() Engine {
	return r.fallback
}

// ForPayload picks the engine named by the payload's scheme tag, falling
// back to the default engine for unknown schemes.
func (r *Registry) ForPayload(encryptedData string) Engine {
	if e, ok := r.engines[SchemeOf(encryptedData)]; ok {
		return e
	}
	return r.fallback
}

func (r *Registry) Schemes() []string {
	out := make([]string, 0, len(r.engines))
	for s := range r.engines {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
