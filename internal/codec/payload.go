// 包 codec 模拟客户端加密、链上计算和本地解密
//
// 模拟方案（mock）完全可逆，只用于演示流程；ckks 方案基于 lattigo，
// 同样只是演示用途。
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	SchemeMock = "mock"
	SchemeCKKS = "ckks"
)

// 字段标签
const (
	LabelRisk       = "risk"
	LabelAllocation = "alloc"
	LabelTimeframe  = "time"
)

var ErrUndecodable = errors.New("undecodable payload")

// Fields 是三个加密后的策略参数
type Fields struct {
	RiskLevel  string `json:"riskLevel"`
	Allocation string `json:"allocation"`
	Timeframe  string `json:"timeframe"`
}

// EncryptedPayload 每次提交生成一次，之后不再修改
type EncryptedPayload struct {
	Scheme    string `json:"scheme,omitempty"`
	Fields    Fields `json:"fields"`
	Timestamp int64  `json:"timestamp"`
}

// ScorePayload 每次计算生成一次
// Ciphertext 仅在 ckks 方案下出现，此时 Value 无意义
type ScorePayload struct {
	Value        int    `json:"value"`
	Timestamp    int64  `json:"timestamp"`
	ComputedWith string `json:"computedWith,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
	Ciphertext   string `json:"ciphertext,omitempty"`
}

type EncryptionResult struct {
	EncryptedData string `json:"encryptedData"`
	Hash          string `json:"hash"`
}

// Serialize 对应 btoa(JSON.stringify(v))
func Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func Deserialize(s string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: base64: %v", ErrUndecodable, err)
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: json: %v", ErrUndecodable, err)
	}
	return nil
}

// SchemeOf reads the scheme tag of a serialized EncryptedPayload.
// An absent tag means mock; undecodable input also reports mock so the
// mock engine's fallback handles it.
func SchemeOf(encryptedData string) string {
	var p struct {
		Scheme string `json:"scheme"`
	}
	if err := Deserialize(encryptedData, &p); err != nil || p.Scheme == "" {
		return SchemeMock
	}
	return p.Scheme
}

func decodeEncrypted(encryptedData, scheme string) (*EncryptedPayload, error) {
	p := new(EncryptedPayload)
	if err := Deserialize(encryptedData, p); err != nil {
		return nil, err
	}
	got := p.Scheme
	if got == "" {
		got = SchemeMock
	}
	if got != scheme {
		return nil, fmt.Errorf("%w: scheme %q, expected %q", ErrUndecodable, got, scheme)
	}
	return p, nil
}

// decodeScore 要求 value 字段存在
func decodeScore(encryptedScore string) (*ScorePayload, error) {
	var raw struct {
		ScorePayload
		Value *int `json:"value"`
	}
	if err := Deserialize(encryptedScore, &raw); err != nil {
		return nil, err
	}
	if raw.Value == nil {
		return nil, fmt.Errorf("%w: missing value", ErrUndecodable)
	}
	p := raw.ScorePayload
	p.Value = *raw.Value
	return &p, nil
}
