package codec

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/misc"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/strategy"
)

const (
	// EncodedFieldTag 是模拟密文的前缀
	EncodedFieldTag = "0xenc_"

	saltLength = 16
	hashLength = 66
)

// Mock 是可逆的模拟方案。Now 为空时使用 time.Now
type Mock struct {
	Now func() time.Time
}

var defaultMock = Mock{}

func (m Mock) Scheme() string { return SchemeMock }

func (m Mock) now() int64 {
	if m.Now != nil {
		return misc.UnixMilli(m.Now())
	}
	return misc.UnixMilli(time.Now())
}

// Encode 把一个整数"加密"为字符串：0xenc_ + hex(label_value_salt[:16])
// 这不是单向函数，计算步骤需要把值读回来
func Encode(value int, salt, label string) string {
	combined := fmt.Sprintf("%s_%d_%s", label, value, misc.Truncate(salt, saltLength))
	return EncodedFieldTag + hex.EncodeToString([]byte(combined))
}

// ExtractValue is the inverse of Encode for the given label.
func ExtractValue(field, label string) (int, error) {
	if !strings.HasPrefix(field, EncodedFieldTag) {
		return 0, fmt.Errorf("%w: missing %s tag", ErrUndecodable, EncodedFieldTag)
	}
	raw, err := hex.DecodeString(field[len(EncodedFieldTag):])
	if err != nil {
		return 0, fmt.Errorf("%w: hex: %v", ErrUndecodable, err)
	}
	parts := strings.SplitN(string(raw), "_", 3)
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: malformed field", ErrUndecodable)
	}
	if parts[0] != label {
		return 0, fmt.Errorf("%w: label %q, expected %q", ErrUndecodable, parts[0], label)
	}
	v, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: value: %v", ErrUndecodable, err)
	}
	return v, nil
}

// GenerateHash 简单的多项式滚动哈希（非密码学安全），重复四次填满 32 字节
func GenerateHash(data string) string {
	var h int32
	for i := 0; i < len(data); i++ {
		h = h*31 + int32(data[i])
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	hexed := fmt.Sprintf("%016x", abs)
	return misc.Truncate("0x"+strings.Repeat(hexed, 4), hashLength)
}

func (m Mock) EncryptStrategy(riskLevel, allocation, timeframe int, publicKey string) EncryptionResult {
	payload := EncryptedPayload{
		Scheme: SchemeMock,
		Fields: Fields{
			RiskLevel:  Encode(riskLevel, publicKey, LabelRisk),
			Allocation: Encode(allocation, publicKey, LabelAllocation),
			Timeframe:  Encode(timeframe, publicKey, LabelTimeframe),
		},
		Timestamp: m.now(),
	}
	// 只含字符串和整数，序列化不会失败
	data, _ := Serialize(payload)
	return EncryptionResult{EncryptedData: data, Hash: GenerateHash(data)}
}

func (m Mock) Encrypt(in strategy.Input, kp *key.KeyPair) (EncryptionResult, error) {
	if kp == nil {
		return EncryptionResult{}, fmt.Errorf("no key pair")
	}
	return m.EncryptStrategy(in.RiskLevel, in.Allocation, in.Timeframe, kp.PublicKey), nil
}

// ComputeScore 模拟合约计算。解码失败时返回 value = 0 的结果
func (m Mock) ComputeScore(encryptedData, publicKey string) ComputeResult {
	score, err := m.score(encryptedData)
	payload := ScorePayload{Value: score, Timestamp: m.now()}
	if err == nil && publicKey != "" {
		payload.ComputedWith = misc.Truncate(publicKey, saltLength)
	}
	data, _ := Serialize(payload)
	return ComputeResult{Payload: data, Err: err}
}

func (m Mock) Compute(encryptedData, publicKey string) ComputeResult {
	return m.ComputeScore(encryptedData, publicKey)
}

func (m Mock) score(encryptedData string) (int, error) {
	p, err := decodeEncrypted(encryptedData, SchemeMock)
	if err != nil {
		return 0, err
	}
	risk, err := ExtractValue(p.Fields.RiskLevel, LabelRisk)
	if err != nil {
		return 0, err
	}
	alloc, err := ExtractValue(p.Fields.Allocation, LabelAllocation)
	if err != nil {
		return 0, err
	}
	timeframe, err := ExtractValue(p.Fields.Timeframe, LabelTimeframe)
	if err != nil {
		return 0, err
	}
	return scoring.Score(risk, alloc, timeframe), nil
}

// DecryptScore 中的 privateKey 仅为对齐真实 FHE 接口，不参与解码
func (m Mock) DecryptScore(encryptedScore, privateKey string) DecryptResult {
	p, err := decodeScore(encryptedScore)
	if err != nil {
		return NewDecryptResult(0, err)
	}
	if p.Ciphertext != "" {
		return NewDecryptResult(0, fmt.Errorf("%w: %s payload needs its own engine", ErrUndecodable, p.Scheme))
	}
	return NewDecryptResult(p.Value, nil)
}

func (m Mock) Decrypt(encryptedScore string, kp *key.KeyPair) DecryptResult {
	var privateKey string
	if kp != nil {
		privateKey = kp.PrivateKey
	}
	return m.DecryptScore(encryptedScore, privateKey)
}

// --- 包级函数，使用当前时间 ---

func EncryptStrategy(riskLevel, allocation, timeframe int, publicKey string) EncryptionResult {
	return defaultMock.EncryptStrategy(riskLevel, allocation, timeframe, publicKey)
}

func ComputeScore(encryptedData, publicKey string) ComputeResult {
	return defaultMock.ComputeScore(encryptedData, publicKey)
}

func DecryptScore(encryptedScore, privateKey string) DecryptResult {
	return defaultMock.DecryptScore(encryptedScore, privateKey)
}
