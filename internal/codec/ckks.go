package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/misc"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/tuneinsight/lattigo/v4/ckks"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// CKKSFieldTag 是 CKKS 密文字段的前缀，后接 base64 编码的 rlwe.Ciphertext
const CKKSFieldTag = "0xckks_"

// 评分公式（十分之一单位）：250 + 50*risk + 2*alloc + min(time, 200)
// 只用整数常数，密文的 scale 保持不变，服务端不需要任何密钥
const (
	ckksBase        = 250
	ckksRiskWeight  = 50
	ckksAllocWeight = 2
)

// CKKS 是基于 lattigo CKKS 的演示方案
// 客户端在加密前把 timeframe 截断到 200，服务端只做线性运算，
// 截断到 [0, 100] 和取整在客户端解密后完成
type CKKS struct {
	Now    func() time.Time
	params ckks.Parameters
}

func NewCKKS() *CKKS {
	return &CKKS{params: misc.GetCKKSParams()}
}

func (c *CKKS) Scheme() string { return SchemeCKKS }

func (c *CKKS) now() int64 {
	if c.Now != nil {
		return misc.UnixMilli(c.Now())
	}
	return misc.UnixMilli(time.Now())
}

// CKKSEncryptValue 对单个整数进行基于 CKKS 的加密
func (c *CKKS) CKKSEncryptValue(value int, pk *rlwe.PublicKey) *rlwe.Ciphertext {
	encoder := ckks.NewEncoder(c.params)
	pt := encoder.EncodeNew(
		[]float64{float64(value)},
		c.params.MaxLevel(),
		c.params.DefaultScale(),
		c.params.LogSlots())
	return ckks.NewEncryptor(c.params, pk).EncryptNew(pt)
}

// CKKSDecryptValue 解密并取第一个槽位的实部
func (c *CKKS) CKKSDecryptValue(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) float64 {
	encoder := ckks.NewEncoder(c.params)
	pt := ckks.NewDecryptor(c.params, sk).DecryptNew(ct)
	values := encoder.Decode(pt, c.params.LogSlots())
	return real(values[0])
}

func (c *CKKS) encodeField(value int, pk *rlwe.PublicKey) (string, error) {
	encoded, err := key.MarshalCKKSPayload(c.CKKSEncryptValue(value, pk))
	if err != nil {
		return "", err
	}
	return CKKSFieldTag + encoded, nil
}

func decodeCKKSField(field string) (*rlwe.Ciphertext, error) {
	if !strings.HasPrefix(field, CKKSFieldTag) {
		return nil, fmt.Errorf("%w: missing %s tag", ErrUndecodable, CKKSFieldTag)
	}
	ct, err := key.UnmarshalCKKSCipherText(field[len(CKKSFieldTag):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return ct, nil
}

func (c *CKKS) Encrypt(in strategy.Input, kp *key.KeyPair) (res EncryptionResult, err error) {
	if !kp.HasCKKS() {
		return res, fmt.Errorf("key pair has no CKKS keychain")
	}
	pk := kp.CKKS.CKKSPublicKey

	var fields Fields
	if fields.RiskLevel, err = c.encodeField(in.RiskLevel, pk); err != nil {
		return res, err
	}
	if fields.Allocation, err = c.encodeField(in.Allocation, pk); err != nil {
		return res, err
	}
	if fields.Timeframe, err = c.encodeField(scoring.SaturateTimeframe(in.Timeframe), pk); err != nil {
		return res, err
	}

	data, err := Serialize(EncryptedPayload{Scheme: SchemeCKKS, Fields: fields, Timestamp: c.now()})
	if err != nil {
		return res, err
	}
	return EncryptionResult{EncryptedData: data, Hash: GenerateHash(data)}, nil
}

// Compute 在密文上计算评分。evaluator 可能 panic，由调用方处理
func (c *CKKS) Compute(encryptedData, publicKey string) ComputeResult {
	payload := ScorePayload{Timestamp: c.now()}

	ct, err := c.evaluate(encryptedData)
	if err == nil {
		payload.Scheme = SchemeCKKS
		payload.Ciphertext, err = key.MarshalCKKSPayload(ct)
	}
	if err != nil {
		// 兜底：明文 value = 0，不带密文
		payload = ScorePayload{Timestamp: payload.Timestamp}
	} else if publicKey != "" {
		payload.ComputedWith = misc.Truncate(publicKey, saltLength)
	}

	data, _ := Serialize(payload)
	return ComputeResult{Payload: data, Err: err}
}

func (c *CKKS) evaluate(encryptedData string) (*rlwe.Ciphertext, error) {
	p, err := decodeEncrypted(encryptedData, SchemeCKKS)
	if err != nil {
		return nil, err
	}
	risk, err := decodeCKKSField(p.Fields.RiskLevel)
	if err != nil {
		return nil, err
	}
	alloc, err := decodeCKKSField(p.Fields.Allocation)
	if err != nil {
		return nil, err
	}
	timeframe, err := decodeCKKSField(p.Fields.Timeframe)
	if err != nil {
		return nil, err
	}

	evaluator := ckks.NewEvaluator(c.params, rlwe.EvaluationKey{})
	acc := evaluator.MultByConstNew(risk, ckksRiskWeight)
	acc = evaluator.AddNew(acc, evaluator.MultByConstNew(alloc, ckksAllocWeight))
	acc = evaluator.AddNew(acc, timeframe)
	acc = evaluator.AddConstNew(acc, float64(ckksBase))
	return acc, nil
}

// Decrypt 解密十分之一单位的评分，再取整、截断
// 没有密文的 payload（计算兜底结果）直接返回其 value
func (c *CKKS) Decrypt(encryptedScore string, kp *key.KeyPair) DecryptResult {
	p, err := decodeScore(encryptedScore)
	if err != nil {
		return NewDecryptResult(0, err)
	}
	if p.Ciphertext == "" {
		return NewDecryptResult(p.Value, nil)
	}
	if !kp.HasCKKS() {
		return NewDecryptResult(0, fmt.Errorf("key pair has no CKKS keychain"))
	}
	ct, err := key.UnmarshalCKKSCipherText(p.Ciphertext)
	if err != nil {
		return NewDecryptResult(0, fmt.Errorf("%w: %v", ErrUndecodable, err))
	}

	tenths := misc.RoundToInt(c.CKKSDecryptValue(ct, kp.CKKS.CKKSPrivateKey))
	return NewDecryptResult(scoring.FromTenths(tenths), nil)
}
