// 包 key 包含方案中用到的密钥的生成
// 模拟方案的"密钥"只是随机字符串；CKKS 方案使用 lattigo 生成真实的密钥对
package key

import (
	"fmt"
	"strings"

	"github.com/CamberLoid/FHEVault/internal/misc"
	"github.com/google/uuid"
	"github.com/tuneinsight/lattigo/v4/ckks"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

const (
	PublicKeyPrefix  = "0xpub_"
	PrivateKeyPrefix = "0xpriv_"
)

type CKKSKeyChain struct {
	Identifier     uuid.UUID
	CKKSPrivateKey *rlwe.SecretKey
	CKKSPublicKey  *rlwe.PublicKey
}

// KeyPair 是客户端持有的密钥对
// PublicKey/PrivateKey 用于模拟方案，CKKS 仅在使用 ckks 方案时生成
type KeyPair struct {
	Identifier uuid.UUID
	PublicKey  string
	PrivateKey string
	CKKS       *CKKSKeyChain
}

// GenerateKeyPair 生成模拟方案的密钥对
func GenerateKeyPair() (*KeyPair, error) {
	pub, err := misc.RandomHex(32)
	if err != nil {
		return nil, err
	}
	priv, err := misc.RandomHex(32)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Identifier: uuid.New(),
		PublicKey:  PublicKeyPrefix + pub,
		PrivateKey: PrivateKeyPrefix + priv,
	}, nil
}

// ParseKeyPair 由 keygen 输出的两个字符串重建模拟方案的密钥对
func ParseKeyPair(publicKey, privateKey string) (*KeyPair, error) {
	if !strings.HasPrefix(publicKey, PublicKeyPrefix) || len(publicKey) == len(PublicKeyPrefix) {
		return nil, fmt.Errorf("public key must start with %s", PublicKeyPrefix)
	}
	if !strings.HasPrefix(privateKey, PrivateKeyPrefix) || len(privateKey) == len(PrivateKeyPrefix) {
		return nil, fmt.Errorf("private key must start with %s", PrivateKeyPrefix)
	}
	return &KeyPair{
		Identifier: uuid.New(),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}

// GenerateKeyPairWithCKKS 额外生成一对 CKKS 密钥
func GenerateKeyPairWithCKKS() (*KeyPair, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	pk, sk := genKeyCKKS()
	kp.CKKS = &CKKSKeyChain{
		Identifier:     uuid.New(),
		CKKSPrivateKey: sk,
		CKKSPublicKey:  pk,
	}
	return kp, nil
}

// HasCKKS reports whether the pair can be used with the ckks engine.
func (kp *KeyPair) HasCKKS() bool {
	return kp != nil && kp.CKKS != nil &&
		kp.CKKS.CKKSPublicKey != nil && kp.CKKS.CKKSPrivateKey != nil
}

func genKeyCKKS() (*rlwe.PublicKey, *rlwe.SecretKey) {
	ckksKeyGenerator := ckks.NewKeyGenerator(misc.GetCKKSParams())
	sk, pk := ckksKeyGenerator.GenKeyPair()

	return pk, sk
}
