package key

import (
	"encoding/base64"

	"github.com/CamberLoid/FHEVault/internal/misc"
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

type CKKSPayload interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// MarshalCKKSPayload 将 CKKS 对象编码为 base64 字符串
func MarshalCKKSPayload(p CKKSPayload) (string, error) {
	data, err := p.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "marshal ckks payload")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func UnmarshalCKKSCipherText(encoded string) (ct *rlwe.Ciphertext, err error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode ciphertext")
	}
	ct = misc.NewCiphertext()
	if err = ct.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "unmarshal ciphertext")
	}
	return ct, nil
}

func UnmarshalCKKSPublicKey(encoded string) (pk *rlwe.PublicKey, err error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode public key")
	}
	pk = rlwe.NewPublicKey(misc.GetCKKSParams().Parameters)
	if err = pk.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "unmarshal public key")
	}
	return pk, nil
}
