// 包 misc 包含项目中共用的零碎工具
package misc

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/tuneinsight/lattigo/v4/ckks"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// GetCKKSParams 返回预设的 CKKS 安全参数
func GetCKKSParams() ckks.Parameters {
	p, _ := ckks.NewParametersFromLiteral(ckks.PN12QP109)
	return p
}

// NewCiphertext 创建新的空密文，用于反序列化
func NewCiphertext() *rlwe.Ciphertext {
	params := GetCKKSParams()
	return ckks.NewCiphertext(params, 1, params.MaxLevel())
}

// RandomHex 返回 n 个随机字节的十六进制表示
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// UnixMilli 与 JavaScript 的 Date.now() 对齐
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// Truncate returns at most the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
