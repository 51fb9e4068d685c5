// 包 restfulpayload 定义服务端与客户端之间通信使用的结构体
package restfulpayload

import (
	"encoding/json"
	"strconv"

	"github.com/CamberLoid/FHEVault/internal/strategy"
)

// SubmitStrategyReq 表示提交策略的请求
// 三个参数保留原始 JSON，由服务端逐个字段校验类型和范围
type SubmitStrategyReq struct {
	RiskLevel     json.RawMessage `json:"riskLevel,omitempty"`
	Allocation    json.RawMessage `json:"allocation,omitempty"`
	Timeframe     json.RawMessage `json:"timeframe,omitempty"`
	EncryptedData string          `json:"encryptedData"`
	EncryptedHash string          `json:"encryptedHash"`
}

// NewSubmitStrategyReq 由客户端使用
func NewSubmitStrategyReq(in strategy.Input, encryptedData, encryptedHash string) SubmitStrategyReq {
	return SubmitStrategyReq{
		RiskLevel:     IntField(in.RiskLevel),
		Allocation:    IntField(in.Allocation),
		Timeframe:     IntField(in.Timeframe),
		EncryptedData: encryptedData,
		EncryptedHash: encryptedHash,
	}
}

func IntField(v int) json.RawMessage {
	return json.RawMessage(strconv.Itoa(v))
}

type SubmitResp struct {
	Success    bool   `json:"success"`
	StrategyID string `json:"strategyId"`
	Message    string `json:"message"`
}

type ComputeResp struct {
	Success        bool            `json:"success"`
	StrategyID     string          `json:"strategyId"`
	EncryptedScore string          `json:"encryptedScore"`
	Status         strategy.Status `json:"status"`
}

type StrategyResp struct {
	Success  bool             `json:"success"`
	Strategy *strategy.Record `json:"strategy"`
}

type ListResp struct {
	Success    bool               `json:"success"`
	Strategies []*strategy.Record `json:"strategies"`
	Count      int                `json:"count"`
}

type StatsResp struct {
	Success           bool `json:"success"`
	TotalStrategies   int  `json:"totalStrategies"`
	TotalComputations int  `json:"totalComputations"`
}

// ReportDecryptedReq 客户端本地解密后回报明文评分
type ReportDecryptedReq struct {
	DecryptedScore *int `json:"decryptedScore"`
}

// FailureResp 是所有失败响应的统一格式
type FailureResp struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Details []strategy.FieldError `json:"details,omitempty"`
}

type VersionResp struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Schemes []string `json:"schemes,omitempty"`
}
