// 包 strategy 包含策略的输入、记录以及状态流转
package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status 可能是 "pending", "computing", "completed", "failed"
type Status string

const (
	StatusPending   Status = "pending"
	StatusComputing Status = "computing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusComputing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// 参数范围
const (
	MinRiskLevel  = 1
	MaxRiskLevel  = 10
	MinAllocation = 0
	MaxAllocation = 100
	MinTimeframe  = 1
	MaxTimeframe  = 365
)

var ErrNotCompleted = errors.New("strategy has not completed computation")

// Input 是用户提交的三个策略参数，提交后不再修改
type Input struct {
	RiskLevel  int `json:"riskLevel"`
	Allocation int `json:"allocation"`
	Timeframe  int `json:"timeframe"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 列出所有不合法的字段
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid strategy data: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate returns a *ValidationError naming every out-of-range field.
func (in Input) Validate() error {
	v := new(ValidationError)
	checkRange(v, "riskLevel", in.RiskLevel, MinRiskLevel, MaxRiskLevel)
	checkRange(v, "allocation", in.Allocation, MinAllocation, MaxAllocation)
	checkRange(v, "timeframe", in.Timeframe, MinTimeframe, MaxTimeframe)
	return v.OrNil()
}

func checkRange(v *ValidationError, field string, value, min, max int) {
	if value < min || value > max {
		v.Add(field, fmt.Sprintf("must be between %d and %d, got %d", min, max, value))
	}
}

// Record 是服务端保存的策略
// 原始参数仅为演示保存
type Record struct {
	ID             string     `json:"id"`
	RiskLevel      int        `json:"riskLevel"`
	Allocation     int        `json:"allocation"`
	Timeframe      int        `json:"timeframe"`
	EncryptedData  string     `json:"encryptedData"`
	EncryptedHash  string     `json:"encryptedHash"`
	EncryptedScore *string    `json:"encryptedScore"`
	DecryptedScore *int       `json:"decryptedScore"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ComputedAt     *time.Time `json:"computedAt"`
}

// NewRecord 创建一个 pending 状态的记录
func NewRecord(id string, in Input, encryptedData, encryptedHash string, now time.Time) *Record {
	return &Record{
		ID:            id,
		RiskLevel:     in.RiskLevel,
		Allocation:    in.Allocation,
		Timeframe:     in.Timeframe,
		EncryptedData: encryptedData,
		EncryptedHash: encryptedHash,
		Status:        StatusPending,
		CreatedAt:     now,
	}
}

func (r *Record) Input() Input {
	return Input{RiskLevel: r.RiskLevel, Allocation: r.Allocation, Timeframe: r.Timeframe}
}

// MarkComputing 进入计算阶段，清除上一次的结果
func (r *Record) MarkComputing() {
	r.Status = StatusComputing
	r.EncryptedScore = nil
	r.DecryptedScore = nil
	r.ComputedAt = nil
}

func (r *Record) Complete(encryptedScore string, at time.Time) {
	r.Status = StatusCompleted
	r.EncryptedScore = &encryptedScore
	r.ComputedAt = &at
}

func (r *Record) MarkFailed() {
	r.Status = StatusFailed
	r.EncryptedScore = nil
	r.ComputedAt = nil
}

// SetDecryptedScore records a client-reported plaintext score.
func (r *Record) SetDecryptedScore(score int) error {
	if r.Status != StatusCompleted {
		return ErrNotCompleted
	}
	r.DecryptedScore = &score
	return nil
}

// CheckInvariant 检查 encryptedScore/computedAt 与 completed 状态一致
func (r *Record) CheckInvariant() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	completed := r.Status == StatusCompleted
	if completed != (r.EncryptedScore != nil) {
		return fmt.Errorf("encryptedScore present=%v with status %s", r.EncryptedScore != nil, r.Status)
	}
	if completed != (r.ComputedAt != nil) {
		return fmt.Errorf("computedAt present=%v with status %s", r.ComputedAt != nil, r.Status)
	}
	return nil
}

// Clone 返回深拷贝，存储层借此避免共享指针
func (r *Record) Clone() *Record {
	c := *r
	if r.EncryptedScore != nil {
		s := *r.EncryptedScore
		c.EncryptedScore = &s
	}
	if r.DecryptedScore != nil {
		d := *r.DecryptedScore
		c.DecryptedScore = &d
	}
	if r.ComputedAt != nil {
		at := *r.ComputedAt
		c.ComputedAt = &at
	}
	return &c
}
