// 包 scoring 包含策略评分公式和分级
package scoring

const (
	MinScore = 0
	MaxScore = 100

	// 时间加分上限：min(time/10, 20)，即 200 天
	MaxTimeframeBonusDays = 200
)

// Tenths 以十分之一为单位计算未截断的评分：
// 10 * (50 + (risk-5)*5 + alloc/5 + min(time/10, 20))
func Tenths(riskLevel, allocation, timeframe int) int {
	return 500 + 50*(riskLevel-5) + 2*allocation + SaturateTimeframe(timeframe)
}

// SaturateTimeframe 将时间参数截断到加分上限
func SaturateTimeframe(timeframe int) int {
	if timeframe > MaxTimeframeBonusDays {
		return MaxTimeframeBonusDays
	}
	return timeframe
}

// FromTenths 将十分之一单位的评分四舍五入（half up）并截断到 [0, 100]
func FromTenths(tenths int) int {
	return clamp(floorDiv(tenths+5, 10))
}

// Score computes the clamped, rounded strategy score.
func Score(riskLevel, allocation, timeframe int) int {
	return FromTenths(Tenths(riskLevel, allocation, timeframe))
}

func clamp(v int) int {
	switch {
	case v < MinScore:
		return MinScore
	case v > MaxScore:
		return MaxScore
	default:
		return v
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
