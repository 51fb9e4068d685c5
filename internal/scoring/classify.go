package scoring

type Category string

const (
	CategoryExcellent Category = "excellent"
	CategoryGood      Category = "good"
	CategoryModerate  Category = "moderate"
	CategoryPoor      Category = "poor"
)

// Analysis 是解密后评分的解读
type Analysis struct {
	Score          int      `json:"score"`
	Percentile     int      `json:"percentile"`
	Recommendation string   `json:"recommendation"`
	Category       Category `json:"category"`
}

type band struct {
	min            int
	percentile     int
	category       Category
	recommendation string
}

// 从高到低排列，第一个满足 score >= min 的生效
var bands = []band{
	{80, 95, CategoryExcellent, "Excellent strategy performance. Your risk-adjusted approach shows strong potential."},
	{65, 75, CategoryGood, "Good strategy performance. Consider optimizing timeframe for better results."},
	{45, 50, CategoryModerate, "Moderate performance. Review risk allocation balance for improvements."},
}

var poor = band{0, 25, CategoryPoor, "Strategy needs optimization. Consider adjusting risk parameters or extending timeframe."}

// Classify maps a score onto its percentile band. Scores outside 0..100
// fall into the nearest band.
func Classify(score int) Analysis {
	b := poor
	for _, candidate := range bands {
		if score >= candidate.min {
			b = candidate
			break
		}
	}
	return Analysis{
		Score:          score,
		Percentile:     b.percentile,
		Recommendation: b.recommendation,
		Category:       b.category,
	}
}
