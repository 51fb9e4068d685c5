package misc

import (
	"math"
	"strconv"
)

// CKKSMsgRound 将 CKKS 解码结果保留两位小数，去掉近似误差
func CKKSMsgRound(v float64) float64 {
	value, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return value
}

// RoundToInt rounds a decoded CKKS value to the nearest integer.
func RoundToInt(v float64) int {
	return int(math.Round(CKKSMsgRound(v)))
}
