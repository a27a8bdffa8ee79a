package util

import (
	"strconv"
)

// ParsePositiveInt 解析路径中的正整数参数，非法值返回 false
func ParsePositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
