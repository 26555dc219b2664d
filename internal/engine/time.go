package engine

import (
	"strconv"
	"time"
)

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func nowSeconds() int64 {
	return time.Now().Unix()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
