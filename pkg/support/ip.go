package support

import (
	"math/rand"
	"strconv"
	"strings"
)

// 随机生成一个公网ip，用于X-Forwarded-For
func RandomIP() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(rand.Intn(222) + 1))
	for i := 0; i < 3; i++ {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(rand.Intn(254) + 1))
	}
	return b.String()
}
