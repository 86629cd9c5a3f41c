package support

import (
	crand "crypto/rand"
	"encoding/hex"
	"math/rand"
	"time"
)

func RandHex(len int) string {
	b := make([]byte, len)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func RandIntn(min, max int) int {
	rand.Seed(time.Now().UnixNano())
	return rand.Intn(max-min+1) + min
}
