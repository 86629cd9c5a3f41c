package support

import "time"

func TimeStamp() int64 {
	return time.Now().Unix()
}

func TimeStampNano() (int64, int64) {
	now := time.Now()
	return now.Unix(), int64(now.Nanosecond())
}
