package session

import "time"

var testNow = time.UnixMilli(1700000000000)
