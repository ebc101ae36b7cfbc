package transport

import (
	"strconv"
	"sync/atomic"
	"time"
)

const (
	framePrefix         = "hidden_iframe_"
	frameCallbackPrefix = "iframe_callback_"
	jsonpCallbackPrefix = "jsonp_callback_"
)

var nameSeq atomic.Uint64

// UniqueName returns prefix followed by the millisecond timestamp and a
// process-wide sequence number. Two calls never return the same name, even
// within the same millisecond.
func UniqueName(prefix string, now time.Time) string {
	return prefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strconv.FormatUint(nameSeq.Add(1), 10)
}
