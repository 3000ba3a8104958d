package badger

import "fmt"

// Database Key Namespace Design
// ==============================
//
// Data Type        Prefix   Key Format                       Value Type
// ======================================================================
// Event Row        "e:"     e:<date>:<invNanos>:<id>         Notification (JSON)
// Request Index    "q:"     q:<reqID>:<invNanos>:<id>        row key (bytes)
// ID Index         "i:"     i:<id>                           row key (bytes)
//
// Key Design Rationale:
//
// 1. Event rows cluster by day bucket; the timestamp is encoded inverted so
//    an ascending scan within a bucket yields newest first. Recent-activity
//    queries walk at most a handful of bucket prefixes.
//
// 2. The request index clusters by request id with the same inverted
//    timestamp, so the first key under "q:<reqID>:" points at the newest
//    event of the workflow.
//
// 3. The id index supports the processed-flag update without knowing the
//    record's bucket.
const (
	prefixEvent   = "e:"
	prefixRequest = "q:"
	prefixID      = "i:"

	// nanosCeiling bounds encodable timestamps (covers dates past 2200)
	nanosCeiling = int64(9223372036854775807)
)

func eventKey(date string, nanos int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixEvent, date, nanosCeiling-nanos, id))
}

func eventKeyPrefix(date string) []byte {
	return []byte(prefixEvent + date + ":")
}

func requestKey(reqID string, nanos int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixRequest, reqID, nanosCeiling-nanos, id))
}

func requestKeyPrefix(reqID string) []byte {
	return []byte(prefixRequest + reqID + ":")
}

func idKey(id string) []byte {
	return []byte(prefixID + id)
}
