package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/coverwire/curator/core"
)

// Key prefixes for different data types
const (
	stagingRecordPrefix = "stgrec"
	stagingStatusPrefix = "stgsts"
	dedupRecordPrefix   = "ddprec"
	dedupDatePrefix     = "ddpdat"
	publishedPrefix     = "pubrec"
	sourceStatePrefix   = "srcsta"
)

// makeStagingKey generates a key for a staging item by ID.
func makeStagingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", stagingRecordPrefix, id))
}

// makeStagingStatusKey generates a composite key for the status index.
// Format: prefix:status:id
func makeStagingStatusKey(status core.Status, id core.ID) []byte {
	prefix := stagingStatusPrefix + ":" + status.String() + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialStagingStatusKey generates a partial key for status queries.
// Format: prefix:status:
func makePartialStagingStatusKey(status core.Status) []byte {
	return []byte(stagingStatusPrefix + ":" + status.String() + ":")
}

// makeDedupKey generates a key for a dedup record by fingerprint.
func makeDedupKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", dedupRecordPrefix, fp))
}

// makeDedupDateKey generates a composite key for the dedup date index.
// Format: prefix:timestamp:fingerprint
func makeDedupDateKey(timestamp time.Time, fp core.Fingerprint) []byte {
	prefix := dedupDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(fp) // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(fp))
	return buf
}

// makePartialDedupDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialDedupDateKey(timestamp time.Time) []byte {
	prefix := dedupDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makePublishedKey generates a key for a published-ledger entry by fingerprint.
func makePublishedKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", publishedPrefix, fp))
}

// makeSourceStateKey generates a key for a source-state entry by URL.
func makeSourceStateKey(sourceURL string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sourceStatePrefix, sourceURL))
}
