package core

import (
	"errors"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every record the storage layer persists. Each
// serializer exposes Marshal/Unmarshal/Size over the MUS binary format.

var (
	// IDMUS serializes ID values.
	IDMUS = idMUS{}
	// StagingItemMUS serializes StagingItem records.
	StagingItemMUS = stagingItemMUS{}
	// DedupRecordMUS serializes DedupRecord entries.
	DedupRecordMUS = dedupRecordMUS{}
	// PublishedRecordMUS serializes PublishedRecord ledger entries.
	PublishedRecordMUS = publishedRecordMUS{}
	// SourceStateMUS serializes SourceState tracker entries.
	SourceStateMUS = sourceStateMUS{}
)

var errNegativeLength = errors.New("negative length")

// timeSentinel marks a zero time.Time on the wire so IsZero survives a
// round trip through storage.
const timeSentinel = math.MinInt64

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.MarshalUint64(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.UnmarshalUint64(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.SizeUint64(uint64(v))
}

func marshalTime(v time.Time, bs []byte) int {
	if v.IsZero() {
		return varint.MarshalInt64(timeSentinel, bs)
	}
	return varint.MarshalInt64(v.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.UnmarshalInt64(bs)
	if err != nil || micro == timeSentinel {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(v time.Time) int {
	if v.IsZero() {
		return varint.SizeInt64(timeSentinel)
	}
	return varint.SizeInt64(v.UnixMicro())
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.MarshalInt(len(v), bs)
	for _, f := range v {
		n += varint.MarshalUint32(math.Float32bits(f), bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.UnmarshalInt(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := range v {
		bits, m, err := varint.UnmarshalUint32(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	size := varint.SizeInt(len(v))
	for _, f := range v {
		size += varint.SizeUint32(math.Float32bits(f))
	}
	return size
}

func marshalStrings(v []string, bs []byte) int {
	n := varint.MarshalInt(len(v), bs)
	for _, s := range v {
		n += ord.MarshalString(s, nil, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) ([]string, int, error) {
	length, n, err := varint.UnmarshalInt(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, errNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]string, length)
	for i := range v {
		s, m, err := ord.UnmarshalString(nil, bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = s
	}
	return v, n, nil
}

func sizeStrings(v []string) int {
	size := varint.SizeInt(len(v))
	for _, s := range v {
		size += ord.SizeString(s, nil)
	}
	return size
}

type stagingItemMUS struct{}

func (stagingItemMUS) Marshal(v StagingItem, bs []byte) int {
	n := varint.MarshalUint64(uint64(v.Id), bs)
	n += ord.MarshalString(string(v.Fingerprint), nil, bs[n:])
	n += ord.MarshalString(string(v.Type), nil, bs[n:])
	n += ord.MarshalString(v.Title, nil, bs[n:])
	n += ord.MarshalString(v.Body, nil, bs[n:])
	n += marshalStrings(v.Tags, bs[n:])
	n += ord.MarshalString(string(v.Status), nil, bs[n:])
	n += ord.MarshalString(string(v.DetectionType), nil, bs[n:])
	n += varint.MarshalInt(v.Score, bs[n:])
	n += ord.MarshalString(v.Category, nil, bs[n:])
	n += ord.MarshalString(string(v.Priority), nil, bs[n:])
	n += ord.MarshalString(v.SourceName, nil, bs[n:])
	n += ord.MarshalString(v.SourceURL, nil, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.PublishedSource, bs[n:])
	n += marshalTime(v.DetectedAt, bs[n:])
	n += marshalTime(v.ResolvedAt, bs[n:])
	n += marshalTime(v.PublishedAt, bs[n:])
	n += ord.MarshalString(v.ReviewNotes, nil, bs[n:])
	n += ord.MarshalString(v.NotificationRef, nil, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (stagingItemMUS) Unmarshal(bs []byte) (StagingItem, int, error) {
	var (
		v   StagingItem
		n   int
		m   int
		err error
	)
	id, n, err := varint.UnmarshalUint64(bs)
	if err != nil {
		return v, n, err
	}
	v.Id = ID(id)

	var s string
	if s, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.Fingerprint = Fingerprint(s)

	if s, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.Type = StagingType(s)

	if v.Title, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.Body, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.Tags, m, err = unmarshalStrings(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if s, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.Status = Status(s)

	if s, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.DetectionType = DetectionType(s)

	if v.Score, m, err = varint.UnmarshalInt(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.Category, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if s, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.Priority = Priority(s)

	if v.SourceName, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.SourceURL, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.PublishedSource, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.DetectedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.ResolvedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.PublishedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.ReviewNotes, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.NotificationRef, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.InsertedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	return v, n, nil
}

func (stagingItemMUS) Size(v StagingItem) int {
	size := varint.SizeUint64(uint64(v.Id))
	size += ord.SizeString(string(v.Fingerprint), nil)
	size += ord.SizeString(string(v.Type), nil)
	size += ord.SizeString(v.Title, nil)
	size += ord.SizeString(v.Body, nil)
	size += sizeStrings(v.Tags)
	size += ord.SizeString(string(v.Status), nil)
	size += ord.SizeString(string(v.DetectionType), nil)
	size += varint.SizeInt(v.Score)
	size += ord.SizeString(v.Category, nil)
	size += ord.SizeString(string(v.Priority), nil)
	size += ord.SizeString(v.SourceName, nil)
	size += ord.SizeString(v.SourceURL, nil)
	size += sizeVector(v.Vector)
	size += sizeTime(v.PublishedSource)
	size += sizeTime(v.DetectedAt)
	size += sizeTime(v.ResolvedAt)
	size += sizeTime(v.PublishedAt)
	size += ord.SizeString(v.ReviewNotes, nil)
	size += ord.SizeString(v.NotificationRef, nil)
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

type dedupRecordMUS struct{}

func (dedupRecordMUS) Marshal(v DedupRecord, bs []byte) int {
	n := ord.MarshalString(string(v.Fingerprint), nil, bs)
	n += marshalVector(v.Vector, bs[n:])
	n += ord.MarshalString(v.Category, nil, bs[n:])
	n += marshalTime(v.PublishedAt, bs[n:])
	n += marshalTime(v.StoredAt, bs[n:])
	return n
}

func (dedupRecordMUS) Unmarshal(bs []byte) (DedupRecord, int, error) {
	var (
		v   DedupRecord
		m   int
		err error
	)
	s, n, err := ord.UnmarshalString(nil, bs)
	if err != nil {
		return v, n, err
	}
	v.Fingerprint = Fingerprint(s)

	if v.Vector, m, err = unmarshalVector(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.Category, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.PublishedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.StoredAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	return v, n, nil
}

func (dedupRecordMUS) Size(v DedupRecord) int {
	size := ord.SizeString(string(v.Fingerprint), nil)
	size += sizeVector(v.Vector)
	size += ord.SizeString(v.Category, nil)
	size += sizeTime(v.PublishedAt)
	size += sizeTime(v.StoredAt)
	return size
}

type publishedRecordMUS struct{}

func (publishedRecordMUS) Marshal(v PublishedRecord, bs []byte) int {
	n := ord.MarshalString(string(v.Fingerprint), nil, bs)
	n += varint.MarshalUint64(uint64(v.ItemId), bs[n:])
	n += marshalTime(v.PublishedAt, bs[n:])
	n += ord.MarshalString(v.AckRef, nil, bs[n:])
	return n
}

func (publishedRecordMUS) Unmarshal(bs []byte) (PublishedRecord, int, error) {
	var (
		v   PublishedRecord
		m   int
		err error
	)
	s, n, err := ord.UnmarshalString(nil, bs)
	if err != nil {
		return v, n, err
	}
	v.Fingerprint = Fingerprint(s)

	id, m, err := varint.UnmarshalUint64(bs[n:])
	if err != nil {
		return v, n + m, err
	}
	n += m
	v.ItemId = ID(id)

	if v.PublishedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.AckRef, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	return v, n, nil
}

func (publishedRecordMUS) Size(v PublishedRecord) int {
	size := ord.SizeString(string(v.Fingerprint), nil)
	size += varint.SizeUint64(uint64(v.ItemId))
	size += sizeTime(v.PublishedAt)
	size += ord.SizeString(v.AckRef, nil)
	return size
}

type sourceStateMUS struct{}

func (sourceStateMUS) Marshal(v SourceState, bs []byte) int {
	n := ord.MarshalString(v.SourceURL, nil, bs)
	n += ord.MarshalString(v.ContentHash, nil, bs[n:])
	n += marshalTime(v.LastSeenAt, bs[n:])
	return n
}

func (sourceStateMUS) Unmarshal(bs []byte) (SourceState, int, error) {
	var (
		v   SourceState
		n   int
		m   int
		err error
	)
	if v.SourceURL, n, err = ord.UnmarshalString(nil, bs); err != nil {
		return v, n, err
	}

	if v.ContentHash, m, err = ord.UnmarshalString(nil, bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	if v.LastSeenAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m

	return v, n, nil
}

func (sourceStateMUS) Size(v SourceState) int {
	size := ord.SizeString(v.SourceURL, nil)
	size += ord.SizeString(v.ContentHash, nil)
	size += sizeTime(v.LastSeenAt)
	return size
}
