// Copyright 2025 Coverwire Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/coverwire/curator/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalStagingItem serializes a StagingItem to bytes.
func MarshalStagingItem(item *core.StagingItem) []byte {
	buf := make([]byte, core.StagingItemMUS.Size(*item))
	core.StagingItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalStagingItem deserializes a StagingItem from bytes.
func UnmarshalStagingItem(data []byte) (*core.StagingItem, error) {
	item, _, err := core.StagingItemMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &item, nil
}

// MarshalDedupRecord serializes a DedupRecord to bytes.
func MarshalDedupRecord(record *core.DedupRecord) []byte {
	buf := make([]byte, core.DedupRecordMUS.Size(*record))
	core.DedupRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalDedupRecord deserializes a DedupRecord from bytes.
func UnmarshalDedupRecord(data []byte) (*core.DedupRecord, error) {
	record, _, err := core.DedupRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalPublishedRecord serializes a PublishedRecord to bytes.
func MarshalPublishedRecord(record *core.PublishedRecord) []byte {
	buf := make([]byte, core.PublishedRecordMUS.Size(*record))
	core.PublishedRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalPublishedRecord deserializes a PublishedRecord from bytes.
func UnmarshalPublishedRecord(data []byte) (*core.PublishedRecord, error) {
	record, _, err := core.PublishedRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalSourceState serializes a SourceState to bytes.
func MarshalSourceState(state *core.SourceState) []byte {
	buf := make([]byte, core.SourceStateMUS.Size(*state))
	core.SourceStateMUS.Marshal(*state, buf)
	return buf
}

// UnmarshalSourceState deserializes a SourceState from bytes.
func UnmarshalSourceState(data []byte) (*core.SourceState, error) {
	state, _, err := core.SourceStateMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &state, nil
}
