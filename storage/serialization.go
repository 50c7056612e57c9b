// Copyright 2025 Poiesic Systems
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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/reelbot/core"
)

// Records are encoded as a fixed field sequence: integers as varints,
// strings length-prefixed, timestamps as Unix microseconds (0 for the zero time).

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if v == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// decoder walks a byte slice field by field and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) time() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := unmarshalTime(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) finish() error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalCatalogRecord serializes a CatalogRecord to bytes.
func MarshalCatalogRecord(record *core.CatalogRecord) []byte {
	size := varint.Int64.Size(int64(record.ID)) +
		ord.String.Size(record.Title) +
		varint.Int64.Size(int64(record.Year)) +
		ord.String.Size(string(record.Language)) +
		ord.String.Size(record.Thumbnail) +
		sizeTime(record.CreatedAt) +
		sizeTime(record.IndexedAt)

	buf := make([]byte, size)
	n := varint.Int64.Marshal(int64(record.ID), buf)
	n += ord.String.Marshal(record.Title, buf[n:])
	n += varint.Int64.Marshal(int64(record.Year), buf[n:])
	n += ord.String.Marshal(string(record.Language), buf[n:])
	n += ord.String.Marshal(record.Thumbnail, buf[n:])
	n += marshalTime(record.CreatedAt, buf[n:])
	marshalTime(record.IndexedAt, buf[n:])
	return buf
}

// UnmarshalCatalogRecord deserializes a CatalogRecord from bytes.
func UnmarshalCatalogRecord(data []byte) (*core.CatalogRecord, error) {
	d := &decoder{bs: data}
	record := &core.CatalogRecord{
		ID:        core.PostID(d.int64()),
		Title:     d.string(),
		Year:      int(d.int64()),
		Language:  core.Language(d.string()),
		Thumbnail: d.string(),
		CreatedAt: d.time(),
		IndexedAt: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalUserProfile serializes a UserProfile to bytes.
func MarshalUserProfile(user *core.UserProfile) []byte {
	size := varint.Int64.Size(int64(user.ID)) +
		ord.String.Size(user.DisplayName) +
		sizeTime(user.JoinedAt) +
		varint.Int64.Size(int64(user.Notify)) +
		sizeTime(user.LastSearchAt)

	buf := make([]byte, size)
	n := varint.Int64.Marshal(int64(user.ID), buf)
	n += ord.String.Marshal(user.DisplayName, buf[n:])
	n += marshalTime(user.JoinedAt, buf[n:])
	n += varint.Int64.Marshal(int64(user.Notify), buf[n:])
	marshalTime(user.LastSearchAt, buf[n:])
	return buf
}

// UnmarshalUserProfile deserializes a UserProfile from bytes.
func UnmarshalUserProfile(data []byte) (*core.UserProfile, error) {
	d := &decoder{bs: data}
	user := &core.UserProfile{
		ID:           core.UserID(d.int64()),
		DisplayName:  d.string(),
		JoinedAt:     d.time(),
		Notify:       core.NotifyPreference(d.int64()),
		LastSearchAt: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return user, nil
}

// MarshalEscalationEntry serializes an EscalationEntry to bytes.
func MarshalEscalationEntry(entry *core.EscalationEntry) []byte {
	size := ord.String.Size(entry.Query) +
		varint.Int64.Size(int64(len(entry.Users))) +
		sizeTime(entry.FirstSeen) +
		sizeTime(entry.LastSeen)
	for _, u := range entry.Users {
		size += varint.Int64.Size(int64(u))
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(entry.Query, buf)
	n += varint.Int64.Marshal(int64(len(entry.Users)), buf[n:])
	for _, u := range entry.Users {
		n += varint.Int64.Marshal(int64(u), buf[n:])
	}
	n += marshalTime(entry.FirstSeen, buf[n:])
	marshalTime(entry.LastSeen, buf[n:])
	return buf
}

// UnmarshalEscalationEntry deserializes an EscalationEntry from bytes.
func UnmarshalEscalationEntry(data []byte) (*core.EscalationEntry, error) {
	d := &decoder{bs: data}
	entry := &core.EscalationEntry{Query: d.string()}
	count := d.int64()
	if d.err == nil && (count < 0 || count > int64(len(data))) {
		return nil, fmt.Errorf("%w: %w: user count %d", ErrSerializationFailed, ErrTruncatedData, count)
	}
	if count > 0 {
		entry.Users = make([]core.UserID, 0, count)
	}
	for i := int64(0); i < count && d.err == nil; i++ {
		entry.Users = append(entry.Users, core.UserID(d.int64()))
	}
	entry.FirstSeen = d.time()
	entry.LastSeen = d.time()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalFeedback serializes a Feedback entry to bytes.
func MarshalFeedback(feedback *core.Feedback) []byte {
	size := varint.Int64.Size(int64(feedback.User)) +
		ord.String.Size(feedback.Text) +
		sizeTime(feedback.Timestamp)

	buf := make([]byte, size)
	n := varint.Int64.Marshal(int64(feedback.User), buf)
	n += ord.String.Marshal(feedback.Text, buf[n:])
	marshalTime(feedback.Timestamp, buf[n:])
	return buf
}

// UnmarshalFeedback deserializes a Feedback entry from bytes.
func UnmarshalFeedback(data []byte) (*core.Feedback, error) {
	d := &decoder{bs: data}
	feedback := &core.Feedback{
		User:      core.UserID(d.int64()),
		Text:      d.string(),
		Timestamp: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return feedback, nil
}

// MarshalFlag serializes a boolean setting.
func MarshalFlag(v bool) []byte {
	buf := make([]byte, ord.Bool.Size(v))
	ord.Bool.Marshal(v, buf)
	return buf
}

// UnmarshalFlag deserializes a boolean setting.
func UnmarshalFlag(data []byte) (bool, error) {
	v, _, err := ord.Bool.Unmarshal(data)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return v, nil
}
