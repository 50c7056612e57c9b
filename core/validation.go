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


package core

import (
	"fmt"
	"strings"
)

// ValidateCatalogRecord validates a CatalogRecord according to domain rules.
//
// Validation rules:
//   - ID must be positive
//   - Title must not be blank
//   - Year is either 0 (absent) or within 1900..2099
//
// NOT validated:
//   - Language (any tag is accepted, detection may grow)
//   - Thumbnail (opaque transport reference)
func ValidateCatalogRecord(record *CatalogRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidCatalogRecord)
	}

	if record.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalogRecord, ErrInvalidPostID)
	}

	if strings.TrimSpace(record.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCatalogRecord, ErrEmptyTitle)
	}

	if record.Year != 0 && (record.Year < 1900 || record.Year > 2099) {
		return fmt.Errorf("%w: %w: %d", ErrInvalidCatalogRecord, ErrInvalidYear, record.Year)
	}

	return nil
}

// ValidateEscalationEntry validates an EscalationEntry.
// The query must already be normalized.
func ValidateEscalationEntry(entry *EscalationEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEscalation)
	}

	if entry.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEscalation, ErrEmptyQuery)
	}

	if entry.Query != NormalizeQuery(entry.Query) {
		return fmt.Errorf("%w: query %q is not normalized", ErrInvalidEscalation, entry.Query)
	}

	return nil
}

// ValidateNotifyPreference validates that a NotifyPreference has a valid value.
func ValidateNotifyPreference(p NotifyPreference) error {
	if p != NotifyUnset && p != NotifyOn && p != NotifyOff {
		return fmt.Errorf("%w: value %d", ErrInvalidNotifyPreference, p)
	}
	return nil
}
