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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCatalogRecord indicates a CatalogRecord failed validation.
	ErrInvalidCatalogRecord = errors.New("invalid catalog record")

	// ErrInvalidEscalation indicates an EscalationEntry failed validation.
	ErrInvalidEscalation = errors.New("invalid escalation entry")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidPostID indicates a non-positive post identifier.
	ErrInvalidPostID = errors.New("post id must be positive")

	// ErrInvalidYear indicates a year outside 1900..2099.
	ErrInvalidYear = errors.New("year out of range")

	// ErrEmptyQuery indicates the escalation query is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidNotifyPreference indicates an unknown NotifyPreference value.
	ErrInvalidNotifyPreference = errors.New("invalid notify preference")
)
