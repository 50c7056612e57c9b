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


// Package storage provides the storage abstraction layer for reelbot.
//
// This package defines repository interfaces that decouple storage implementation
// from the indexing, search and escalation logic. The store is the single source
// of truth: components never cache records in process and every read re-queries
// the repository.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - CatalogRepository: indexed channel posts keyed by post ID
//   - UserRepository: the user registry
//   - EscalationRepository: unmatched queries and the users who asked them
//   - SettingsRepository: singleton flags such as global_notify
//   - FeedbackRepository: free-form user feedback
//
// # Usage
//
// Open a BadgerDB backend and build repositories on top of it:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	catalog := badger.NewCatalogRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. Mutations are idempotent
// upserts or additive set-unions, so retries are always safe.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
