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

// Package search resolves user queries against the catalog.
//
// The Resolver trims the query, looks up catalog records whose title contains
// it (case-insensitively) and stamps the requester's last search time. When
// nothing matches, the query is handed to the escalation workflow before
// Resolve returns, so operators hear about it even if the reply to the user
// fails afterwards.
//
// How a match is presented (relayed directly, listed, or relayed in full) is
// decided by the caller.
package search
