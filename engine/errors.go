// Copyright 2026 Paperflow Authors
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


package engine

import "errors"

var (
	// ErrRunNotFound indicates a pause or resume named a run that is not
	// currently active.
	ErrRunNotFound = errors.New("run not found")

	// ErrIndexStoreRequired indicates NewEngine was called without an
	// index store.
	ErrIndexStoreRequired = errors.New("index store is required")

	// ErrDocumentStoreRequired indicates NewEngine was called without a
	// document store.
	ErrDocumentStoreRequired = errors.New("document store is required")

	// ErrRepositoryRequired indicates NewEngine was called without a
	// repository.
	ErrRepositoryRequired = errors.New("repository is required")

	// ErrIngestorRequired indicates NewEngine was called without an
	// ingestor.
	ErrIngestorRequired = errors.New("ingestor is required")
)
