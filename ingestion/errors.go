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


package ingestion

import "errors"

var (
	// ErrUnsupportedType indicates the uploaded bytes match no supported
	// document kind and no parser is registered for them.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrParseFailed indicates a supported document could not be parsed.
	ErrParseFailed = errors.New("failed to parse document")

	// ErrEncryptedDocument indicates the document is password protected.
	ErrEncryptedDocument = errors.New("document is encrypted")

	// ErrRepositoryRequired indicates NewIngestor was called without a
	// repository.
	ErrRepositoryRequired = errors.New("repository is required")

	// ErrDocumentStoreRequired indicates NewIngestor was called without a
	// document store.
	ErrDocumentStoreRequired = errors.New("document store is required")

	// ErrIndexStoreRequired indicates NewIngestor was called without an
	// index store.
	ErrIndexStoreRequired = errors.New("index store is required")
)
