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

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind classifies a supported document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDoc  Kind = "doc"
	KindDocx Kind = "docx"
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindText Kind = "text"
)

// Legacy .doc files are OLE compound documents.
var oleSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

var extToMime = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// Code and config files are ingested as plain text.
var codeExtensions = map[string]bool{
	".py": true, ".pyi": true, ".js": true, ".jsx": true, ".ts": true,
	".tsx": true, ".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".xml": true, ".html": true, ".css": true,
	".scss": true, ".sql": true, ".sh": true, ".bash": true, ".ps1": true,
	".go": true, ".rs": true, ".java": true, ".kt": true, ".swift": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true,
	".cs": true, ".rb": true, ".php": true,
}

func isPDF(data []byte, filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF"))
}

func isProbablyText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	if float64(bytes.Count(head, []byte{0}))/float64(len(head)) > 0.02 {
		return false
	}
	if utf8.Valid(head) {
		return true
	}
	printable := 0
	for _, b := range head {
		if (b >= 9 && b <= 13) || (b >= 32 && b <= 126) {
			printable++
		}
	}
	return float64(printable)/float64(len(head)) > 0.9
}

// detectZipKind probes a ZIP container for Office Open XML internal paths.
func detectZipKind(data []byte) Kind {
	if !bytes.HasPrefix(data, []byte("PK")) {
		return ""
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range reader.File {
		switch f.Name {
		case "word/document.xml":
			return KindDocx
		case "xl/workbook.xml":
			return KindXLSX
		}
	}
	return ""
}

// DetectKind identifies the document kind and a best-effort MIME type from
// the raw bytes, filename and declared content type. Explicit extensions win
// over sniffing; unrecognized binary data fails with ErrUnsupportedType.
func DetectKind(data []byte, filename, contentType string) (Kind, string, error) {
	if isPDF(data, filename, contentType) {
		return KindPDF, "application/pdf", nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".docx":
		return KindDocx, extToMime[".docx"], nil
	case ext == ".xlsx":
		return KindXLSX, extToMime[".xlsx"], nil
	case ext == ".doc":
		return KindDoc, extToMime[".doc"], nil
	case ext == ".csv":
		return KindCSV, extToMime[".csv"], nil
	case ext == ".txt" || ext == ".md":
		return KindText, extToMime[ext], nil
	case codeExtensions[ext]:
		return KindText, "text/plain", nil
	}

	switch detectZipKind(data) {
	case KindDocx:
		return KindDocx, extToMime[".docx"], nil
	case KindXLSX:
		return KindXLSX, extToMime[".xlsx"], nil
	}

	if bytes.HasPrefix(data, oleSignature) {
		return KindDoc, extToMime[".doc"], nil
	}

	lowered := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(lowered, "text/"):
		return KindText, contentType, nil
	case lowered == "application/json" || lowered == "application/xml":
		return KindText, contentType, nil
	case lowered == extToMime[".docx"]:
		return KindDocx, extToMime[".docx"], nil
	case lowered == extToMime[".xlsx"]:
		return KindXLSX, extToMime[".xlsx"], nil
	case lowered == extToMime[".doc"]:
		return KindDoc, extToMime[".doc"], nil
	case lowered == extToMime[".csv"]:
		return KindCSV, extToMime[".csv"], nil
	}

	if isProbablyText(data) {
		return KindText, "text/plain", nil
	}

	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
}
