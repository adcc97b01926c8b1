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


package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIError is the normalized payload every non-2xx endpoint returns. Clients
// key on Code and use Recoverable to decide whether a retry without changed
// input can succeed.
type APIError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	RequestID   string `json:"request_id"`
}

// APIErrorResponse wraps APIError under the "error" key.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

func writeError(c *gin.Context, status int, code, message string, recoverable bool) {
	c.JSON(status, APIErrorResponse{Error: APIError{
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
		RequestID:   uuid.NewString(),
	}})
}
