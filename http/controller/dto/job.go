package dto

import "encoding/json"

type CreateUploadRequestDTO struct {
	FileName string `json:"file_name" binding:"required"`
}

type CreateUploadResponseDTO struct {
	JobID     string `json:"job_id"`
	InputKey  string `json:"input_key"`
	UploadURL string `json:"upload_url"`
}

type CreateAnnotationRequestDTO struct {
	InputKey   string          `json:"input_key" binding:"required"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}
