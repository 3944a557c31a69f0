package controllers

import (
	"encoding/json"
	"net/http"

	"beyondrounds_server/services"
)

// S3Controller hands out presigned URLs for profile photos
type S3Controller struct {
	S3Service *services.S3Service
}

// NewS3Controller creates a new instance of S3Controller
func NewS3Controller(s3Service *services.S3Service) *S3Controller {
	return &S3Controller{S3Service: s3Service}
}

// GenerateUploadURL returns a presigned PUT URL and the object key
func (c *S3Controller) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FileName == "" || body.FileType == "" {
		http.Error(w, "fileName and fileType are required", http.StatusBadRequest)
		return
	}

	url, key, err := c.S3Service.GenerateUploadURL(r.Context(), body.FileName, body.FileType)
	if err != nil {
		http.Error(w, "Failed to generate upload URL", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"uploadUrl": url,
		"key":       key,
	})
}

// GenerateReadURL returns a presigned GET URL for an object key
func (c *S3Controller) GenerateReadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key query parameter is required", http.StatusBadRequest)
		return
	}

	url, err := c.S3Service.GenerateReadURL(r.Context(), key)
	if err != nil {
		http.Error(w, "Failed to generate read URL", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"readUrl": url})
}
