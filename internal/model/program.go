package model

import "time"

// DefaultFileType is stored when the uploaded part carries no MIME type.
const DefaultFileType = "document"

// Program is an uploaded content item: a metadata record plus the stored file
// it points to.
//
// FilePath is the blob-store key (programs/<creator>/<millis>_<name>) and is
// the only reliable handle on the file. FileURL is the download URL obtained
// at upload time; links that leave the site are re-signed from FilePath.
//
// Views and Downloads only grow, through the tracked open/download redirects.
type Program struct {
	ID          string    `json:"id"          db:"id"`
	CreatorID   string    `json:"creatorId"   db:"creator_id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	FileURL     string    `json:"fileUrl"     db:"file_url"`
	FilePath    string    `json:"filePath"    db:"file_path"`
	FileName    string    `json:"fileName"    db:"file_name"`
	FileType    string    `json:"fileType"    db:"file_type"`
	Published   bool      `json:"published"   db:"published"`
	Views       int64     `json:"views"       db:"views"`
	Downloads   int64     `json:"downloads"   db:"downloads"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}
