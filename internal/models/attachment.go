package models

import (
	"fmt"
	"strings"
	"time"
)

// Attachment kinds
const (
	AttachmentKindAudio = "audio"
)

// Question tags attached to recordings. A recording that runs uninterrupted
// until submit is tagged as the full recording; recordings cut short by a
// save-and-exit are numbered parts.
const (
	FullRecordingTag       = "full_recording"
	RecordingPartTagFormat = "recording_part_%d"
)

// DefaultAudioContentType is used when the file extension is unrecognized;
// field recordings default to m4a.
const DefaultAudioContentType = "audio/m4a"

// Attachment is a locally stored media file awaiting upload. PartNumber is
// zero for a single continuous recording and monotonically increasing per
// submission when recording was paused and resumed across saves.
type Attachment struct {
	LocalURI          string    `json:"uri"`
	FormID            int       `json:"formId"`
	SubmissionLocalID string    `json:"submissionId"`
	Kind              string    `json:"type"`
	QuestionTag       string    `json:"questionId"`
	PartNumber        int       `json:"partNumber,omitempty"`
	Synced            bool      `json:"synced"`
	Timestamp         time.Time `json:"timestamp"`
}

// UploadTag returns the questionId field sent with the upload: the
// part-number-derived tag when this is a numbered part, otherwise the
// original tag.
func (a Attachment) UploadTag() string {
	if a.PartNumber > 0 {
		return fmt.Sprintf(RecordingPartTagFormat, a.PartNumber)
	}
	return a.QuestionTag
}

// ContentType resolves a MIME type from the attachment's file extension.
func (a Attachment) ContentType() string {
	uri := strings.ToLower(a.LocalURI)
	switch {
	case strings.HasSuffix(uri, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(uri, ".jpg"), strings.HasSuffix(uri, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(uri, ".png"):
		return "image/png"
	default:
		return DefaultAudioContentType
	}
}

// FileName returns the last path segment of the local URI, used as the
// multipart file name on upload.
func (a Attachment) FileName() string {
	if i := strings.LastIndexAny(a.LocalURI, "/\\"); i >= 0 {
		return a.LocalURI[i+1:]
	}
	return a.LocalURI
}
