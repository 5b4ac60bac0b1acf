package types

// FileOrigin tags where a staged file was picked from. Removal from the merged
// selection routes back to the origin list, so the tag must survive merging.
type FileOrigin string

const (
	OriginCamera  FileOrigin = "camera"
	OriginLibrary FileOrigin = "library"
)

// DocumentType classifies an upload so the backend knows how to analyze it.
type DocumentType string

const (
	DocTypePrescription DocumentType = "prescription"
	DocTypeXRay         DocumentType = "xray"
)

// StagedFile is a locally picked file waiting to be handed off to a chat
// session. It lives in transient state only and is consumed exactly once.
type StagedFile struct {
	URI     string       `json:"uri"`
	Name    string       `json:"name"`
	MIME    string       `json:"mime_type"`
	Origin  FileOrigin   `json:"origin"`
	DocType DocumentType `json:"doc_type,omitempty"`
}

// StagedBatch is one confirmed hand-off from the picker: every file carries
// the same document type, chosen once for the whole batch.
type StagedBatch struct {
	ID      string       `json:"id"`
	VisitID string       `json:"visit_id"`
	DocType DocumentType `json:"doc_type"`
	Files   []StagedFile `json:"files"`
}
