package domain

// Document defaults.
const (
	DefaultDocumentCategory = "other"
	DefaultDocumentType     = "PDF"
	CategoryAll             = "all"
)

// Document is the metadata of an uploaded citizen document. The content
// itself stays with the caller; FileData and URI only reference it.
type Document struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	Size         string `json:"size,omitempty"`
	UploadedDate string `json:"uploadedDate"`
	UploadedTime string `json:"uploadedTime"`
	Source       string `json:"source,omitempty"`
	ServiceType  string `json:"serviceType,omitempty"`
	Provider     string `json:"provider,omitempty"`
	FileData     string `json:"fileData,omitempty"`
	FileType     string `json:"fileType,omitempty"`
	URI          string `json:"uri,omitempty"`
}

// NewDocument holds the caller-supplied fields for a document. Empty fields
// take their defaults.
type NewDocument struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Type        string `json:"type,omitempty"`
	Size        string `json:"size,omitempty"`
	Source      string `json:"source,omitempty"`
	ServiceType string `json:"serviceType,omitempty"`
	Provider    string `json:"provider,omitempty"`
	FileData    string `json:"fileData,omitempty"`
	FileType    string `json:"fileType,omitempty"`
	URI         string `json:"uri,omitempty"`
}
