package domain

// FileStatus is the lifecycle state reported by file storage.
type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusUploaded FileStatus = "uploaded"
	FileStatusDeleted  FileStatus = "deleted"
)

// BindingKind says whether a file hangs off a ticket or one of its comments.
type BindingKind string

const (
	BindingTicket  BindingKind = "ticket"
	BindingComment BindingKind = "comment"
)

// AttachmentTarget identifies the record a file is bound to.
type AttachmentTarget struct {
	Kind     BindingKind
	ID       string
	TicketID string
}

// AttachmentReference is a file bound to a ticket or comment. A file id is
// bound at most once.
type AttachmentReference struct {
	FileID   string
	Name     string
	MimeType string
	Target   AttachmentTarget
	BoundBy  string
}

// StoredFile is the file storage collaborator's view of an upload.
type StoredFile struct {
	ID        string
	OwnerID   string
	Name      string
	MimeType  string
	SizeBytes int64
	Status    FileStatus
	Binding   *AttachmentTarget
}

// Bound reports whether the file has already been claimed.
func (f StoredFile) Bound() bool {
	return f.Binding != nil
}
