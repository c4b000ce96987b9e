package generic

import "strings"

// =============================================================================
// ATTACHMENT - None | Existing{url} | Pending{ref}
// =============================================================================

type AttachmentKind string

const (
	AttachmentNone     AttachmentKind = ""
	AttachmentExisting AttachmentKind = "existing"
	AttachmentPending  AttachmentKind = "pending"
)

// Attachment is an opaque file reference. Existing points at a stored file
// (URL), Pending at a local upload the storage collaborator will persist.
// The engine never looks inside either.
type Attachment struct {
	Kind AttachmentKind
	URL  string
	Ref  string
}

func NoAttachment() Attachment                 { return Attachment{} }
func ExistingAttachment(url string) Attachment { return Attachment{Kind: AttachmentExisting, URL: url} }
func PendingAttachment(ref string) Attachment  { return Attachment{Kind: AttachmentPending, Ref: ref} }

// IsPresent reports whether a carries a usable reference. A variant with a
// blank URL or ref counts as absent.
func (a Attachment) IsPresent() bool {
	return a.Kind != AttachmentNone && strings.TrimSpace(a.Location()) != ""
}

// Location returns the URL or pending ref, whichever the variant carries.
func (a Attachment) Location() string {
	switch a.Kind {
	case AttachmentExisting:
		return a.URL
	case AttachmentPending:
		return a.Ref
	}
	return ""
}

// ParseAttachment rebuilds an Attachment from its stored (kind, location)
// pair. Unknown kinds decode as no attachment.
func ParseAttachment(kind, location string) Attachment {
	switch AttachmentKind(kind) {
	case AttachmentExisting:
		return ExistingAttachment(location)
	case AttachmentPending:
		return PendingAttachment(location)
	}
	return Attachment{}
}
