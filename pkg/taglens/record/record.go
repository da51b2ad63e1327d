package record

// Record is one bibliographic entry from the source library. Fields are
// validated and defaulted at the ingestion boundary; everything downstream
// can rely on them being populated.
type Record struct {
	ID          string
	Title       string
	Type        string
	Date        string
	Publication string
	Pages       string
	URL         string
	Tags        []string
	ChildCount  int
}

// ChildAttachment is one child item (attachment or note) of a record.
type ChildAttachment struct {
	ID          string
	Type        string
	Title       string
	Filename    string
	ContentType string
	LinkMode    string
	Note        string
}

// NoTitle is the placeholder substituted for a missing title.
const NoTitle = "[No Title]"

// HasTags reports whether the record carries at least one tag.
func (r Record) HasTags() bool {
	return len(r.Tags) > 0
}

// IsPDF reports whether the attachment is a PDF file.
func (c ChildAttachment) IsPDF() bool {
	return c.ContentType == "application/pdf"
}

// IsNote reports whether the child is a note item.
func (c ChildAttachment) IsNote() bool {
	return c.Type == "note"
}
