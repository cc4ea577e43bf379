package driven

// TextExtractor turns an uploaded file into plain text
type TextExtractor interface {
	// Extract returns the text of the file. The filename extension selects
	// the format; unknown formats return domain.ErrUnsupportedFormat.
	Extract(filename string, data []byte) (string, error)

	// Supported lists the accepted file extensions, e.g. ".pdf"
	Supported() []string
}
