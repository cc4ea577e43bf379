package driven

// PostProcessor transforms document text segments on the ingestion path.
// Processors form a pipeline: normalizer -> chunker.
type PostProcessor interface {
	// Process transforms segments. The first processor receives a single
	// segment holding the whole document text.
	Process(segments []Segment) []Segment

	// Name returns the processor name for logging
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier)
	Order() int
}

// PostProcessorPipeline runs post-processors in order
type PostProcessorPipeline interface {
	// Process turns raw document text into chunk-sized segments
	Process(content string) []Segment

	// List returns processor names in order
	List() []string
}

// Segment is a piece of document text in flight through the pipeline
type Segment struct {
	// Content is the segment text
	Content string

	// Position is the segment index within the document (0-based)
	Position int

	// StartOffset is the rune offset from document start
	StartOffset int

	// EndOffset is the rune offset of the segment end (exclusive)
	EndOffset int
}
