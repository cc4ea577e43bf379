package postprocessors

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains post-processors sorted by Order().
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order to the document text.
// Empty or whitespace-only text yields no segments.
func (p *Pipeline) Process(content string) []driven.Segment {
	processors := p.ordered()

	if strings.TrimSpace(content) == "" {
		return nil
	}
	segments := []driven.Segment{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   utf8.RuneCountInString(content),
		},
	}

	for _, proc := range processors {
		segments = proc.Process(segments)
		if len(segments) == 0 {
			return nil
		}
	}
	return segments
}

func (p *Pipeline) ordered() []driven.PostProcessor {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	return append([]driven.PostProcessor(nil), p.processors...)
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	processors := p.ordered()
	names := make([]string, len(processors))
	for i, proc := range processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline normalizes whitespace, then chunks. Repeated passages are
// kept so the stored chunks are exactly the chunker's output.
func DefaultPipeline(config ChunkConfig) *Pipeline {
	p := NewPipeline()
	p.Add(NewWhitespaceNormalizer())
	p.Add(NewChunker(config))
	return p
}

// WhitespaceNormalizer cleans extracted text before chunking: line endings are
// unified, control characters dropped, runs of spaces collapsed, and blank
// lines limited to one.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a new whitespace normalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process normalizes whitespace in each segment and drops empty ones.
func (w *WhitespaceNormalizer) Process(segments []driven.Segment) []driven.Segment {
	result := make([]driven.Segment, 0, len(segments))

	for _, seg := range segments {
		content := NormalizeWhitespace(seg.Content)
		if content == "" {
			continue
		}
		seg.Content = content
		seg.Position = len(result)
		seg.EndOffset = seg.StartOffset + utf8.RuneCountInString(content)
		result = append(result, seg)
	}
	return result
}

// Name returns the processor name.
func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order returns 0 - normalization runs first.
func (w *WhitespaceNormalizer) Order() int {
	return 0
}

// NormalizeWhitespace applies the normalizer rules to a string.
func NormalizeWhitespace(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
