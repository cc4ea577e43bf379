package postprocessors

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters (runes) per chunk
	MaxChunkSize int

	// Overlap is the number of trailing characters of a chunk repeated at the
	// start of the next one
	Overlap int
}

// DefaultChunkConfig returns the ingestion defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: 500,
		Overlap:      100,
	}
}

// Normalized clamps the config to values the chunker can honor: a
// non-positive size falls back to the default, and the overlap is kept within
// [0, MaxChunkSize) so every chunk advances through the text.
func (c ChunkConfig) Normalized() ChunkConfig {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = DefaultChunkConfig().MaxChunkSize
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.MaxChunkSize {
		c.Overlap = c.MaxChunkSize - 1
	}
	return c
}

// Chunker splits text into overlapping, sentence-aware chunks.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) *Chunker {
	return &Chunker{config: config.Normalized()}
}

// Config returns the effective (normalized) configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Process splits every incoming segment into chunks.
func (c *Chunker) Process(segments []driven.Segment) []driven.Segment {
	var result []driven.Segment
	for _, seg := range segments {
		runes := []rune(seg.Content)
		for _, sp := range c.spans(runes) {
			result = append(result, driven.Segment{
				Content:     string(runes[sp.start:sp.end]),
				Position:    len(result),
				StartOffset: seg.StartOffset + sp.start,
				EndOffset:   seg.StartOffset + sp.end,
			})
		}
	}
	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 10 - chunker runs after normalization.
func (c *Chunker) Order() int {
	return 10
}

// Split returns the chunk strings for text.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.spans(runes)
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(runes[sp.start:sp.end])
	}
	return out
}

// Chunk splits text with the given limits using a throwaway chunker.
func Chunk(text string, maxLen, overlap int) []string {
	return NewChunker(ChunkConfig{MaxChunkSize: maxLen, Overlap: overlap}).Split(text)
}

type span struct {
	start, end int
}

// spans computes chunk boundaries. Every chunk is a contiguous slice of the
// input; chunk i+1 starts Overlap runes before chunk i ends (or at its start
// when chunk i is shorter), so concatenating chunk 0 with the non-overlapping
// tail of every following chunk reproduces the input exactly.
func (c *Chunker) spans(runes []rune) []span {
	if strings.TrimSpace(string(runes)) == "" {
		return nil
	}

	maxLen, overlap := c.config.MaxChunkSize, c.config.Overlap

	var out []span
	segStart, segEnd := 0, 0
	fresh := 0 // Content before this offset was already emitted

	emit := func() {
		out = append(out, span{segStart, segEnd})
		carry := overlap
		if size := segEnd - segStart; carry > size {
			carry = size
		}
		segStart = segEnd - carry
		fresh = segEnd
	}

	for _, sentenceEnd := range sentenceEnds(runes) {
		for segEnd < sentenceEnd {
			room := maxLen - (segEnd - segStart)
			if sentenceEnd-segEnd <= room {
				segEnd = sentenceEnd
				break
			}
			if segEnd > fresh {
				// The segment holds new text and this sentence does not fit.
				emit()
				continue
			}
			// Only carried overlap is buffered: hard-split the sentence.
			segEnd += room
			emit()
		}
	}
	if segEnd > fresh {
		emit()
	}
	return out
}

// sentenceEnds returns the exclusive end offset of every sentence. A sentence
// ends after terminal punctuation followed by whitespace, or after a newline;
// trailing whitespace stays with the sentence it follows. The last offset is
// always len(runes).
func sentenceEnds(runes []rune) []int {
	var ends []int
	n := len(runes)
	i := 0
	for i < n {
		r := runes[i]
		i++
		boundary := r == '\n'
		if isTerminal(r) {
			for i < n && isTerminal(runes[i]) {
				i++
			}
			boundary = i == n || unicode.IsSpace(runes[i])
		}
		if !boundary {
			continue
		}
		for i < n && unicode.IsSpace(runes[i]) {
			i++
		}
		ends = append(ends, i)
	}
	if len(ends) == 0 || ends[len(ends)-1] != n {
		ends = append(ends, n)
	}
	return ends
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
