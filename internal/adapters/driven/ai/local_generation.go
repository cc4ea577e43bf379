package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Ensure LocalGeneration implements GenerationBackend
var _ driven.GenerationBackend = (*LocalGeneration)(nil)

// DefaultMaxSentences bounds the sentences quoted per analysis
const DefaultMaxSentences = 6

var negations = map[string]struct{}{
	"not": {}, "never": {}, "prohibited": {}, "forbidden": {}, "cannot": {}, "disallowed": {},
}

// LocalGeneration is the Local generation variant. It answers extractively:
// analyses quote the most question-relevant context sentences verbatim and
// syntheses arrange the analyses into agreement, complementary and conflict
// sections. Output is deterministic.
type LocalGeneration struct {
	maxSentences int
}

// NewLocalGeneration creates a local generation backend
func NewLocalGeneration(maxSentences int) *LocalGeneration {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &LocalGeneration{maxSentences: maxSentences}
}

// Name returns "local"
func (l *LocalGeneration) Name() string {
	return string(domain.AIProviderLocal)
}

// Ping always succeeds
func (l *LocalGeneration) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (l *LocalGeneration) Close() error {
	return nil
}

// Generate produces text for the prompt
func (l *LocalGeneration) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch prompt.Task {
	case domain.TaskAnalyze:
		return l.analyze(prompt), nil
	case domain.TaskSynthesize:
		return l.synthesize(prompt), nil
	default:
		return "", fmt.Errorf("%w: unknown generation task %q", domain.ErrInvalidInput, prompt.Task)
	}
}

type rankedSentence struct {
	text  string
	index int
	score int
}

func (l *LocalGeneration) analyze(prompt domain.Prompt) string {
	var texts []string
	for _, s := range prompt.Sections {
		texts = append(texts, s.Texts...)
	}

	query := tokenSet(prompt.Question)
	seen := make(map[string]bool)
	var candidates []rankedSentence
	for _, text := range texts {
		for i, sentence := range splitSentences(text) {
			if i == 0 && len(texts) > 1 && isFragment(sentence) {
				continue
			}
			key := strings.ToLower(sentence)
			if seen[key] {
				continue
			}
			seen[key] = true

			score := 0
			for t := range tokenSet(sentence) {
				if _, ok := query[t]; ok {
					score++
				}
			}
			candidates = append(candidates, rankedSentence{text: sentence, index: len(candidates), score: score})
		}
	}

	area := string(prompt.Area)
	if len(candidates) == 0 {
		return fmt.Sprintf("Based on the %s policy context provided, no specific information related to this question was found.", area)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > l.maxSentences {
		candidates = candidates[:l.maxSentences]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].index < candidates[j].index
	})

	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = c.text
	}
	return fmt.Sprintf("Based on the %s policy context: %s", area, strings.Join(quoted, " "))
}

func (l *LocalGeneration) synthesize(prompt domain.Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer to %q\n", prompt.Question)

	var analyses []domain.PromptSection
	for _, s := range prompt.Sections {
		if len(s.Texts) > 0 {
			analyses = append(analyses, s)
		}
	}

	b.WriteString("\nComplementary points:\n")
	for _, s := range analyses {
		fmt.Fprintf(&b, "- %s policy: %s\n", s.Area, strings.Join(s.Texts, " "))
	}

	if len(analyses) >= 2 {
		first, second := strings.Join(analyses[0].Texts, " "), strings.Join(analyses[1].Texts, " ")
		shared := sharedTerms(first, second)

		b.WriteString("\nAgreement:\n")
		if len(shared) > 0 {
			fmt.Fprintf(&b, "- Both the %s and %s guidance address: %s.\n", analyses[0].Area, analyses[1].Area, strings.Join(shared, ", "))
		} else {
			fmt.Fprintf(&b, "- The %s and %s guidance cover separate aspects of the question.\n", analyses[0].Area, analyses[1].Area)
		}

		b.WriteString("\nConflicts:\n")
		if conflicts := conflictingTerms(first, second, shared); len(conflicts) > 0 {
			fmt.Fprintf(&b, "- The %s and %s guidance differ on: %s. Check both policies before acting.\n", analyses[0].Area, analyses[1].Area, strings.Join(conflicts, ", "))
		} else {
			b.WriteString("- No conflicts were detected between the analyses.\n")
		}
	}

	for _, note := range prompt.Notes {
		fmt.Fprintf(&b, "\nNote: %s\n", note)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sharedTerms lists content tokens present in both texts, in order of first
// appearance in a. Area names and the word "policy" are ignored.
func sharedTerms(a, b string) []string {
	inB := tokenSet(b)
	ignore := map[string]bool{"policy": true, "based": true, "context": true, "hr": true}
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokenize(a) {
		if ignore[t] || seen[t] {
			continue
		}
		if _, ok := inB[t]; ok {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// conflictingTerms returns shared terms that one text negates and the other
// does not
func conflictingTerms(a, b string, shared []string) []string {
	negA, negB := negatedTerms(a), negatedTerms(b)
	var out []string
	for _, t := range shared {
		if negA[t] != negB[t] {
			out = append(out, t)
		}
	}
	return out
}

// negatedTerms marks every token that appears in a sentence containing a
// negation word
func negatedTerms(text string) map[string]bool {
	out := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		words := strings.Fields(strings.ToLower(sentence))
		negated := false
		for _, w := range words {
			w = strings.Trim(w, ".,;:!?\"'()")
			if _, ok := negations[w]; ok || strings.HasSuffix(w, "n't") {
				negated = true
				break
			}
		}
		if !negated {
			continue
		}
		for _, t := range Tokenize(sentence) {
			out[t] = true
		}
	}
	return out
}
