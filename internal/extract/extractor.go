// Package extract finds token mentions in post text.
// Extraction is pure and total: malformed fragments are dropped, never reported.
package extract

import (
	"regexp"
	"strings"

	"solana-mention-tracker/internal/domain"
)

var (
	// $ + letter + 1-9 alphanumerics.
	tickerRe = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{1,9})\b`)

	// single word immediately before the word "coin".
	phraseRe = regexp.MustCompile(`(?i)\b([a-z0-9]+)\s+coin\b`)

	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// zeroWidth characters are removed before scanning so offsets stay aligned with visible text.
var zeroWidth = strings.NewReplacer(
	"\u200b", "", // zero width space
	"\u200c", "", // zero width non-joiner
	"\u200d", "", // zero width joiner
	"\u2060", "", // word joiner
	"\ufeff", "", // byte order mark
	"\u00ad", "", // soft hyphen
)

// Match is a candidate together with the text span that produced it.
type Match struct {
	Candidate   domain.MentionCandidate
	TriggerText string
	Pos         int // byte offset in the cleaned text
}

// Extractor extracts mention candidates from text.
type Extractor struct {
	stopwords map[string]struct{}
}

// Options configures an Extractor.
type Options struct {
	// Stopwords replaces DefaultStopwords when non-empty.
	Stopwords []string
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	words := opts.Stopwords
	if len(words) == 0 {
		words = DefaultStopwords
	}
	return &Extractor{stopwords: stopwordSet(words)}
}

var defaultExtractor = New(Options{})

// Extract returns the deduplicated candidates of text using the default stopwords.
func Extract(text string) []domain.MentionCandidate {
	return defaultExtractor.Extract(text)
}

// Extract returns deduplicated candidates ordered by first appearance.
func (e *Extractor) Extract(text string) []domain.MentionCandidate {
	matches := e.ExtractMatches(text)
	out := make([]domain.MentionCandidate, len(matches))
	for i, m := range matches {
		out[i] = m.Candidate
	}
	return out
}

// ExtractMatches returns deduplicated matches with their trigger spans.
func (e *Extractor) ExtractMatches(text string) []Match {
	clean := zeroWidth.Replace(text)

	var raw []Match
	raw = append(raw, contractMatches(clean)...)
	raw = append(raw, tickerMatches(clean)...)
	raw = append(raw, e.phraseMatches(clean)...)

	return Dedup(raw)
}

func contractMatches(text string) []Match {
	addrs := findAddresses(text)
	out := make([]Match, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Match{
			Candidate: domain.MentionCandidate{
				TokenKey:     a.address,
				TokenDisplay: a.address,
				Source:       domain.SourceContract,
				Confidence:   domain.ConfidenceContract,
			},
			TriggerText: a.span,
			Pos:         a.pos,
		})
	}
	return out
}

func tickerMatches(text string) []Match {
	var out []Match
	for _, loc := range tickerRe.FindAllStringSubmatchIndex(text, -1) {
		symbol := text[loc[2]:loc[3]]
		out = append(out, Match{
			Candidate: domain.MentionCandidate{
				TokenKey:     strings.ToLower(symbol),
				TokenDisplay: "$" + strings.ToUpper(symbol),
				Source:       domain.SourceTicker,
				Confidence:   domain.ConfidenceTicker,
			},
			TriggerText: text[loc[0]:loc[1]],
			Pos:         loc[0],
		})
	}
	return out
}

func (e *Extractor) phraseMatches(text string) []Match {
	var out []Match
	for _, loc := range phraseRe.FindAllStringSubmatchIndex(text, -1) {
		word := strings.ToLower(text[loc[2]:loc[3]])
		if _, stop := e.stopwords[word]; stop || digitsRe.MatchString(word) {
			continue
		}
		out = append(out, Match{
			Candidate: domain.MentionCandidate{
				TokenKey:     word,
				TokenDisplay: word,
				Source:       domain.SourcePhrase,
				Confidence:   domain.ConfidencePhrase,
			},
			TriggerText: text[loc[0]:loc[1]],
			Pos:         loc[0],
		})
	}
	return out
}
