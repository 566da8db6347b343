package docproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default chunking parameters, tuned for course transcript text.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Chunker splits plain text into sentence-aligned chunks with a
// character-bounded overlap between adjacent chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker. Non-positive chunkSize falls back to
// DefaultChunkSize; overlap is clamped below chunkSize.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// ChunkText splits text into chunks of at most chunkSize characters.
// Chunks break on sentence boundaries; the trailing sentences of each
// chunk (up to overlap characters combined) are carried verbatim into
// the next chunk so adjacent chunks share context. A lone sentence
// longer than chunkSize is forcibly cut. Deterministic: identical input
// yields identical chunks.
func (c *Chunker) ChunkText(text string) []string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	sentences := c.cutOversized(splitSentences(text))

	var chunks []string
	i := 0
	for i < len(sentences) {
		var current []string
		size := 0

		// Fill greedily from sentence i. The first sentence always fits
		// because oversized sentences were cut above.
		for j := i; j < len(sentences); j++ {
			add := len(sentences[j])
			if len(current) > 0 {
				add++ // joining space
			}
			if size+add > c.chunkSize && len(current) > 0 {
				break
			}
			current = append(current, sentences[j])
			size += add
		}

		chunks = append(chunks, strings.Join(current, " "))

		if i+len(current) >= len(sentences) {
			break
		}

		// Walk back over trailing sentences that fit in the overlap
		// budget; the next chunk restarts from there.
		advance := len(current)
		if c.overlap > 0 {
			overlapSize := 0
			for k := len(current) - 1; k >= 0; k-- {
				l := len(current[k])
				if k < len(current)-1 {
					l++
				}
				if overlapSize+l > c.overlap {
					break
				}
				overlapSize += l
				advance--
			}
		}
		if advance < 1 {
			advance = 1 // always make progress
		}
		i += advance
	}

	return chunks
}

// cutOversized hard-cuts any sentence longer than chunkSize into
// chunkSize-sized pieces so chunk assembly always terminates.
func (c *Chunker) cutOversized(sentences []string) []string {
	cut := make([]string, 0, len(sentences))
	for _, s := range sentences {
		for len(s) > c.chunkSize {
			at := c.chunkSize
			for at > 0 && !utf8.RuneStart(s[at]) {
				at--
			}
			cut = append(cut, s[:at])
			s = s[at:]
		}
		if s != "" {
			cut = append(cut, s)
		}
	}
	return cut
}

// splitSentences splits normalized text on sentence terminators followed
// by whitespace and an uppercase letter. A period after a single-letter
// token (initials, abbreviation fragments) is not a boundary.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	byteAt := 0 // byte offset of runes[i]

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		w := utf8.RuneLen(r)
		if (r == '.' || r == '!' || r == '?') && i+2 < len(runes) &&
			unicode.IsSpace(runes[i+1]) && unicode.IsUpper(runes[i+2]) &&
			!isAbbreviationDot(runes, i) {
			sentences = append(sentences, strings.TrimSpace(text[start:byteAt+w]))
			start = byteAt + w + 1 // skip the single space from normalization
		}
		byteAt += w
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// isAbbreviationDot reports whether the '.' at index i terminates an
// initial ("J.") or a short title abbreviation ("Dr.", "Mr.") rather
// than a sentence.
func isAbbreviationDot(runes []rune, i int) bool {
	if runes[i] != '.' {
		return false
	}
	letters := 0
	for j := i - 1; j >= 0 && unicode.IsLetter(runes[j]); j-- {
		letters++
	}
	switch letters {
	case 1:
		return true
	case 2:
		return unicode.IsUpper(runes[i-2]) && unicode.IsLower(runes[i-1])
	default:
		return false
	}
}
