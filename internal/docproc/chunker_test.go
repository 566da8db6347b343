package docproc

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// TestChunkText_SingleChunk verifies short text stays in one chunk.
func TestChunkText_SingleChunk(t *testing.T) {
	chunker := NewChunker(200, 50)
	chunks := chunker.ChunkText("This is a sentence. Here is another one.")

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "This is a sentence. Here is another one." {
		t.Errorf("Unexpected chunk content: %q", chunks[0])
	}
}

// TestChunkText_SentenceBoundaries verifies chunks never end mid-sentence
// when sentences fit within the chunk size.
func TestChunkText_SentenceBoundaries(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Sentence number %d has a fixed shape and length. ", i)
	}

	chunker := NewChunker(200, 0)
	chunks := chunker.ChunkText(sb.String())

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 200 {
			t.Errorf("Chunk %d exceeds chunk size: %d chars", i, len(chunk))
		}
		if !strings.HasSuffix(chunk, ".") {
			t.Errorf("Chunk %d ends mid-sentence: %q", i, chunk)
		}
	}
}

// TestChunkText_Overlap verifies adjacent chunks share trailing sentences.
func TestChunkText_Overlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "Unique marker %d appears exactly here. ", i)
	}

	chunker := NewChunker(150, 50)
	chunks := chunker.ChunkText(sb.String())

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevSentences := strings.SplitAfter(chunks[i-1], ". ")
		last := strings.TrimSpace(prevSentences[len(prevSentences)-1])
		if !strings.HasPrefix(chunks[i], last) {
			t.Errorf("Chunk %d does not start with the previous chunk's last sentence:\nprev tail: %q\nchunk: %q",
				i, last, chunks[i])
		}
	}
}

// TestChunkText_Idempotent verifies identical input yields identical
// chunk boundaries.
func TestChunkText_Idempotent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Deterministic sentence number %d goes right here. ", i)
	}

	chunker := NewChunker(300, 80)
	first := chunker.ChunkText(sb.String())
	second := chunker.ChunkText(sb.String())

	if !reflect.DeepEqual(first, second) {
		t.Error("Re-chunking identical text produced different chunks")
	}
}

// TestChunkText_MinimumChunkLength verifies that with uniform sentences
// no chunk except the final one is shorter than chunkSize - overlap.
func TestChunkText_MinimumChunkLength(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Sentence %02d is exactly the same size each time. ", i)
	}

	chunkSize, overlap := 400, 100
	chunker := NewChunker(chunkSize, overlap)
	chunks := chunker.ChunkText(sb.String())

	for i, chunk := range chunks[:len(chunks)-1] {
		if len(chunk) < chunkSize-overlap {
			t.Errorf("Chunk %d is %d chars, below minimum %d", i, len(chunk), chunkSize-overlap)
		}
	}
}

// TestChunkText_OversizedSentence verifies a sentence longer than the
// chunk size is forcibly cut instead of looping forever.
func TestChunkText_OversizedSentence(t *testing.T) {
	long := strings.Repeat("x", 500)

	chunker := NewChunker(200, 0)
	chunks := chunker.ChunkText(long)

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks from a 500-char sentence at size 200, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 || len(chunks[1]) != 200 || len(chunks[2]) != 100 {
		t.Errorf("Unexpected cut sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

// TestChunkText_Empty verifies whitespace-only input yields no chunks.
func TestChunkText_Empty(t *testing.T) {
	chunker := NewChunker(200, 50)
	if chunks := chunker.ChunkText("   \n\t  "); chunks != nil {
		t.Errorf("Expected no chunks, got %v", chunks)
	}
}

// TestChunkText_NormalizesWhitespace verifies newlines and runs of
// spaces collapse before chunking.
func TestChunkText_NormalizesWhitespace(t *testing.T) {
	chunker := NewChunker(200, 0)
	chunks := chunker.ChunkText("First   line.\nSecond\t\tline. Third line.")

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "First line. Second line. Third line." {
		t.Errorf("Whitespace not normalized: %q", chunks[0])
	}
}

// TestSplitSentences_Abbreviations verifies single-letter initials do
// not split sentences.
func TestSplitSentences_Abbreviations(t *testing.T) {
	sentences := splitSentences("Dr. J. Smith teaches the course. It starts Monday.")

	if len(sentences) != 2 {
		t.Fatalf("Expected 2 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[0] != "Dr. J. Smith teaches the course." {
		t.Errorf("Initial split incorrectly: %q", sentences[0])
	}
}

// TestNewChunker_ClampsOverlap verifies overlap never reaches chunkSize.
func TestNewChunker_ClampsOverlap(t *testing.T) {
	chunker := NewChunker(100, 100)
	if chunker.overlap >= chunker.chunkSize {
		t.Errorf("Overlap %d not clamped below chunk size %d", chunker.overlap, chunker.chunkSize)
	}
}
