package text

import (
	"strings"
	"testing"
)

func TestSegment_EmptyInput(t *testing.T) {
	if got := Segment("", 100); len(got) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(got))
	}
	if got := Segment("   \n\n\t  ", 100); len(got) != 0 {
		t.Errorf("Expected no chunks for whitespace input, got %d", len(got))
	}
}

func TestSegment_ShortInputSingleChunk(t *testing.T) {
	input := "  A short paragraph that fits. "
	got := Segment(input, 2500)
	if len(got) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(got))
	}
	if got[0] != strings.TrimSpace(input) {
		t.Errorf("Expected trimmed input back, got '%s'", got[0])
	}
}

func TestSegment_ParagraphBoundaries(t *testing.T) {
	input := "First paragraph.\n\nSecond paragraph.\n\n\n\nThird paragraph."
	got := Segment(input, 2500)
	if len(got) != 3 {
		t.Fatalf("Expected 3 chunks, got %d: %v", len(got), got)
	}
	want := []string{"First paragraph.", "Second paragraph.", "Third paragraph."}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Chunk %d: expected '%s', got '%s'", i, want[i], got[i])
		}
	}
}

func TestSegment_CRLFParagraphBoundaries(t *testing.T) {
	input := "First paragraph.\r\n\r\nSecond paragraph."
	got := Segment(input, 2500)
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %v", len(got), got)
	}
}

func TestSegment_SplitsLongParagraphAtSentence(t *testing.T) {
	first := "This is the first sentence of a paragraph."
	second := "Here comes the second sentence which is also fairly long."
	input := first + " " + second
	got := Segment(input, len(first)+5)
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %v", len(got), got)
	}
	if got[0] != first {
		t.Errorf("Expected first chunk '%s', got '%s'", first, got[0])
	}
	if got[1] != second {
		t.Errorf("Expected second chunk '%s', got '%s'", second, got[1])
	}
}

func TestSegment_LookaheadCatchesCrossingSentence(t *testing.T) {
	// The first sentence ends a few characters past maxLen; the lookahead
	// window should still cut there instead of mid-word. The second sentence
	// is long enough that its own ending stays outside the window.
	first := "A sentence that ends just a little past the bound."
	second := "The trailing sentence needs to be quite long to stay outside the window."
	input := first + " " + second
	got := Segment(input, len(first)-10)
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %v", len(got), got)
	}
	if got[0] != first {
		t.Errorf("Expected lookahead cut at '%s', got '%s'", first, got[0])
	}
	if got[1] != second {
		t.Errorf("Expected second chunk '%s', got '%s'", second, got[1])
	}
}

func TestSegment_SkipsAbbreviationBoundary(t *testing.T) {
	// The period after "Mr" is the only candidate in the search window, but
	// it must be rejected: both preceding characters are letters and the
	// first is uppercase. The segmenter falls back to a hard cut instead.
	input := "He spoke with Mr. Smithson at length about many various topics during that meeting and afterwards they walked home"
	got := Segment(input, 40)
	if len(got) < 2 {
		t.Fatalf("Expected multiple chunks, got %d: %v", len(got), got)
	}
	if got[0] == "He spoke with Mr." {
		t.Error("Segmenter cut at an abbreviation boundary")
	}
	if len(got[0]) > 40 {
		t.Errorf("Expected hard cut within bound, got %d chars", len(got[0]))
	}
}

func TestSegment_PunctuationNotFollowedByWhitespace(t *testing.T) {
	// The dot inside "3.14159" is not a sentence boundary; the cut lands on
	// "here." instead.
	first := "The value of pi is 3.14159 approximately here."
	second := "A second sentence follows the first one after quite some additional words."
	input := first + " " + second
	got := Segment(input, 50)
	if len(got) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %v", len(got), got)
	}
	if got[0] != first {
		t.Errorf("Expected first chunk '%s', got '%s'", first, got[0])
	}
}

func TestSegment_HardCutWithoutSentenceBoundary(t *testing.T) {
	input := strings.Repeat("abcde", 30) // 150 chars, no punctuation
	got := Segment(input, 50)
	if len(got) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(got))
	}
	for i, c := range got {
		if len(c) > 50 {
			t.Errorf("Chunk %d exceeds bound: %d chars", i, len(c))
		}
	}
	if strings.Join(got, "") != input {
		t.Error("Hard cuts should preserve all content")
	}
}

func TestSegment_HardCutRespectsRuneBoundary(t *testing.T) {
	input := strings.Repeat("ü", 100) // 2 bytes per rune, no punctuation
	got := Segment(input, 51)
	rejoined := strings.Join(got, "")
	if rejoined != input {
		t.Error("Rune-boundary backoff should preserve all content")
	}
	for i, c := range got {
		if !strings.HasPrefix(c, "ü") {
			t.Errorf("Chunk %d starts mid-rune: %q", i, c[:1])
		}
	}
}

func TestSegment_NeverReturnsEmptyChunks(t *testing.T) {
	input := "One.\n\n   \n\nTwo.\n\n\t\n\nThree."
	for _, c := range Segment(input, 2500) {
		if strings.TrimSpace(c) == "" {
			t.Error("Segment returned an empty chunk")
		}
	}
}

func TestSegment_Idempotence(t *testing.T) {
	input := "First sentence here. Second sentence there. Third sentence anywhere.\n\nAnother paragraph entirely."
	first := Segment(input, 40)
	rejoined := strings.Join(first, "\n\n")
	second := Segment(rejoined, 40)
	if len(first) != len(second) {
		t.Fatalf("Re-segmenting changed chunk count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk %d changed on re-segmentation: '%s' vs '%s'", i, first[i], second[i])
		}
	}
}

func TestSegment_ThreeShortSentencesOneChunk(t *testing.T) {
	got := Segment("A. B. C.", 100000)
	if len(got) != 1 {
		t.Fatalf("Expected 1 chunk, got %d: %v", len(got), got)
	}
	if got[0] != "A. B. C." {
		t.Errorf("Expected 'A. B. C.', got '%s'", got[0])
	}
}
