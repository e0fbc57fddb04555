package pipeline

import (
	"fmt"
	"strings"
	"testing"
)

func TestCleanContent(t *testing.T) {
	raw := "First sentence.   Second    sentence!\n\n\n\nThird sentence?"
	got := cleanContent(raw)

	if strings.Contains(got, "\n\n\n") {
		t.Error("triple line breaks survived cleanup")
	}
	want := "First sentence.\n\nSecond sentence!\n\nThird sentence?"
	if got != want {
		t.Errorf("cleanContent = %q, want %q", got, want)
	}
}

func TestOptimizeForSearch_PrependsWhenKeywordMissing(t *testing.T) {
	content := "This article talks about phones in general terms without naming anything."
	got := optimizeForSearch(content, "galaxy s25", "Samsung Galaxy S25 Edge")

	if !strings.Contains(strings.ToLower(got[:200]), "galaxy s25") {
		t.Error("keyword missing from the first 200 characters")
	}
	if !strings.HasPrefix(got, "When it comes to") {
		t.Errorf("expected keyword lead-in, got %q", got[:40])
	}
	// The first keyword mention, now in the lead-in, carries the product name.
	if !strings.Contains(got, "Samsung Galaxy S25 Edge") {
		t.Error("first keyword mention not swapped for the product name")
	}
}

func TestOptimizeForSearch_NoPrependWhenKeywordEarly(t *testing.T) {
	content := "The Galaxy S25 arrives with a faster chip. It also improves the camera."
	got := optimizeForSearch(content, "galaxy s25", "Samsung Galaxy S25")

	if strings.HasPrefix(got, "When it comes to") {
		t.Error("lead-in added even though the keyword already appears early")
	}
	// First mention becomes the full product name.
	if !strings.Contains(got, "Samsung Galaxy S25") {
		t.Error("first keyword mention not swapped for the product name")
	}
}

func TestOptimizeForSearch_TopsUpDensity(t *testing.T) {
	content := "galaxy s25 is mentioned here once in a fairly short piece of text."
	got := optimizeForSearch(content, "galaxy s25", "galaxy s25")

	mentions := strings.Count(strings.ToLower(got), "galaxy s25")
	if mentions < 2 {
		t.Errorf("mentions = %d, want at least 2", mentions)
	}
}

func TestMakeExcerpt_ShortContentUnchanged(t *testing.T) {
	content := "Short body. Nothing to trim."
	if got := makeExcerpt(content, 300); got != content {
		t.Errorf("short content modified: %q", got)
	}
}

func TestMakeExcerpt_CutsOnSentenceBoundary(t *testing.T) {
	// 299 filler words, then a period right near the cut.
	var b strings.Builder
	for i := 0; i < 298; i++ {
		fmt.Fprintf(&b, "word%d ", i)
	}
	b.WriteString("ending. trailing words continue here beyond the limit")

	got := makeExcerpt(b.String(), 300)
	if !strings.HasSuffix(got, "ending.") {
		t.Errorf("excerpt did not end on the sentence boundary: %q", got[len(got)-30:])
	}
}

func TestMakeExcerpt_EllipsisWhenNoLateBoundary(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "word"
	}
	got := makeExcerpt(strings.Join(words, " "), 300)

	if !strings.HasSuffix(got, "...") {
		t.Error("excerpt without a late sentence boundary must end with an ellipsis")
	}
	if len(strings.Fields(got)) > 301 {
		t.Errorf("excerpt longer than the word limit: %d words", len(strings.Fields(got)))
	}
}

func TestArticleTitle_Deterministic(t *testing.T) {
	first := articleTitle("galaxy s25", 2026)
	for i := 0; i < 5; i++ {
		if got := articleTitle("galaxy s25", 2026); got != first {
			t.Fatalf("title varied across calls: %q != %q", got, first)
		}
	}
	if !strings.Contains(strings.ToLower(first), "galaxy s25") {
		t.Errorf("title %q does not carry the keyword", first)
	}
}

func TestCallToAction_IncludesPrice(t *testing.T) {
	got := callToAction("galaxy s25", "Samsung Galaxy S25", "KSh 120,000")
	if !strings.Contains(got, "Samsung Galaxy S25") {
		t.Error("call to action missing the product name")
	}
	if !strings.Contains(got, "Starting at KSh 120,000.") {
		t.Error("call to action missing the price")
	}

	noPrice := callToAction("galaxy s25", "Samsung Galaxy S25", "")
	if strings.Contains(noPrice, "Starting at") {
		t.Error("price line present without a price")
	}
}

func TestStructureArticle_Sections(t *testing.T) {
	body := "Intro paragraph.\n\nFeatures paragraph.\n\nAnalysis one.\n\nAnalysis two."
	got := structureArticle(body, "galaxy s25", "Samsung Galaxy S25", "https://shop.example/galaxy-s25", "KSh 120,000")

	for _, want := range []string{
		"<h2>Introduction to galaxy s25</h2>",
		"<h2>Key Features and Benefits</h2>",
		"<h2>Detailed Analysis</h2>",
		"<h2>Our Recommendation: Samsung Galaxy S25</h2>",
		"<h2>Conclusion</h2>",
		"Current Price:",
		"https://shop.example/galaxy-s25",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("structured article missing %q", want)
		}
	}
}
