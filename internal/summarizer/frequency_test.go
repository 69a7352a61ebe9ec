package summarizer

import (
	"strings"
	"testing"
)

func TestSummarize_picksFrequentSentencesInOrder(t *testing.T) {
	text := "Lighthouses guide ships. Cats sleep a lot.\nLighthouse keepers maintain lighthouses for ships. Tea is warm."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := "Lighthouses guide ships. Lighthouse keepers maintain lighthouses for ships."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSummarize_noSentencePunctuation(t *testing.T) {
	got, _ := NewFrequencySummarizer().Summarize("  just a heading\n", 3)
	if got != "just a heading" {
		t.Errorf("got %q", got)
	}
}

func TestSummarize_limitsSentences(t *testing.T) {
	text := strings.Repeat("Ships sail. ", 10)
	got, _ := NewFrequencySummarizer().Summarize(text, 3)
	if n := strings.Count(got, "."); n != 3 {
		t.Errorf("expected 3 sentences, got %d in %q", n, got)
	}
}
