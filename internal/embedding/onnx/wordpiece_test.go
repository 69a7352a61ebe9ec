package onnx

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var testVocab = []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "the", "cafe", "is", "open", ".", "un", "##believ", "##able", "!"}

func writeVocab(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(testVocab, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadVocab_idsFollowLineNumbers(t *testing.T) {
	wp, err := LoadVocab(writeVocab(t))
	if err != nil {
		t.Fatal(err)
	}
	if wp.cls != 2 || wp.sep != 3 || wp.unk != 1 {
		t.Errorf("special ids cls=%d sep=%d unk=%d", wp.cls, wp.sep, wp.unk)
	}
}

func TestLoadVocab_missingSpecialToken(t *testing.T) {
	if _, err := NewWordPiece(map[string]int64{"[CLS]": 0, "[SEP]": 1}); err == nil {
		t.Fatal("expected error without [UNK]")
	}
}

func TestEncode_lowercasesStripsAccentsAndSplitsPieces(t *testing.T) {
	wp, err := LoadVocab(writeVocab(t))
	if err != nil {
		t.Fatal(err)
	}
	got := wp.Encode("The Café is OPEN. Unbelievable! zebra")
	want := []int64{4, 5, 6, 7, 8, 9, 10, 11, 12, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}
}

func TestTokenize_wrapsPadsAndTruncates(t *testing.T) {
	wp, err := LoadVocab(writeVocab(t))
	if err != nil {
		t.Fatal(err)
	}
	ids, mask, types := wp.Tokenize("the cafe", 6)
	if want := []int64{2, 4, 5, 3, 0, 0}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if want := []int64{1, 1, 1, 1, 0, 0}; !reflect.DeepEqual(mask, want) {
		t.Errorf("mask = %v, want %v", mask, want)
	}
	if len(types) != 6 {
		t.Errorf("token types len = %d", len(types))
	}

	ids, mask, _ = wp.Tokenize("the cafe is open .", 4)
	if want := []int64{2, 4, 5, 3}; !reflect.DeepEqual(ids, want) {
		t.Errorf("truncated ids = %v, want %v", ids, want)
	}
	if mask[3] != 1 {
		t.Error("[SEP] must stay attended after truncation")
	}
}

func TestMeanPool_ignoresPaddingAndNormalises(t *testing.T) {
	hidden := []float32{
		1, 0,
		3, 0,
		100, 100, // padding
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("meanPool = %v, want [1 0]", got)
	}
	if z := meanPool(hidden, []int64{0, 0, 0}, 2); z[0] != 0 || z[1] != 0 {
		t.Errorf("empty mask should give zero vector, got %v", z)
	}
}
