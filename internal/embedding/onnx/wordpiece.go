package onnx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxWordRunes = 100

// WordPiece is the uncased BERT tokenizer used by the MiniLM sentence models.
type WordPiece struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
}

// LoadVocab reads a vocab.txt file, one token per line, line number = id.
func LoadVocab(path string) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewWordPiece(vocab)
}

// NewWordPiece builds a tokenizer from an in-memory vocabulary, which must
// contain [CLS], [SEP] and [UNK].
func NewWordPiece(vocab map[string]int64) (*WordPiece, error) {
	w := &WordPiece{vocab: vocab}
	for tok, dst := range map[string]*int64{"[CLS]": &w.cls, "[SEP]": &w.sep, "[UNK]": &w.unk} {
		id, ok := vocab[tok]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no %s token", tok)
		}
		*dst = id
	}
	return w, nil
}

// Tokenize returns input_ids, attention_mask and token_type_ids padded to
// maxTokens, wrapped in [CLS] ... [SEP]. Longer input is truncated.
func (w *WordPiece) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	ids := w.Encode(text)
	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs[0] = w.cls
	copy(inputIDs[1:], ids)
	inputIDs[len(ids)+1] = w.sep
	for i := 0; i < len(ids)+2; i++ {
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// Encode maps text to vocabulary ids without special tokens.
func (w *WordPiece) Encode(text string) []int64 {
	var ids []int64
	for _, word := range basicTokens(text) {
		ids = append(ids, w.pieces(word)...)
	}
	return ids
}

// pieces splits one word by greedy longest match, continuation pieces
// prefixed with "##".
func (w *WordPiece) pieces(word string) []int64 {
	rs := []rune(word)
	if len(rs) > maxWordRunes {
		return []int64{w.unk}
	}
	var out []int64
	for start := 0; start < len(rs); {
		end := len(rs)
		found := int64(-1)
		for ; end > start; end-- {
			sub := string(rs[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.vocab[sub]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int64{w.unk}
		}
		out = append(out, found)
		start = end
	}
	return out
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// basicTokens lowercases, strips accents and splits on whitespace,
// punctuation and CJK characters.
func basicTokens(text string) []string {
	if s, _, err := transform.String(stripAccents, strings.ToLower(text)); err == nil {
		text = s
	}
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
			continue
		case unicode.IsSpace(r):
			flush()
		case isPunct(r) || unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
