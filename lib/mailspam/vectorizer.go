package mailspam

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
)

// Features is a sparse feature vector, feature index -> value. Missing index means zero.
type Features map[int]float64

// Vectorizer converts text to tf-idf features. It reads the exported state of a fitted
// tf-idf vectorizer and reproduces its default analyzer: lowercase, word tokens of 2+ runes, n-grams.
type Vectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Lowercase   bool           `json:"lowercase"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"` // "l2", "l1" or empty for no normalization
}

// LoadVectorizer reads vectorizer from json
func LoadVectorizer(r io.Reader) (*Vectorizer, error) {
	v := Vectorizer{Lowercase: true, NgramRange: [2]int{1, 1}, Norm: "l2"}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("can't decode vectorizer, %w", err)
	}
	if len(v.Vocabulary) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}
	if v.IDF != nil && len(v.IDF) < len(v.Vocabulary) {
		return nil, fmt.Errorf("idf size %d is smaller than vocabulary size %d", len(v.IDF), len(v.Vocabulary))
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || (v.IDF != nil && idx >= len(v.IDF)) {
			return nil, fmt.Errorf("invalid index %d for term %q", idx, term)
		}
	}
	if v.NgramRange[0] < 1 || v.NgramRange[1] < v.NgramRange[0] {
		return nil, fmt.Errorf("invalid ngram range %v", v.NgramRange)
	}
	return &v, nil
}

// Transform makes tf-idf features for the text
func (v *Vectorizer) Transform(text string) Features {
	res := Features{}
	for _, term := range v.analyze(text) {
		if idx, ok := v.Vocabulary[term]; ok {
			res[idx]++
		}
	}

	for idx, tf := range res {
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		if v.IDF != nil {
			tf *= v.IDF[idx]
		}
		res[idx] = tf
	}

	var norm float64
	switch v.Norm {
	case "l2":
		for _, val := range res {
			norm += val * val
		}
		norm = math.Sqrt(norm)
	case "l1":
		for _, val := range res {
			norm += math.Abs(val)
		}
	}
	if norm > 0 {
		for idx := range res {
			res[idx] /= norm
		}
	}
	return res
}

// analyze splits text to terms, including n-grams
func (v *Vectorizer) analyze(text string) []string {
	if v.Lowercase {
		text = lowerText(text)
	}
	tokens := wordTokens(text)
	minN, maxN := v.NgramRange[0], v.NgramRange[1]
	if minN == 1 && maxN == 1 {
		return tokens
	}

	terms := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// wordTokens returns runs of letters, numbers and underscores with at least two runes.
// Combining marks split words. Emoji are replaced by spaces before splitting, keycap emoji
// would be taken as digits otherwise.
func wordTokens(text string) []string {
	text = gomoji.ReplaceEmojisWith(text, ' ')
	isWord := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' }
	fields := strings.FieldsFunc(text, func(r rune) bool { return !isWord(r) })
	res := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			res = append(res, f)
		}
	}
	return res
}

// lowerText lowercases text with full case mapping for dotted capital I, "İ" becomes "i" followed by
// U+0307 combining dot. Vocabularies of fitted models are built from text lowercased this way.
func lowerText(text string) string {
	return strings.ToLower(strings.ReplaceAll(text, "\u0130", "i\u0307"))
}
