package mailspam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/repeater"
)

//go:generate moq --out mocks/http_client.go --pkg mocks --skip-ensure --with-resets . HTTPClient
//go:generate moq --out mocks/sequence_scorer.go --pkg mocks --skip-ensure --with-resets . SequenceScorer

// defaultSeqLen is a sequence length the deep model was trained with
const defaultSeqLen = 150

// Tokenizer converts text to sequence of word indexes.
// It reads the json export of a fitted keras-style tokenizer (word_index, num_words, oov_token, filters).
type Tokenizer struct {
	WordIndex map[string]int
	NumWords  int
	OOVToken  string
	Filters   string
	Lower     bool
	Split     string
}

// LoadTokenizer reads tokenizer json, both plain config and {"class_name":..., "config":{...}} wrapper are accepted.
// word_index can be either json object or json-encoded string.
func LoadTokenizer(r io.Reader) (*Tokenizer, error) {
	var wrapper struct {
		Config json.RawMessage `json:"config"`
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("can't read tokenizer, %w", err)
	}
	if err = json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("can't decode tokenizer, %w", err)
	}
	if len(wrapper.Config) > 0 {
		data = wrapper.Config
	}

	cfg := struct {
		NumWords  *int            `json:"num_words"`
		Filters   *string         `json:"filters"`
		Lower     *bool           `json:"lower"`
		Split     *string         `json:"split"`
		OOVToken  *string         `json:"oov_token"`
		WordIndex json.RawMessage `json:"word_index"`
	}{}
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("can't decode tokenizer config, %w", err)
	}

	res := Tokenizer{Filters: "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n", Lower: true, Split: " "}
	if cfg.NumWords != nil {
		res.NumWords = *cfg.NumWords
	}
	if cfg.Filters != nil {
		res.Filters = *cfg.Filters
	}
	if cfg.Lower != nil {
		res.Lower = *cfg.Lower
	}
	if cfg.Split != nil && *cfg.Split != "" {
		res.Split = *cfg.Split
	}
	if cfg.OOVToken != nil {
		res.OOVToken = *cfg.OOVToken
	}

	if len(cfg.WordIndex) == 0 {
		return nil, errors.New("tokenizer has no word_index")
	}
	wordIndex := cfg.WordIndex
	var encoded string
	if err = json.Unmarshal(cfg.WordIndex, &encoded); err == nil {
		wordIndex = []byte(encoded)
	}
	if err = json.Unmarshal(wordIndex, &res.WordIndex); err != nil {
		return nil, fmt.Errorf("can't decode word_index, %w", err)
	}
	if len(res.WordIndex) == 0 {
		return nil, errors.New("tokenizer has empty word_index")
	}
	return &res, nil
}

// Sequence converts text to word indexes. Unknown words and words out of num_words
// are mapped to oov token index if the tokenizer has one, skipped otherwise.
func (t *Tokenizer) Sequence(text string) []int {
	if t.Lower {
		text = lowerText(text)
	}
	for _, r := range t.Filters {
		text = strings.ReplaceAll(text, string(r), t.Split)
	}

	oovIdx, hasOOV := 0, false
	if t.OOVToken != "" {
		oovIdx, hasOOV = t.WordIndex[t.OOVToken]
	}

	res := []int{}
	for _, w := range strings.Split(text, t.Split) {
		if w == "" {
			continue
		}
		idx, ok := t.WordIndex[w]
		switch {
		case ok && (t.NumWords == 0 || idx < t.NumWords):
			res = append(res, idx)
		case hasOOV:
			res = append(res, oovIdx)
		}
	}
	return res
}

// padSequence makes sequence of exactly maxLen elements, zeros prepended,
// longer sequences keep maxLen trailing elements
func padSequence(seq []int, maxLen int) []int {
	if len(seq) >= maxLen {
		return seq[len(seq)-maxLen:]
	}
	res := make([]int, maxLen)
	copy(res[maxLen-len(seq):], seq)
	return res
}

// SequenceScorer returns probability of spam for a padded sequence
type SequenceScorer interface {
	Score(ctx context.Context, seq []int) (float64, error)
}

// HTTPClient is an interface for http client, satisfied by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServingClient scores sequences with a model served by tensorflow-serving compatible REST API,
// POST <URL>/v1/models/<Model>:predict
type ServingClient struct {
	URL        string        // base url of serving api
	Model      string        // served model name
	HTTPClient HTTPClient    // http client to use, http.DefaultClient if nil
	Retries    int           // number of attempts, 1 if not set
	RetryDelay time.Duration // delay between attempts
}

// errBadRequest is returned by serving api for malformed input, not retried
var errBadRequest = errors.New("bad request")

// Score sends sequence to serving api and returns the first prediction value
func (s *ServingClient) Score(ctx context.Context, seq []int) (float64, error) {
	body, err := json.Marshal(struct {
		Instances [][]int `json:"instances"`
	}{Instances: [][]int{seq}})
	if err != nil {
		return 0, fmt.Errorf("can't marshal request, %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	reqURL := fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimSuffix(s.URL, "/"), s.Model)

	var prob float64
	retries := max(s.Retries, 1)
	err = repeater.NewDefault(retries, s.RetryDelay).Do(ctx, func() error {
		req, e := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if e != nil {
			return fmt.Errorf("can't make request, %w", e)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, e := client.Do(req)
		if e != nil {
			return fmt.Errorf("can't send request to %s, %w", reqURL, e)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("%w: status %d, %s", errBadRequest, resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
		}

		respData := struct {
			Predictions [][]float64 `json:"predictions"`
			Error       string      `json:"error"`
		}{}
		if e = json.NewDecoder(resp.Body).Decode(&respData); e != nil {
			return fmt.Errorf("can't decode response from %s, %w", reqURL, e)
		}
		if respData.Error != "" {
			return fmt.Errorf("serving error, %s", respData.Error)
		}
		if len(respData.Predictions) == 0 || len(respData.Predictions[0]) == 0 {
			return fmt.Errorf("empty predictions from %s", reqURL)
		}
		prob = respData.Predictions[0][0]
		return nil
	}, errBadRequest)
	if err != nil {
		return 0, err
	}
	return prob, nil
}
