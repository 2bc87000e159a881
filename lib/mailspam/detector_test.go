package mailspam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/mail-spam/lib/spamcheck"
)

// servingStub scores a sequence as spam if it has "free" (index 2 in test tokenizer)
type servingStub struct {
	*httptest.Server
	calls  int32
	broken atomic.Bool
}

func newServingStub(t *testing.T) *servingStub {
	res := &servingStub{}
	res.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&res.calls, 1)
		if res.broken.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		req := struct {
			Instances [][]int `json:"instances"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Instances) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prob := 0.1
		if slices.Contains(req.Instances[0], 2) {
			prob = 0.9
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": [][]float64{{prob}}})
	}))
	t.Cleanup(res.Close)
	return res
}

func (s *servingStub) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

type langFunc func(text string) bool

func (f langFunc) IsTurkish(text string) bool { return f(text) }

var (
	englishModels = []string{ruleModelLabel, "email_detection/lightgbm.pkl (ML)",
		"email_detection/spam_classifier.keras (DL)", "ceas/lightgbm.pkl (CEAS ML)"}
	turkishModels = []string{ruleModelLabel, "email_detection/naive_bayes.pkl (Türkçe NB)"}
)

func newTestDetector(t *testing.T, cfg Config) (*Detector, *servingStub) {
	srv := newServingStub(t)
	reg, err := NewRegistry(RegistryParams{Dir: "testdata/models", ServingURL: srv.URL})
	require.NoError(t, err)
	return NewDetector(cfg, reg), srv
}

func TestDetector_Predict(t *testing.T) {
	d, _ := newTestDetector(t, Config{HistorySize: 10})

	tests := []struct {
		name     string
		req      spamcheck.Request
		verdict  string
		pipeline string
		models   []string
		votes    []bool
	}{
		{
			name:    "english spam",
			req:     spamcheck.Request{Content: "Free money now", Filter: "content"},
			verdict: "yes", pipeline: PipelineEnglish, models: englishModels,
			votes: []bool{true, true, true, true},
		},
		{
			name:    "english ham",
			req:     spamcheck.Request{Content: "meeting tomorrow morning", Filter: "Mail İçerik"},
			verdict: "no", pipeline: PipelineEnglish, models: englishModels,
			votes: []bool{false, false, false, false},
		},
		{
			name:    "short text outvoted by models",
			req:     spamcheck.Request{Title: "hi", Filter: "title"},
			verdict: "no", pipeline: PipelineEnglish, models: englishModels,
			votes: []bool{true, false, false, false},
		},
		{
			name:    "turkish tie is spam",
			req:     spamcheck.Request{Content: "ücretsiz toplantı yarın", Filter: "content"},
			verdict: "yes", pipeline: PipelineTurkish, models: turkishModels,
			votes: []bool{true, false},
		},
		{
			name:    "turkish ham",
			req:     spamcheck.Request{URL: "yarın toplantı var mı", Filter: "Mail Url"},
			verdict: "no", pipeline: PipelineTurkish, models: turkishModels,
			votes: []bool{false, false},
		},
		{
			name:    "turkish spam",
			req:     spamcheck.Request{Title: "Para kazandınız", Filter: "Mail Başlık"},
			verdict: "yes", pipeline: PipelineTurkish, models: turkishModels,
			votes: []bool{true, true},
		},
		{
			name:    "turkish session",
			req:     spamcheck.Request{Content: "meeting tomorrow", Filter: "content", Language: "tr"},
			verdict: "no", pipeline: PipelineTurkish, models: turkishModels,
			votes: []bool{false, false},
		},
		{
			name:    "title selected",
			req:     spamcheck.Request{Title: "free money", Content: "meeting tomorrow", Filter: "title"},
			verdict: "yes", pipeline: PipelineEnglish, models: englishModels,
			votes: []bool{true, true, true, true},
		},
		{
			name:    "all parts joined",
			req:     spamcheck.Request{Title: "meeting", Content: "tomorrow at", URL: "yarın", Filter: "Bütün Mail"},
			verdict: "no", pipeline: PipelineTurkish, models: turkishModels,
			votes: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Predict(context.Background(), tt.req)
			assert.Equal(t, tt.verdict, res.Verdict)
			assert.Equal(t, tt.verdict == spamcheck.VerdictSpam, res.Spam)
			assert.Equal(t, tt.pipeline, res.Pipeline)
			assert.Equal(t, tt.models, res.Models)
			require.Len(t, res.Checks, len(tt.votes))
			for i, v := range tt.votes {
				assert.Equal(t, v, res.Checks[i].Spam, "vote %d, %s", i, res.Checks[i].String())
			}
			assert.Equal(t, ruleLabel, res.Checks[0].Name)
		})
	}

	last := d.LastResults(100)
	require.Len(t, last, 9)
	assert.Equal(t, "yarın", last[8].Request.URL)
	assert.Equal(t, "no", last[8].Result.Verdict)
	assert.Equal(t, "Free money now", last[0].Request.Content)
}

func TestDetector_PredictDetails(t *testing.T) {
	d, _ := newTestDetector(t, Config{})
	res := d.Predict(context.Background(), spamcheck.Request{Content: "free money", Filter: "content"})
	require.Len(t, res.Checks, 4)
	assert.Equal(t, []string{"rule_based", "email_ml", "email_dl", "ceas_ml"},
		[]string{res.Checks[0].Name, res.Checks[1].Name, res.Checks[2].Name, res.Checks[3].Name})
	assert.Equal(t, `keyword "free"`, res.Checks[0].Details)
	assert.Equal(t, "probability of spam: 88.08%", res.Checks[1].Details)
	assert.Equal(t, "probability of spam: 90.00%", res.Checks[2].Details)
}

func TestDetector_PredictUnknownFilter(t *testing.T) {
	d, srv := newTestDetector(t, Config{})
	res := d.Predict(context.Background(), spamcheck.Request{Content: "free money", Filter: "Mail Body"})
	assert.Equal(t, spamcheck.Result{Spam: false, Verdict: "no", Models: []string{}, Checks: []spamcheck.Response{}}, res)
	assert.Equal(t, 0, srv.Calls())
	assert.Empty(t, d.LastResults(10))
}

func TestDetector_PredictModelFailure(t *testing.T) {
	t.Run("serving error keeps earlier votes", func(t *testing.T) {
		d, srv := newTestDetector(t, Config{CacheTTL: time.Minute, CacheSize: 10})
		srv.broken.Store(true)
		req := spamcheck.Request{Content: "free meeting", Filter: "content"}

		res := d.Predict(context.Background(), req)
		assert.Equal(t, "yes", res.Verdict)
		assert.Equal(t, englishModels[:2], res.Models)
		assert.Len(t, res.Checks, 2)
		assert.Equal(t, 1, srv.Calls())

		// failed results are not cached
		srv.broken.Store(false)
		res = d.Predict(context.Background(), req)
		assert.Equal(t, englishModels, res.Models)
		assert.Equal(t, 2, srv.Calls())
	})

	t.Run("ham with failed sequence model", func(t *testing.T) {
		reg, err := NewRegistry(RegistryParams{Dir: "testdata/models"})
		require.NoError(t, err)
		d := NewDetector(Config{}, reg)
		res := d.Predict(context.Background(), spamcheck.Request{Content: "meeting tomorrow", Filter: "content"})
		assert.Equal(t, "no", res.Verdict)
		assert.Equal(t, englishModels[:2], res.Models)
	})

	t.Run("first model missing, rule vote only", func(t *testing.T) {
		reg, err := NewRegistry(RegistryParams{Dir: t.TempDir()})
		require.NoError(t, err)
		d := NewDetector(Config{}, reg)

		res := d.Predict(context.Background(), spamcheck.Request{Content: "meeting tomorrow", Filter: "content"})
		assert.Equal(t, "no", res.Verdict)
		assert.Equal(t, []string{ruleModelLabel}, res.Models)

		res = d.Predict(context.Background(), spamcheck.Request{Content: "yarın ödül", Filter: "content"})
		assert.Equal(t, "yes", res.Verdict)
		assert.Equal(t, PipelineTurkish, res.Pipeline)
		assert.Equal(t, []string{ruleModelLabel}, res.Models)
	})
}

func TestDetector_VerdictCache(t *testing.T) {
	d, srv := newTestDetector(t, Config{CacheTTL: time.Minute, CacheSize: 10, HistorySize: 10})
	ctx := context.Background()
	req := spamcheck.Request{Content: "meeting tomorrow", Filter: "content"}

	res1 := d.Predict(ctx, req)
	assert.Equal(t, 1, srv.Calls())
	res2 := d.Predict(ctx, req)
	assert.Equal(t, 1, srv.Calls(), "cached")
	assert.Equal(t, res1, res2)

	// same text selected by another filter hits the same entry
	d.Predict(ctx, spamcheck.Request{Title: "meeting tomorrow", Filter: "title"})
	assert.Equal(t, 1, srv.Calls())

	// same text in turkish pipeline is a different entry
	res3 := d.Predict(ctx, spamcheck.Request{Content: "meeting tomorrow", Filter: "content", Language: "tr"})
	assert.Equal(t, PipelineTurkish, res3.Pipeline)

	d.ResetCache()
	d.Predict(ctx, req)
	assert.Equal(t, 2, srv.Calls())
	assert.Len(t, d.LastResults(10), 5, "cached results are recorded too")

	t.Run("no cache", func(t *testing.T) {
		d, srv := newTestDetector(t, Config{})
		d.Predict(ctx, req)
		d.Predict(ctx, req)
		assert.Equal(t, 2, srv.Calls())
		d.ResetCache()
	})
}

func TestDetector_LangDetector(t *testing.T) {
	var checked []string
	lang := langFunc(func(text string) bool {
		checked = append(checked, text)
		return text == "merhaba nasilsin bedava"
	})
	d, _ := newTestDetector(t, Config{LangDetector: lang})

	res := d.Predict(context.Background(), spamcheck.Request{Content: "merhaba nasilsin bedava", Filter: "content"})
	assert.Equal(t, PipelineTurkish, res.Pipeline)
	assert.Equal(t, "yes", res.Verdict)

	res = d.Predict(context.Background(), spamcheck.Request{Content: "meeting tomorrow", Filter: "content"})
	assert.Equal(t, PipelineEnglish, res.Pipeline)

	res = d.Predict(context.Background(), spamcheck.Request{Content: "yarın toplantı", Filter: "content"})
	assert.Equal(t, PipelineTurkish, res.Pipeline)
	assert.Equal(t, []string{"merhaba nasilsin bedava", "meeting tomorrow"}, checked, "diacritics checked first")
}

func TestDetector_Concurrent(t *testing.T) {
	d, _ := newTestDetector(t, Config{CacheTTL: time.Minute, CacheSize: 100, HistorySize: 5})
	texts := []string{"free money now", "meeting tomorrow", "yarın toplantı", "para kazandınız"}
	exp := []string{"yes", "no", "no", "yes"}

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := d.Predict(context.Background(), spamcheck.Request{Content: texts[i%4], Filter: "content"})
			assert.Equal(t, exp[i%4], res.Verdict, texts[i%4])
		}(i)
	}
	wg.Wait()
	assert.Len(t, d.LastResults(10), 5)
}
