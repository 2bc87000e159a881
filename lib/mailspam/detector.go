package mailspam

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/umputun/mail-spam/lib/spamcheck"
)

// names of votes and human-readable labels of models reported to the user
const (
	ruleLabel      = "rule_based"
	ruleModelLabel = "rule_based_check (kural tabanlı)"
)

type stepKind int

const (
	stepML stepKind = iota
	stepDL
)

// step is a single model run of a pipeline
type step struct {
	name   string // vote name
	label  string // human-readable model name
	kind   stepKind
	folder string
	model  string
}

// pipeline is a list of models voting together with the rule check
type pipeline struct {
	name  string
	steps []step
}

// PipelineTurkish and PipelineEnglish are names of supported pipelines
const (
	PipelineTurkish = "turkish"
	PipelineEnglish = "english"
)

var pipelines = map[string]pipeline{
	PipelineTurkish: {name: PipelineTurkish, steps: []step{
		{name: "turkish_nb", label: "email_detection/naive_bayes.pkl (Türkçe NB)", kind: stepML,
			folder: "email_detection", model: "naive_bayes"},
	}},
	PipelineEnglish: {name: PipelineEnglish, steps: []step{
		{name: "email_ml", label: "email_detection/lightgbm.pkl (ML)", kind: stepML,
			folder: "email_detection", model: "lightgbm"},
		{name: "email_dl", label: "email_detection/spam_classifier.keras (DL)", kind: stepDL,
			folder: "email_detection"},
		{name: "ceas_ml", label: "ceas/lightgbm.pkl (CEAS ML)", kind: stepML,
			folder: "ceas", model: "lightgbm"},
	}},
}

// ModelLoader provides models by dataset folder, implemented by Registry
type ModelLoader interface {
	LoadML(ctx context.Context, folder, model string) (*MLModel, error)
	LoadDL(ctx context.Context, folder string) (*DLModel, error)
}

// Detector classifies mails by majority vote of the rule check and models of the language pipeline.
// Thread-safe.
type Detector struct {
	Config
	loader   ModelLoader
	verdicts cache.Cache[string, spamcheck.Result]
	recent   *spamcheck.LastResults
}

// Config is a set of parameters for Detector.
type Config struct {
	CacheTTL     time.Duration    // ttl of cached verdicts, caching disabled if 0
	CacheSize    int              // max number of cached verdicts
	HistorySize  int              // number of recent checks kept in memory
	LangDetector LanguageDetector // optional statistical detector for turkish texts without diacritics
}

// NewDetector makes a new Detector with the given config and model loader
func NewDetector(cfg Config, loader ModelLoader) *Detector {
	res := &Detector{Config: cfg, loader: loader, recent: spamcheck.NewLastResults(cfg.HistorySize)}
	if cfg.CacheTTL > 0 {
		res.verdicts = cache.NewCache[string, spamcheck.Result]().WithTTL(cfg.CacheTTL).WithMaxKeys(cfg.CacheSize).WithLRU()
	}
	return res
}

// Predict checks the text selected by request filter and returns the majority decision.
// Rule check vote is always included, ties are spam. Model failures are logged and the decision
// is made on votes collected before the failure. Unknown filter returns ham with no models.
func (d *Detector) Predict(ctx context.Context, req spamcheck.Request) spamcheck.Result {
	text, ok := req.Text()
	if !ok {
		log.Printf("[WARN] unknown filter %q", req.Filter)
		return spamcheck.Result{Spam: false, Verdict: spamcheck.VerdictHam, Models: []string{}, Checks: []spamcheck.Response{}}
	}

	pl := pipelines[PipelineEnglish]
	if d.isTurkish(text) || req.Language == "tr" {
		pl = pipelines[PipelineTurkish]
	}

	key := fmt.Sprintf("%x", sha256.Sum256([]byte(pl.name+"\x00"+text)))
	if d.verdicts != nil {
		if res, found := d.verdicts.Get(key); found {
			d.remember(req, res)
			return res
		}
	}

	checks := []spamcheck.Response{RuleCheck(text)}
	models := []string{ruleModelLabel}
	failed := false
	for _, st := range pl.steps {
		resp, err := d.run(ctx, st, text)
		if err != nil {
			log.Printf("[WARN] model %s failed, %v", st.label, err)
			failed = true
			break
		}
		checks = append(checks, resp)
		models = append(models, st.label)
	}

	spamVotes := 0
	for _, c := range checks {
		if c.Spam {
			spamVotes++
		}
	}
	isSpam := 2*spamVotes >= len(checks)
	res := spamcheck.Result{Spam: isSpam, Verdict: spamcheck.VerdictHam, Pipeline: pl.name, Models: models, Checks: checks}
	if isSpam {
		res.Verdict = spamcheck.VerdictSpam
	}
	log.Printf("[DEBUG] %s: %s, pipeline %s, %s", req.String(), res.Verdict, pl.name, spamcheck.ChecksToString(checks))

	if d.verdicts != nil && !failed {
		d.verdicts.Set(key, res, 0)
	}
	d.remember(req, res)
	return res
}

// LastResults returns up to n recent checks, oldest first
func (d *Detector) LastResults(n int) []spamcheck.Entry {
	return d.recent.Last(n)
}

// ResetCache drops all cached verdicts, called on models reload
func (d *Detector) ResetCache() {
	if d.verdicts != nil {
		d.verdicts.Purge()
	}
}

func (d *Detector) remember(req spamcheck.Request, res spamcheck.Result) {
	d.recent.Push(spamcheck.Entry{Request: req, Result: res, Timestamp: time.Now()})
}

func (d *Detector) isTurkish(text string) bool {
	if IsTurkish(text) {
		return true
	}
	return d.LangDetector != nil && d.LangDetector.IsTurkish(text)
}

// run makes a vote of a single pipeline step
func (d *Detector) run(ctx context.Context, st step, text string) (spamcheck.Response, error) {
	switch st.kind {
	case stepDL:
		m, err := d.loader.LoadDL(ctx, st.folder)
		if err != nil {
			return spamcheck.Response{}, fmt.Errorf("can't load model, %w", err)
		}
		spam, prob, err := m.Predict(ctx, text)
		if err != nil {
			return spamcheck.Response{}, err
		}
		return spamcheck.Response{Name: st.name, Spam: spam, Details: fmt.Sprintf("probability of spam: %.2f%%", prob*100)}, nil
	default:
		m, err := d.loader.LoadML(ctx, st.folder, st.model)
		if err != nil {
			return spamcheck.Response{}, fmt.Errorf("can't load model, %w", err)
		}
		spam, prob := m.Predict(text)
		return spamcheck.Response{Name: st.name, Spam: spam, Details: fmt.Sprintf("probability of spam: %.2f%%", prob*100)}, nil
	}
}
