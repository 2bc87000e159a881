package mailspam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/fileutils"
	"github.com/hashicorp/go-multierror"
)

// Estimator predicts spam from features
type Estimator interface {
	Predict(x Features) (spam bool, prob float64)
}

// MLModel is a feature-based model with its vectorizer
type MLModel struct {
	Estimator  Estimator
	Vectorizer *Vectorizer
}

// Predict vectorizes text and runs estimator
func (m *MLModel) Predict(text string) (spam bool, prob float64) {
	return m.Estimator.Predict(m.Vectorizer.Transform(text))
}

// DLModel is a sequence model with its tokenizer
type DLModel struct {
	Tokenizer *Tokenizer
	Scorer    SequenceScorer
	MaxLen    int
}

// Predict tokenizes and pads text, returns true if the scored probability is above 0.5
func (m *DLModel) Predict(ctx context.Context, text string) (spam bool, prob float64, err error) {
	seq := padSequence(m.Tokenizer.Sequence(text), m.MaxLen)
	if prob, err = m.Scorer.Score(ctx, seq); err != nil {
		return false, 0, fmt.Errorf("can't score sequence, %w", err)
	}
	return prob > 0.5, prob, nil
}

// Registry loads model artifacts from models directory on first use and keeps them for the life of the process.
// Loaded models are immutable, Invalidate drops them all to force reload. Thread-safe.
type Registry struct {
	RegistryParams
	manifest Manifest
	cache    map[string]any
	lock     sync.Mutex
}

// RegistryParams defines models location and sequence models serving defaults
type RegistryParams struct {
	Dir        string        // models directory, one sub-directory per dataset
	ServingURL string        // serving api for sequence models not listed in manifest
	HTTPClient HTTPClient    // http client for serving api
	Retries    int           // serving api attempts
	RetryDelay time.Duration // delay between attempts
}

// NewRegistry makes registry for models directory, reads optional manifest
func NewRegistry(params RegistryParams) (*Registry, error) {
	if !fileutils.IsDir(params.Dir) {
		return nil, fmt.Errorf("models directory %q not found", params.Dir)
	}
	manifest, err := LoadManifest(params.Dir)
	if err != nil {
		return nil, err
	}
	return &Registry{RegistryParams: params, manifest: manifest, cache: map[string]any{}}, nil
}

// LoadML returns feature-based model from <dir>/<folder>/<model>.json with folder's vectorizer, cached by ml_<folder>_<model>
func (r *Registry) LoadML(_ context.Context, folder, model string) (*MLModel, error) {
	key := fmt.Sprintf("ml_%s_%s", folder, model)

	r.lock.Lock()
	defer r.lock.Unlock()
	if v, ok := r.cache[key]; ok {
		return v.(*MLModel), nil
	}

	est, err := r.loadEstimator(filepath.Join(r.Dir, folder, model+".json"))
	if err != nil {
		return nil, err
	}
	vec, err := r.loadVectorizer(filepath.Join(r.Dir, folder, r.manifest.Vectorizer))
	if err != nil {
		return nil, err
	}

	res := &MLModel{Estimator: est, Vectorizer: vec}
	r.cache[key] = res
	log.Printf("[INFO] model %s loaded", key)
	return res, nil
}

// LoadDL returns sequence model for folder, tokenizer from <dir>/<folder>/<tokenizer>, cached by dl_<folder>
func (r *Registry) LoadDL(_ context.Context, folder string) (*DLModel, error) {
	key := "dl_" + folder

	r.lock.Lock()
	defer r.lock.Unlock()
	if v, ok := r.cache[key]; ok {
		return v.(*DLModel), nil
	}

	sm, ok := r.manifest.Sequence[folder]
	if !ok {
		sm = SequenceModel{URL: r.ServingURL, Name: "spam_classifier", MaxLen: defaultSeqLen,
			Retries: r.Retries, RetryDelay: r.RetryDelay}
	}
	if sm.URL == "" {
		return nil, fmt.Errorf("no serving url for sequence model in %s", folder)
	}

	tokPath := filepath.Join(r.Dir, folder, r.manifest.Tokenizer)
	fh, err := openArtifact(tokPath)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	tok, err := LoadTokenizer(fh)
	if err != nil {
		return nil, fmt.Errorf("can't load tokenizer %s, %w", tokPath, err)
	}

	res := &DLModel{
		Tokenizer: tok,
		MaxLen:    sm.MaxLen,
		Scorer: &ServingClient{URL: sm.URL, Model: sm.Name, HTTPClient: r.HTTPClient,
			Retries: sm.Retries, RetryDelay: sm.RetryDelay},
	}
	r.cache[key] = res
	log.Printf("[INFO] model %s loaded, served by %s/%s", key, sm.URL, sm.Name)
	return res, nil
}

// Preload loads all models used by pipelines, returns all errors combined
func (r *Registry) Preload(ctx context.Context) error {
	errs := new(multierror.Error)
	for _, p := range pipelines {
		for _, st := range p.steps {
			var err error
			if st.kind == stepDL {
				_, err = r.LoadDL(ctx, st.folder)
			} else {
				_, err = r.LoadML(ctx, st.folder, st.model)
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", st.label, err))
			}
		}
	}
	return errs.ErrorOrNil()
}

// Invalidate drops all loaded models
func (r *Registry) Invalidate() {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.cache) > 0 {
		log.Printf("[INFO] invalidate %d loaded models", len(r.cache))
	}
	r.cache = map[string]any{}
}

// Keys returns sorted keys of loaded models
func (r *Registry) Keys() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	res := make([]string, 0, len(r.cache))
	for k := range r.cache {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func (r *Registry) loadEstimator(path string) (Estimator, error) {
	data, err := os.ReadFile(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return nil, fmt.Errorf("can't read model %s, %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err = json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("can't decode model %s, %w", path, err)
	}
	switch {
	case probe["tree_info"] != nil:
		m, e := loadGBDT(bytes.NewReader(data))
		if e != nil {
			return nil, fmt.Errorf("can't load %s, %w", path, e)
		}
		return m, nil
	case probe["feature_log_prob"] != nil:
		m, e := loadNaiveBayes(bytes.NewReader(data))
		if e != nil {
			return nil, fmt.Errorf("can't load %s, %w", path, e)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown model format in %s", path)
}

func (r *Registry) loadVectorizer(path string) (*Vectorizer, error) {
	fh, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	vec, err := LoadVectorizer(fh)
	if err != nil {
		return nil, fmt.Errorf("can't load vectorizer %s, %w", path, err)
	}
	return vec, nil
}

func openArtifact(path string) (*os.File, error) {
	if !fileutils.IsFile(path) {
		return nil, fmt.Errorf("artifact %s not found", path)
	}
	fh, err := os.Open(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return nil, fmt.Errorf("can't open %s, %w", path, err)
	}
	return fh, nil
}
