package mailspam

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/fileutils"
	"gopkg.in/yaml.v3"
)

// manifestFile is an optional file in models directory with serving and artifact overrides
const manifestFile = "models.yml"

// Manifest describes where model artifacts are and how the sequence models are served.
// All fields are optional, defaults are the names of json artifacts: tf-idf vectorizer, naive bayes
// and lightgbm dumps, keras tokenizer.
type Manifest struct {
	Vectorizer string                   `yaml:"vectorizer"` // vectorizer file name in each folder
	Tokenizer  string                   `yaml:"tokenizer"`  // tokenizer file name in each folder
	Sequence   map[string]SequenceModel `yaml:"sequence"`   // sequence model settings by folder
}

// SequenceModel defines a remote sequence model for a folder
type SequenceModel struct {
	URL        string        `yaml:"url"`         // serving api base url
	Name       string        `yaml:"name"`        // served model name
	MaxLen     int           `yaml:"max_len"`     // sequence length
	Retries    int           `yaml:"retries"`     // request attempts
	RetryDelay time.Duration `yaml:"retry_delay"` // delay between attempts
}

// DefaultManifest returns manifest with default artifact names
func DefaultManifest() Manifest {
	return Manifest{
		Vectorizer: "tfidf_vectorizer.json",
		Tokenizer:  "tokenizer.json",
		Sequence:   map[string]SequenceModel{},
	}
}

// LoadManifest reads models.yml from models directory, returns defaults if the file doesn't exist
func LoadManifest(dir string) (Manifest, error) {
	res := DefaultManifest()
	path := filepath.Join(dir, manifestFile)
	if !fileutils.IsFile(path) {
		return res, nil
	}

	data, err := os.ReadFile(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return res, fmt.Errorf("can't read manifest %s, %w", path, err)
	}
	if err = yaml.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("can't parse manifest %s, %w", path, err)
	}

	if res.Vectorizer == "" {
		res.Vectorizer = DefaultManifest().Vectorizer
	}
	if res.Tokenizer == "" {
		res.Tokenizer = DefaultManifest().Tokenizer
	}
	if res.Sequence == nil {
		res.Sequence = map[string]SequenceModel{}
	}
	for folder, sm := range res.Sequence {
		if sm.MaxLen <= 0 {
			sm.MaxLen = defaultSeqLen
		}
		if sm.Name == "" {
			sm.Name = "spam_classifier"
		}
		res.Sequence[folder] = sm
	}
	return res, nil
}
