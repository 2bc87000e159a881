package mailspam

import (
	"github.com/pemistahl/lingua-go"
)

// LanguageDetector detects turkish texts without turkish-specific letters, i.e. typed on a latin keyboard
type LanguageDetector interface {
	IsTurkish(text string) bool
}

// LinguaDetector is a statistical language detector limited to english and turkish
type LinguaDetector struct {
	detector      lingua.LanguageDetector
	minConfidence float64
}

// NewLinguaDetector makes detector, text is turkish if confidence is at least minConfidence (0.0 - 1.0).
// Language models are loaded eagerly, this takes a while and should be done once.
func NewLinguaDetector(minConfidence float64) *LinguaDetector {
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Turkish).
		WithPreloadedLanguageModels().
		Build()
	return &LinguaDetector{detector: d, minConfidence: minConfidence}
}

// IsTurkish returns true if turkish confidence reaches the threshold
func (l *LinguaDetector) IsTurkish(text string) bool {
	return l.detector.ComputeLanguageConfidence(text, lingua.Turkish) >= l.minConfidence
}
