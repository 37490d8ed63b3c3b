// Package transcript extracts spoken-language metrics from an interview
// transcript: disfluencies, pace, vocabulary, sentence structure and a
// composite communication score.
package transcript

import (
	"strings"
	"unicode"

	"interview-backend/internal/shared/config"
)

// Pace rating bands.
const (
	PaceTooSlow      = "too_slow"
	PaceSlightlySlow = "slightly_slow"
	PaceOptimal      = "optimal"
	PaceSlightlyFast = "slightly_fast"
	PaceTooFast      = "too_fast"
)

// Sentence structure rating bands.
const (
	SentencesChoppy  = "choppy"
	SentencesGood    = "good"
	SentencesLong    = "long"
	SentencesTooLong = "too_long"
)

// fillerVocabulary is the fixed disfluency vocabulary, longest phrases
// first so multi-word fillers win over their prefixes.
var fillerVocabulary = [][]string{
	{"at", "the", "end", "of", "the", "day"},
	{"sort", "of", "like"},
	{"kind", "of", "like"},
	{"you", "know"},
	{"sort", "of"},
	{"kind", "of"},
	{"um"}, {"uh"}, {"umm"}, {"uhh"}, {"er"}, {"erm"}, {"ah"}, {"hmm"},
	{"like"}, {"basically"}, {"actually"}, {"literally"}, {"right"},
}

// SentenceLengths reports words per sentence.
type SentenceLengths struct {
	Avg    float64 `json:"avg"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Rating string  `json:"rating"`
}

// Metrics is the full spoken-language summary for one transcript.
type Metrics struct {
	WordCount          int            `json:"wordCount"`
	FillerTotal        int            `json:"fillerWordTotal"`
	FillerPct          float64        `json:"fillerPercentage"`
	MostFrequentFiller string         `json:"mostFrequentFiller"`
	FillerCounts       map[string]int `json:"fillerCounts"`

	WordsPerMinute float64 `json:"wordsPerMinute"`
	PaceRating     string  `json:"paceRating"`

	DiversityRatio  float64 `json:"vocabularyDiversityRatio"`
	UniqueWordCount int     `json:"uniqueWordCount"`
	DiversityGood   bool    `json:"vocabularyDiversityGood"`

	Sentences SentenceLengths `json:"sentenceLength"`

	Score float64 `json:"communicationScore"`
	Grade string  `json:"grade"`
}

// Analyzer computes transcript metrics with configurable scoring bands.
type Analyzer struct {
	cfg config.TranscriptTuning
}

// NewAnalyzer builds an analyzer.
func NewAnalyzer(cfg config.TranscriptTuning) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze computes all metrics for a transcript of the given spoken
// duration. An empty transcript yields a well-formed zero Metrics.
func (a *Analyzer) Analyze(text string, durationSeconds float64) Metrics {
	words := tokenize(text)

	m := Metrics{
		WordCount:    len(words),
		FillerCounts: map[string]int{},
	}
	if len(words) == 0 {
		m.PaceRating = PaceTooSlow
		m.Sentences.Rating = SentencesChoppy
		m.Score = 0
		m.Grade = grade(0)
		return m
	}

	a.countFillers(words, &m)
	a.ratePace(len(words), durationSeconds, &m)
	a.rateVocabulary(words, &m)
	rateSentences(text, &m)

	m.Score = a.score(m)
	m.Grade = grade(m.Score)
	return m
}

func (a *Analyzer) countFillers(words []string, m *Metrics) {
	for i := 0; i < len(words); {
		matched := 0
		for _, phrase := range fillerVocabulary {
			if matchesAt(words, i, phrase) {
				key := strings.Join(phrase, " ")
				m.FillerCounts[key]++
				m.FillerTotal++
				matched = len(phrase)
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}

	m.FillerPct = float64(m.FillerTotal) / float64(len(words)) * 100

	best := 0
	for filler, n := range m.FillerCounts {
		if n > best || (n == best && filler < m.MostFrequentFiller) {
			best = n
			m.MostFrequentFiller = filler
		}
	}
}

func (a *Analyzer) ratePace(wordCount int, durationSeconds float64, m *Metrics) {
	if durationSeconds <= 0 {
		m.PaceRating = PaceTooFast
		return
	}
	m.WordsPerMinute = float64(wordCount) / (durationSeconds / 60)
	switch wpm := m.WordsPerMinute; {
	case wpm < 110:
		m.PaceRating = PaceTooSlow
	case wpm < 125:
		m.PaceRating = PaceSlightlySlow
	case wpm <= 150:
		m.PaceRating = PaceOptimal
	case wpm <= 165:
		m.PaceRating = PaceSlightlyFast
	default:
		m.PaceRating = PaceTooFast
	}
}

func (a *Analyzer) rateVocabulary(words []string, m *Metrics) {
	unique := map[string]struct{}{}
	for _, w := range words {
		unique[w] = struct{}{}
	}
	m.UniqueWordCount = len(unique)
	m.DiversityRatio = float64(len(unique)) / float64(len(words))
	m.DiversityGood = m.DiversityRatio > a.cfg.DiversityGoodRatio
}

func rateSentences(text string, m *Metrics) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		m.Sentences.Rating = SentencesChoppy
		return
	}

	total := 0
	m.Sentences.Min = -1
	for _, s := range sentences {
		n := len(tokenize(s))
		if n == 0 {
			continue
		}
		total += n
		if m.Sentences.Min == -1 || n < m.Sentences.Min {
			m.Sentences.Min = n
		}
		if n > m.Sentences.Max {
			m.Sentences.Max = n
		}
	}
	if m.Sentences.Min == -1 {
		m.Sentences.Min = 0
		m.Sentences.Rating = SentencesChoppy
		return
	}
	m.Sentences.Avg = float64(total) / float64(len(sentences))

	switch avg := m.Sentences.Avg; {
	case avg < 6:
		m.Sentences.Rating = SentencesChoppy
	case avg <= 20:
		m.Sentences.Rating = SentencesGood
	case avg <= 28:
		m.Sentences.Rating = SentencesLong
	default:
		m.Sentences.Rating = SentencesTooLong
	}
}

// score starts at 100 and applies bounded deductions for fillers above the
// benchmark, pace outside the optimal band and low vocabulary diversity.
func (a *Analyzer) score(m Metrics) float64 {
	score := 100.0
	cfg := a.cfg

	if m.FillerPct > cfg.FillerBenchmarkPct {
		deduction := (m.FillerPct - cfg.FillerBenchmarkPct) * 2.5
		if deduction > cfg.FillerDeductionCap {
			deduction = cfg.FillerDeductionCap
		}
		score -= deduction
	}

	var paceDeviation float64
	if m.WordsPerMinute < 125 {
		paceDeviation = 125 - m.WordsPerMinute
	} else if m.WordsPerMinute > 150 {
		paceDeviation = m.WordsPerMinute - 150
	}
	if paceDeviation > 0 {
		deduction := paceDeviation * 0.4
		if deduction > cfg.PaceDeductionCap {
			deduction = cfg.PaceDeductionCap
		}
		score -= deduction
	}

	if m.DiversityRatio < cfg.DiversityGoodRatio {
		deduction := (cfg.DiversityGoodRatio - m.DiversityRatio) * 100 * 0.6
		if deduction > cfg.DiversityDeductionCap {
			deduction = cfg.DiversityDeductionCap
		}
		score -= deduction
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Grade exposes the letter-grade bands for other score kinds.
func Grade(score float64) string { return grade(score) }

func matchesAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for j, p := range phrase {
		if words[i+j] != p {
			return false
		}
	}
	return true
}

// tokenize lowercases and strips punctuation, keeping word-internal
// apostrophes ("don't"). Single-letter tokens are transcription noise
// (stray "I", residue of clipped words) and are not counted as words.
func tokenize(text string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 1 {
			words = append(words, b.String())
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return sentences
}
