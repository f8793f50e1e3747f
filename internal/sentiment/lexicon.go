package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Lexicon scores French financial text against hand-built term sets with
// Moroccan geopolitical context. It is deterministic and needs no network,
// which makes it the fallback when the LLM path fails.
type Lexicon struct{}

// NewLexicon creates the lexicon analyzer
func NewLexicon() *Lexicon {
	return &Lexicon{}
}

func (l *Lexicon) Name() string { return "lexicon" }

// ScoreArticle scores the concatenation of title and summary. Never errors.
func (l *Lexicon) ScoreArticle(_ context.Context, title, summary string) (Result, error) {
	return l.Analyze(strings.TrimSpace(title + " " + summary)), nil
}

// Analyze scores a single text
func (l *Lexicon) Analyze(text string) Result {
	words := tokenize(cleanText(text))
	if len(words) == 0 {
		return Result{Score: 0, Label: LabelNeutral, Confidence: 0}
	}

	pos, neg := scoreWords(words)

	polarity := 0.0
	if pos+neg > 0 {
		polarity = (pos - neg) / (pos + neg)
	}

	confidence := math.Min(1.0, math.Abs(pos-neg)/float64(len(words))*2)

	return Result{
		Score:      polarity,
		Label:      LabelFor(polarity),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("lexicon: pos=%.1f neg=%.1f over %d tokens", pos, neg, len(words)),
	}
}

const contextWindow = 5

// scoreWords walks the token stream accumulating positive and negative
// weight. Unigram hits weigh 1; bigram phrase hits weigh 1.5. A negator in
// the previous token flips the hit, an intensifier scales it by 1.5,
// Moroccan context within the window scales it by 1.3, and a resolution
// word within the window turns a negative hit into a 1.5x positive one
// ("résoudre le conflit" is bullish).
func scoreWords(words []string) (pos, neg float64) {
	for i, word := range words {
		base := 1.0
		negated := i > 0 && intensifiersAndNegators(words[i-1], &base)

		lo := max(0, i-contextWindow)
		hi := min(len(words), i+contextWindow+1)
		window := words[lo:hi]
		resolution := windowHas(window, resolutionWords)
		morocco := windowHasMorocco(window)

		if morocco {
			base *= 1.3
		}

		if positiveWords[word] {
			if negated {
				neg += base
			} else {
				pos += base
			}
		} else if negativeWords[word] {
			switch {
			case negated:
				pos += base
			case resolution:
				pos += base * 1.5
			default:
				neg += base
			}
		}

		if i+1 >= len(words) {
			continue
		}
		bigram := word + " " + words[i+1]
		phraseWeight := base * 1.5

		if positivePhrases[bigram] || positiveWords[bigram] {
			pos += phraseWeight
		} else if negativePhrases[bigram] || negativeWords[bigram] {
			if resolution {
				pos += phraseWeight * 1.5
			} else {
				neg += phraseWeight
			}
		}
	}
	return pos, neg
}

// intensifiersAndNegators inspects the previous token: an intensifier
// scales base in place, a negator reports true.
func intensifiersAndNegators(prev string, base *float64) bool {
	if intensifiers[prev] {
		*base *= 1.5
	}
	return negators[prev]
}

// cleanText lowercases and strips punctuation, keeping French accents
func cleanText(text string) string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// tokenize keeps words longer than two runes
func tokenize(text string) []string {
	fields := strings.Fields(text)
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			words = append(words, f)
		}
	}
	return words
}

func windowHas(window []string, set map[string]bool) bool {
	for _, w := range window {
		if set[w] {
			return true
		}
	}
	return false
}

func windowHasMorocco(window []string) bool {
	for _, w := range window {
		if moroccoContext[w] {
			return true
		}
	}
	joined := strings.Join(window, " ")
	for phrase := range moroccoContextPhrases {
		if strings.Contains(joined, phrase) {
			return true
		}
	}
	return false
}
