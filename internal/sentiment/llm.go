package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

const systemPrompt = `Tu es un expert en analyse financière et économique spécialisé dans le marché boursier MAROCAIN.
Ta tâche est d'analyser le sentiment d'articles en français en tenant compte de ce qui est BÉNÉFIQUE pour le MAROC.

POSITIF POUR LE MAROC (score +0.5 à +1.0) :
- Reconnaissance internationale, soutien, appui au Maroc
- Investissements au Maroc, création d'emplois, projets de développement
- Accords économiques, partenariats, coopération favorable au Maroc
- Croissance économique, hausse du MASI, performance des entreprises marocaines
- Nouvelles positives sur le Sahara marocain : reconnaissance, soutien, autonomie
- Résolution de conflits, normalisation de relations diplomatiques

NÉGATIF POUR LE MAROC (score -1.0 à -0.5) :
- Sanctions, embargo, boycott contre le Maroc
- Perte d'investissements, fermetures d'entreprises, licenciements massifs
- Crise économique, récession, chute de la croissance
- Instabilité politique, tensions sociales, grèves
- Contestation de la souveraineté, tensions diplomatiques, gel de relations

NEUTRE (score -0.05 à +0.05) : articles factuels sans impact clair pour le Maroc.

Réponds UNIQUEMENT au format suivant (une ligne par élément):
SCORE: [nombre entre -1.0 et +1.0]
LABEL: [Very Negative|Negative|Neutral|Positive|Very Positive]
CONFIDENCE: [nombre entre 0.0 et 1.0]
REASONING: [explication courte en 1-2 phrases avec contexte marocain]`

// LLM scores articles with a chat model behind a Morocco-contextual
// system prompt. Construction requires a key; callers wrap it with the
// lexicon fallback via Service.
type LLM struct {
	client anthropic.Client
	model  string
	log    zerolog.Logger
}

// NewLLM creates the LLM analyzer
func NewLLM(apiKey, model string, log zerolog.Logger) *LLM {
	return &LLM{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		log:    log.With().Str("component", "sentiment-llm").Logger(),
	}
}

func (l *LLM) Name() string { return "llm" }

// ScoreArticle asks the model for a SCORE/LABEL/CONFIDENCE/REASONING block
// and parses it defensively: missing fields default to neutral values and
// the score is clamped to [-1, +1].
func (l *LLM) ScoreArticle(ctx context.Context, title, summary string) (Result, error) {
	text := title
	if summary != "" {
		text += "\n\n" + summary
	}

	prompt := fmt.Sprintf(`Analyse le sentiment de cet article en tenant compte de ce qui est BÉNÉFIQUE pour le MAROC :

"%s"

Fournis ton analyse au format demandé en expliquant pourquoi c'est positif, négatif ou neutre pour le Maroc.`, text)

	resp, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(l.model),
		MaxTokens:   200,
		Temperature: anthropic.Float(0.3),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm sentiment call: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return Result{}, fmt.Errorf("llm sentiment call: empty response")
	}

	result := parseResponse(b.String())
	l.log.Debug().
		Float64("score", result.Score).
		Str("label", result.Label).
		Str("title", truncateTitle(title)).
		Msg("LLM sentiment scored")
	return result, nil
}

// parseResponse extracts the four-field block. Unparseable fields keep
// their neutral defaults rather than failing the article.
func parseResponse(response string) Result {
	result := Result{
		Score:      0,
		Label:      LabelNeutral,
		Confidence: 0.5,
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SCORE:"):
			if v, err := strconv.ParseFloat(fieldValue(line), 64); err == nil {
				result.Score = clamp(v, -1, 1)
			}
		case strings.HasPrefix(line, "LABEL:"):
			if label := fieldValue(line); label != "" {
				result.Label = label
			}
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if v, err := strconv.ParseFloat(fieldValue(line), 64); err == nil {
				result.Confidence = clamp(v, 0, 1)
			}
		case strings.HasPrefix(line, "REASONING:"):
			result.Reasoning = fieldValue(line)
		}
	}

	return result
}

func fieldValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 50 {
		return title
	}
	return string(runes[:50]) + "..."
}
