// Package pricing asks the text-generation collaborator for nightly price
// recommendations of a property.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/providers"
)

var ErrNoJSON = errors.New("no JSON object in reply")

// MarketData describes the local market around a property.
// SeasonalPrice and SeasonModifier are set when the period comes from the
// season calendar.
type MarketData struct {
	AveragePrice     float64  `json:"average_price"`
	AverageOccupancy int      `json:"average_occupancy"`
	Season           string   `json:"season"`
	SeasonModifier   int      `json:"season_modifier,omitempty"`
	SeasonalPrice    float64  `json:"seasonal_price,omitempty"`
	LocalEvents      []string `json:"local_events"`
}

// Recommendation is three price points with the collaborator's rationale.
// Error is set instead when the recommendation could not be produced.
type Recommendation struct {
	LowPrice    float64 `json:"low_price"`
	MediumPrice float64 `json:"medium_price"`
	HighPrice   float64 `json:"high_price"`
	Reasons     string  `json:"reasons"`
	Error       string  `json:"error,omitempty"`
}

func (r Recommendation) OK() bool {
	return r.Error == ""
}

type Recommender struct {
	provider providers.LLMProvider
	model    string
}

func NewRecommender(provider providers.LLMProvider, model string) *Recommender {
	if model == "" && provider != nil {
		model = provider.GetDefaultModel()
	}
	return &Recommender{provider: provider, model: model}
}

// DefaultMarket derives market defaults from the property itself: the area
// average is 10% above its price and occupancy is 70%.
func DefaultMarket(p catalog.Property) MarketData {
	return MarketData{
		AveragePrice:     p.Price * 1.1,
		AverageOccupancy: 70,
		Season:           "Media Stagione",
	}
}

func (r *Recommender) Recommend(ctx context.Context, p catalog.Property, market MarketData) Recommendation {
	if r.provider == nil {
		return Recommendation{Error: "il modello AI non è disponibile"}
	}

	messages := []providers.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(p, market)},
	}
	resp, err := r.provider.Chat(ctx, messages, r.model, map[string]any{"temperature": 0.2})
	if err != nil {
		logger.WarnCF("pricing", "Recommendation request failed", map[string]any{
			"property": p.ID,
			"error":    err.Error(),
		})
		return Recommendation{Error: err.Error()}
	}

	rec, err := parseRecommendation(resp.Content)
	if err != nil {
		logger.WarnCF("pricing", "Unparseable recommendation", map[string]any{
			"property": p.ID,
			"error":    err.Error(),
		})
		return Recommendation{Error: err.Error()}
	}
	return rec
}

const systemPrompt = "Sei un esperto di revenue management per affitti brevi. " +
	"Rispondi solo con un oggetto JSON con le chiavi low_price, medium_price, high_price (numeri, euro a notte) e reasons (testo in italiano)."

func buildPrompt(p catalog.Property, m MarketData) string {
	var sb strings.Builder
	sb.WriteString("Immobile:\n")
	fmt.Fprintf(&sb, "- Nome: %s\n- Tipo: %s\n- Località: %s\n", p.Name, p.Type, p.Location)
	fmt.Fprintf(&sb, "- Prezzo attuale: %.2f €\n", p.Price)
	if len(p.Services) > 0 {
		fmt.Fprintf(&sb, "- Servizi: %s\n", strings.Join(p.Services, ", "))
	}
	sb.WriteString("\nDati di mercato:\n")
	fmt.Fprintf(&sb, "- Prezzo medio di zona: %.2f €\n", m.AveragePrice)
	fmt.Fprintf(&sb, "- Occupazione media di zona: %d%%\n", m.AverageOccupancy)
	if m.Season != "" {
		fmt.Fprintf(&sb, "- Periodo: %s\n", m.Season)
	}
	if m.SeasonalPrice > 0 {
		fmt.Fprintf(&sb, "- Prezzo di listino stagionale: %.2f € (%+d%%)\n", m.SeasonalPrice, m.SeasonModifier)
	}
	if len(m.LocalEvents) > 0 {
		fmt.Fprintf(&sb, "- Eventi locali: %s\n", strings.Join(m.LocalEvents, ", "))
	}
	sb.WriteString("\nSuggerisci un prezzo basso, medio e alto per notte.")
	return sb.String()
}

// parseRecommendation extracts the first JSON object of reply, ignoring any
// surrounding prose or markdown code fences.
func parseRecommendation(reply string) (Recommendation, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Recommendation{}, ErrNoJSON
	}

	var rec Recommendation
	if err := json.Unmarshal([]byte(reply[start:end+1]), &rec); err != nil {
		return Recommendation{}, fmt.Errorf("decoding recommendation: %w", err)
	}
	rec.Error = ""
	if rec.LowPrice <= 0 || rec.MediumPrice <= 0 || rec.HighPrice <= 0 {
		return Recommendation{}, errors.New("recommendation is missing a price")
	}
	return rec, nil
}
