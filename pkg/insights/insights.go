// Package insights asks the text-generation collaborator for an analysis of
// the property catalog.
package insights

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/providers"
)

var ErrUnavailable = errors.New("il modello AI non è disponibile")

// ReportKind selects the shape of a generated report.
type ReportKind string

const (
	ReportOverview  ReportKind = "overview"
	ReportDetailed  ReportKind = "detailed"
	ReportExecutive ReportKind = "executive"
)

func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ReportOverview, ReportDetailed, ReportExecutive:
		return k, nil
	}
	return "", fmt.Errorf("unknown report type %q (overview, detailed, executive)", s)
}

const (
	analystPrompt = "Sei un analista di dati esperto di affitti brevi. Rispondi in italiano, " +
		"in modo conciso, basandoti solo sul riepilogo fornito e con indicazioni operative."
	reporterPrompt = "Sei un esperto di data science che redige report professionali in italiano, chiari e orientati all'azione."

	insightsMaxTokens = 800
	reportMaxTokens   = 1500
)

var reportSections = map[ReportKind]string{
	ReportOverview: "Crea un report di sintesi del portafoglio con le sezioni:\n" +
		"1. Panoramica del portafoglio\n2. Problemi di qualità dei dati\n3. Tendenze principali\n4. Analisi consigliate",
	ReportDetailed: "Crea un report analitico dettagliato con le sezioni:\n" +
		"1. Struttura del portafoglio\n2. Qualità dei dati\n3. Distribuzione di prezzi e tipologie\n" +
		"4. Relazioni tra località, tipologia e prezzo\n5. Tendenze principali\n6. Limiti dei dati\n7. Raccomandazioni",
	ReportExecutive: "Crea un executive summary con le sezioni:\n" +
		"1. Sintesi (1-2 paragrafi)\n2. Metriche chiave\n3. Implicazioni per il business\n4. Azioni consigliate\n5. Prossimi passi",
}

type Analyst struct {
	provider providers.LLMProvider
	model    string
}

func NewAnalyst(provider providers.LLMProvider, model string) *Analyst {
	if model == "" && provider != nil {
		model = provider.GetDefaultModel()
	}
	return &Analyst{provider: provider, model: model}
}

// Insights analyzes summary, answering question when it is not empty.
func (a *Analyst) Insights(ctx context.Context, summary, question string) (string, error) {
	var prompt string
	if q := strings.TrimSpace(question); q != "" {
		prompt = fmt.Sprintf("Analizza questi dati e rispondi alla domanda: %s\n\nRiepilogo dei dati:\n%s", q, summary)
	} else {
		prompt = "Analizza questi dati ed evidenzia andamenti, anomalie e azioni concrete. " +
			"Mantieni l'analisi breve.\n\nRiepilogo dei dati:\n" + summary
	}
	return a.ask(ctx, analystPrompt, prompt, insightsMaxTokens)
}

// Report generates a structured report of the given kind over summary.
func (a *Analyst) Report(ctx context.Context, summary string, kind ReportKind) (string, error) {
	sections, ok := reportSections[kind]
	if !ok {
		return "", fmt.Errorf("unknown report type %q", kind)
	}
	prompt := sections + "\n\nRiepilogo dei dati:\n" + summary
	return a.ask(ctx, reporterPrompt, prompt, reportMaxTokens)
}

func (a *Analyst) ask(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if a.provider == nil {
		return "", ErrUnavailable
	}
	resp, err := a.provider.Chat(ctx, []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}, a.model, map[string]any{"max_tokens": maxTokens})
	if err != nil {
		logger.WarnCF("insights", "Insights request failed", map[string]any{"error": err.Error()})
		return "", fmt.Errorf("generating insights: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Summary describes the catalog for the collaborator: counts, price
// statistics and the most common values of each text field.
func Summary(cat *catalog.Catalog) string {
	props := cat.Properties()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Proprietà: %d (disponibili: %d). Utenti registrati: %d.\n",
		len(props), len(cat.Available()), cat.UserCount())
	if len(props) == 0 {
		return sb.String()
	}

	prices := make([]float64, 0, len(props))
	missingPhone := 0
	byType := map[string]int{}
	byLocation := map[string]int{}
	byStatus := map[string]int{}
	services := map[string]int{}
	for _, p := range props {
		prices = append(prices, p.Price)
		if strings.TrimSpace(p.Phone) == "" {
			missingPhone++
		}
		byType[orNA(p.Type)]++
		byLocation[orNA(p.Location)]++
		byStatus[orNA(p.Status)]++
		for _, s := range p.Services {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				services[s]++
			}
		}
	}

	lo, hi, mean := stats(prices)
	fmt.Fprintf(&sb, "Prezzo per notte: min=%s, max=%s, media=%s.\n",
		catalog.FormatPrice(lo), catalog.FormatPrice(hi), catalog.FormatPrice(mean))
	fmt.Fprintf(&sb, "Tipologie: %s.\n", topValues(byType, 5))
	fmt.Fprintf(&sb, "Località: %s.\n", topValues(byLocation, 5))
	fmt.Fprintf(&sb, "Stato: %s.\n", topValues(byStatus, 5))
	if len(services) > 0 {
		fmt.Fprintf(&sb, "Servizi più comuni: %s.\n", topValues(services, 5))
	}
	if missingPhone > 0 {
		fmt.Fprintf(&sb, "Proprietà senza telefono: %d.\n", missingPhone)
	}
	return sb.String()
}

func stats(values []float64) (lo, hi, mean float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	return lo, hi, sum / float64(len(values))
}

// topValues renders the n most frequent keys as "a (3), b (1)", ties broken
// alphabetically.
func topValues(counts map[string]int, n int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%d)", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
