package concierge

import (
	"fmt"
	"strings"

	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/providers"
	"github.com/ciaohost/concierge/pkg/session"
)

const persona = `Sei un esperto di gestione immobiliare dell'azienda chiamata CiaoHost, devi offrire supporto ai clienti e hai queste capacità:
1. Analizzare dati di mercato e generare report
2. Creare contratti d'affitto/vendita personalizzati
3. Calcolare ROI, Tasso Capitalizzazione e metriche finanziarie
4. Generare descrizioni accattivanti per annunci immobiliari
5. Rispondere a domande tecniche su normative e pratiche notarili
Se ti domandano chi sei o cosa fai, rispondi che sei CiaoHost AI, costruito da CiaoHost. Non ripeterlo se non te lo chiedono.
Quando ti viene chiesto di un immobile indica se è disponibile o meno, senza mai citare l'ID dell'immobile.

Formatta le risposte con:
- Liste puntate per i concetti chiave
- Tabelle comparative quando utile
- Evidenziazione termini tecnici (es. *cap rate*)`

const noProperties = "Nessuna proprietà nel database."

// PropertySummary lists every property of the catalog in the form given to
// the collaborator.
func PropertySummary(props []catalog.Property) string {
	if len(props) == 0 {
		return noProperties
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d proprietà nel database:\n", len(props))
	for _, p := range props {
		fmt.Fprintf(&sb, "- ID %s: %s (%s) a %s\n", p.ID, orNA(p.Name), orNA(p.Type), orNA(p.Location))
	}
	return sb.String()
}

// BuildMessages assembles the collaborator request: the persona and the
// property summary as system context, then the recent history.
func BuildMessages(props []catalog.Property, history []session.Message) []providers.Message {
	msgs := make([]providers.Message, 0, len(history)+1)
	msgs = append(msgs, providers.Message{
		Role:    "system",
		Content: persona + "\n\n" + PropertySummary(props),
	})
	for _, m := range history {
		role := "assistant"
		if m.Role == session.RoleUser {
			role = "user"
		}
		msgs = append(msgs, providers.Message{Role: role, Content: m.Content})
	}
	return msgs
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
