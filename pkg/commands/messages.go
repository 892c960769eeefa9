package commands

// Replies shown to the operator. They are part of the user-facing surface
// and kept in Italian.
const (
	msgAskUsername   = "👤 Inserisci username admin:"
	msgAskPassword   = "🔑 Inserisci password:"
	msgWrongUsername = "❌ Username errato! Riprova con /admin."
	msgWrongPassword = "❌ Password errata! Riprova con /admin."
	msgAccessGranted = "🔓 Accesso admin consentito!\nComandi disponibili:\n"
	msgAdminExit     = "🚪 Modalità admin disattivata."
	msgUnknownPrefix = "❓ Comando admin non riconosciuto. Comandi validi: "

	msgAddFormat = "❌ Formato errato. Usa: \n" +
		"/add_property \"Nome Proprietà\" Tipo Prezzo Località Telefono \"Servizi1,Servizi2\"\n\n" +
		"Esempio: /add_property \"Villa Bella\" B&B 120 Roma +390123456 \"WiFi,Piscina\"\n\n" +
		"Nota: Il nome della proprietà deve essere tra virgolette."
	msgInvalidPrice = "❌ Errore: Il prezzo deve essere un numero valido (es. 150.50)."
	msgAdded        = "✅ Proprietà '%s' aggiunta con ID %s."

	msgNoProperties   = "ℹ️ Nessuna proprietà nel database."
	msgPropertyHeader = "Elenco Proprietà:\n"
	msgPropertyLine   = "  • ID %s: %s (%s) a %s - %s - Status: %s\n"

	msgNoUsers    = "ℹ️ Nessun utente registrato nel database."
	msgUserHeader = "Elenco Utenti Registrati:\n"
	msgUserLine   = "  • Email: %s - Password: %s\n"

	msgDeleteFormat = "❌ Formato corretto: /delete_property <id>"
	msgDeleted      = "✅ Immobile '%s' (ID: %s) eliminato!"
	msgNotFound     = "❌ Immobile con ID %s non trovato."

	msgModifyFormat = "❌ Formato corretto: /modify_property <id> <campo> <valore>"
	msgModified     = "✅ Immobile '%s' (ID: %s) modificato: %s = %s"
	msgUnknownField = "❌ Campo '%s' non valido. Campi validi: name, type, price, location, phone, services, status."

	msgSaveFailed = "\n⚠️ Errore durante il salvataggio del database: %v"
)
