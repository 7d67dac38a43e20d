package triage

// Canned safety advisories keyed by the symptom keyword that matched.
// Each keyword maps to exactly one fixed string; the wording is policy
// content, not medical advice the service claims correctness for.
var symptomReplies = map[string]string{
	"fever":      "If the fever is below 102°F, take Paracetamol and rest. If above 102°F or persistent, contact a healthcare provider.",
	"cough":      "For a mild cough, try warm drinks and honey. If severe or persistent >1 week, consult a doctor.",
	"cold":       "For a mild cold, steam inhalation and antihistamine (like cetirizine) can help.",
	"congestion": "For a mild cold, steam inhalation and antihistamine (like cetirizine) can help.",
	"pain":       "For mild pain, over-the-counter analgesics like ibuprofen (after food) can help; seek medical advice for persistent pain.",
}

const (
	// AppointmentReply invites the user into the booking flow.
	AppointmentReply = "Would you like to schedule an appointment? Use the 'Book Appointment' quick action or the panel on the right."

	// MoreDetailReply covers a Symptom classification whose keyword has no
	// table entry. It never falls through to the generation backend.
	MoreDetailReply = "Please provide more details."
)

// SymptomReply looks up the canned advisory for a matched keyword.
func SymptomReply(keyword string) string {
	if reply, ok := symptomReplies[keyword]; ok {
		return reply
	}
	return MoreDetailReply
}
