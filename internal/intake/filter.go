package intake

import "strings"

// Acceptance thresholds for spool messages.
const (
	minBodyWords   = 5
	minKeywordHits = 2
)

// incidentKeywords signal an operational problem. A message must hit at
// least minKeywordHits distinct entries to be triaged.
var incidentKeywords = []string{
	"error", "failure", "issue", "problem", "down", "stuck", "timeout",
	"urgent", "critical", "broken", "cannot", "unable", "delay", "reject",
}

// courtesyReplies are bare acknowledgement bodies that never describe an
// incident, regardless of length.
var courtesyReplies = map[string]struct{}{
	"yes":       {},
	"no":        {},
	"ok":        {},
	"okay":      {},
	"thanks":    {},
	"thank you": {},
	"got it":    {},
	"noted":     {},
	"received":  {},
	"hello":     {},
	"hi":        {},
	"bye":       {},
	"sure":      {},
	"fine":      {},
}

// Reject reports whether the message should be dropped before analysis,
// with a short reason for the log. Reply threads, courtesy
// acknowledgements and messages without incident vocabulary are spool
// noise, not reports.
func Reject(msg Message) (string, bool) {
	subject := strings.ToLower(strings.TrimSpace(msg.Subject))
	for _, prefix := range []string{"re:", "fwd:", "fw:"} {
		if strings.HasPrefix(subject, prefix) {
			return "reply subject", true
		}
	}

	body := strings.TrimSpace(msg.Body)
	if _, ok := courtesyReplies[normalizeReply(body)]; ok {
		return "courtesy reply", true
	}
	if len(strings.Fields(body)) < minBodyWords {
		return "body too short", true
	}

	if keywordHits(subject+" "+strings.ToLower(body)) < minKeywordHits {
		return "no incident signal", true
	}
	return "", false
}

// keywordHits counts distinct incident keywords present in text, which
// must already be lowercased. Substring matching on purpose: "errors"
// and "delays" still count.
func keywordHits(text string) int {
	hits := 0
	for _, kw := range incidentKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

// normalizeReply canonicalizes a short body for the courtesy lookup:
// lowercased, punctuation stripped, whitespace collapsed.
func normalizeReply(body string) string {
	trimmed := strings.TrimFunc(strings.ToLower(body), func(r rune) bool {
		return r == '!' || r == '.' || r == ',' || r == ' '
	})
	return strings.Join(strings.Fields(trimmed), " ")
}
