package portal

import "strings"

// Kind classifies the raw result of one action-endpoint call.
type Kind int

const (
	// Success is a remote-confirmed mutation (JSON status true).
	Success Kind = iota
	// Refused is a business-level rejection carrying the remote message.
	Refused
	// SessionExpired means the endpoint answered with something other than
	// JSON, which the portal does when the login session is dead.
	SessionExpired
	// NetworkError covers transport failures and timeouts.
	NetworkError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Refused:
		return "refused"
	case SessionExpired:
		return "session_expired"
	case NetworkError:
		return "network_error"
	}
	return "unknown"
}

type Outcome struct {
	Kind    Kind
	Message string
}

// Disposition is what a refusal message means for task state.
type Disposition int

const (
	// DispositionOther leaves the task status untouched.
	DispositionOther Disposition = iota
	// DispositionAlreadyReserved: the date is already booked by this
	// identity, so the intent is effectively satisfied.
	DispositionAlreadyReserved
	// DispositionCapacityFull: no slots left; keep sniping.
	DispositionCapacityFull
)

type phraseRule struct {
	substr string
	disp   Disposition
}

// The portal has no machine-readable code for these cases; it localizes its
// refusal text, so the rules cover the Czech and English phrasings seen in
// the wild. Already-reserved rules run before capacity rules.
var phraseRules = []phraseRule{
	{"již bylo uživatelem rezervováno", DispositionAlreadyReserved},
	{"already reserved", DispositionAlreadyReserved},
	{"kapacita", DispositionCapacityFull},
	{"full", DispositionCapacityFull},
}

// ClassifyRefusal matches a refusal message against the known phrasings,
// case-insensitively. Unknown wording maps to DispositionOther.
func ClassifyRefusal(msg string) Disposition {
	m := strings.ToLower(msg)
	for _, r := range phraseRules {
		if strings.Contains(m, r.substr) {
			return r.disp
		}
	}
	return DispositionOther
}
