package setstore

// Set names the moderation detectors look up.
const (
	SetProfanity   = "profanity"
	SetSpamDomains = "spam-domains"
)

// Starter lexicon of milder terms which flag (never block) content. Production
// deployments extend or replace these via LoadFromFileJSON.
var defaultProfanity = []string{
	"damn",
	"hell",
	"crap",
	"ass",
	"bastard",
	"piss",
	"bullshit",
	"shit",
	"bitch",
}

var defaultSpamDomains = []string{
	"bit.ly",
	"tinyurl.com",
	"t.co",
	"goo.gl",
}

// NewDefaultSetStore returns a mem set store pre-populated with the starter
// word lists.
func NewDefaultSetStore() *MemSetStore {
	s := NewMemSetStore()
	s.AddToSet(SetProfanity, defaultProfanity)
	s.AddToSet(SetSpamDomains, defaultSpamDomains)
	return s
}
