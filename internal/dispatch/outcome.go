package dispatch

// RawOutcome is what one network attempt produced: either a transport
// failure or a verbatim status code and body. The executor records it
// without interpretation; classification happens here.
type RawOutcome struct {
	NetworkErr error
	StatusCode int
	Body       []byte
}

// Action tells the failover loop what to do with an outcome.
type Action int

const (
	// ActionSuccess short-circuits everything and returns the body.
	ActionSuccess Action = iota

	// ActionRetryNetwork retries the same credential after a short backoff
	// (DNS, connect, timeout).
	ActionRetryNetwork

	// ActionRetryGateway retries the same credential after a longer backoff
	// (502/504: infrastructure hiccups, not credential problems).
	ActionRetryGateway

	// ActionRotate advances to the next credential in the pool
	// (401/403/429/402/500/503: the credential or tier is unusable right now).
	ActionRotate

	// ActionFatal stops the dispatch immediately. The request itself is
	// malformed; no credential can fix it.
	ActionFatal
)

func (a Action) String() string {
	switch a {
	case ActionSuccess:
		return "success"
	case ActionRetryNetwork:
		return "retry-network"
	case ActionRetryGateway:
		return "retry-gateway"
	case ActionRotate:
		return "rotate"
	case ActionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// 500 and 503 rotate while 502 and 504 retry in place.
var (
	rotateCodes  = map[int]bool{401: true, 402: true, 403: true, 429: true, 500: true, 503: true}
	gatewayCodes = map[int]bool{502: true, 504: true}
)

// Classify maps a raw outcome onto the retry/rotate/fatal decision table.
func Classify(outcome RawOutcome) Action {
	if outcome.NetworkErr != nil {
		return ActionRetryNetwork
	}

	switch {
	case outcome.StatusCode == 200:
		return ActionSuccess
	case rotateCodes[outcome.StatusCode]:
		return ActionRotate
	case gatewayCodes[outcome.StatusCode]:
		return ActionRetryGateway
	default:
		return ActionFatal
	}
}
