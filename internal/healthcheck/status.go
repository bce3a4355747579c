package healthcheck

import "time"

type Status struct {
	Reachable   bool      `json:"reachable"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}
