package types

// Event is the canonical attribute-bag payload surfaced to RPC consumers and
// external monitoring.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
