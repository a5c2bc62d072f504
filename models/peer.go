package models

// Peer is the canonical reconciled view of a remote endpoint.
type Peer struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Hostname string   `json:"hostname"`
	Alias    string   `json:"alias"`
	Platform string   `json:"platform"`
	Tags     []string `json:"tags"`
	Online   bool     `json:"online"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (p Peer) Clone() Peer {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return out
}
