package peers

import (
	"context"
	"encoding/json"
	"fmt"

	"deskport/discovery"
	"deskport/models"
	"deskport/storage"
)

// payloadPeer is the wire shape serialized sources emit for one peer entry.
type payloadPeer struct {
	ID       string   `json:"id"`
	Username string   `json:"username,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
	Alias    string   `json:"alias,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Online   bool     `json:"online,omitempty"`
}

type payloadEnvelope struct {
	Peers []payloadPeer `json:"peers"`
}

// RecentConnectionsSource serves connection history as a serialized payload.
type RecentConnectionsSource struct {
	Store *storage.Store
}

func (s *RecentConnectionsSource) Name() string { return "recent-connections" }

func (s *RecentConnectionsSource) Payload(ctx context.Context) ([]byte, error) {
	recents, err := s.Store.ListRecents()
	if err != nil {
		return nil, err
	}

	entries := make([]payloadPeer, 0, len(recents))
	for _, rec := range recents {
		entries = append(entries, payloadPeer{
			ID:       rec.PeerID,
			Username: rec.Username,
			Hostname: rec.Hostname,
			Alias:    rec.Alias,
			Platform: rec.Platform,
			Online:   rec.Online,
		})
	}

	payload, err := json.Marshal(payloadEnvelope{Peers: entries})
	if err != nil {
		return nil, fmt.Errorf("encode recent connections payload: %w", err)
	}
	return payload, nil
}

// LANSource serves the mDNS scanner snapshot as a serialized payload.
type LANSource struct {
	Scanner *discovery.PeerScanner
}

func (s *LANSource) Name() string { return "lan" }

func (s *LANSource) Payload(ctx context.Context) ([]byte, error) {
	discovered := s.Scanner.ListPeers()

	entries := make([]payloadPeer, 0, len(discovered))
	for _, peer := range discovered {
		entries = append(entries, payloadPeer{
			ID:       peer.ID,
			Username: peer.Username,
			Hostname: peer.Hostname,
			Platform: peer.Platform,
			Online:   true,
		})
	}

	payload, err := json.Marshal(payloadEnvelope{Peers: entries})
	if err != nil {
		return nil, fmt.Errorf("encode LAN peers payload: %w", err)
	}
	return payload, nil
}

// AddressBookDirectory serves user-curated address-book records.
type AddressBookDirectory struct {
	Store *storage.Store
}

func (d *AddressBookDirectory) Name() string { return "address-book" }

func (d *AddressBookDirectory) Records(ctx context.Context) ([]models.Peer, error) {
	return d.Store.ListAddressBook()
}

// GroupDirectory serves directory-group records, copy-on-read.
type GroupDirectory struct {
	Store *storage.Store
}

func (d *GroupDirectory) Name() string { return "group" }

func (d *GroupDirectory) Records(ctx context.Context) ([]models.Peer, error) {
	return d.Store.ListGroupPeers()
}
