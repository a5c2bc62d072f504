package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"deskport/models"
)

// UpsertAddressBookPeer inserts or replaces an address-book entry.
func (s *Store) UpsertAddressBookPeer(peer models.Peer) error {
	if peer.ID == "" {
		return errors.New("peer id is required")
	}

	tags := peer.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags for peer %q: %w", peer.ID, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO address_book (
			peer_id, username, hostname, alias, platform, tags, online, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET
			username = excluded.username,
			hostname = excluded.hostname,
			alias    = excluded.alias,
			platform = excluded.platform,
			tags     = excluded.tags,
			online   = excluded.online`,
		peer.ID,
		peer.Username,
		peer.Hostname,
		peer.Alias,
		peer.Platform,
		string(tagsJSON),
		boolToInt(peer.Online),
		nowUnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert address book peer %q: %w", peer.ID, err)
	}

	return nil
}

// ListAddressBook returns all address-book entries in insertion order.
func (s *Store) ListAddressBook() ([]models.Peer, error) {
	rows, err := s.db.Query(
		`SELECT peer_id, username, hostname, alias, platform, tags, online
		FROM address_book
		ORDER BY added_at, peer_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list address book: %w", err)
	}
	defer rows.Close()

	peers := make([]models.Peer, 0)
	for rows.Next() {
		var peer models.Peer
		var tagsJSON string
		var online int
		if err := rows.Scan(
			&peer.ID,
			&peer.Username,
			&peer.Hostname,
			&peer.Alias,
			&peer.Platform,
			&tagsJSON,
			&online,
		); err != nil {
			return nil, fmt.Errorf("scan address book row: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &peer.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for peer %q: %w", peer.ID, err)
		}
		peer.Online = online != 0
		peers = append(peers, peer)
	}

	return peers, rows.Err()
}

// RemoveAddressBookPeer deletes one address-book entry.
func (s *Store) RemoveAddressBookPeer(peerID string) error {
	result, err := s.db.Exec(`DELETE FROM address_book WHERE peer_id = ?`, peerID)
	if err != nil {
		return fmt.Errorf("remove address book peer %q: %w", peerID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove address book peer %q: %w", peerID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertGroup inserts or renames a peer group.
func (s *Store) UpsertGroup(group Group) error {
	if group.GroupID == "" {
		return errors.New("group_id is required")
	}
	if group.Name == "" {
		return errors.New("group name is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO peer_groups (group_id, name) VALUES (?, ?)
		ON CONFLICT(group_id) DO UPDATE SET name = excluded.name`,
		group.GroupID,
		group.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert group %q: %w", group.GroupID, err)
	}
	return nil
}

// AddGroupMember inserts or replaces one member of a group.
func (s *Store) AddGroupMember(groupID string, peer models.Peer) error {
	if groupID == "" {
		return errors.New("group_id is required")
	}
	if peer.ID == "" {
		return errors.New("peer id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO group_members (
			group_id, peer_id, username, hostname, platform, online, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, peer_id) DO UPDATE SET
			username = excluded.username,
			hostname = excluded.hostname,
			platform = excluded.platform,
			online   = excluded.online`,
		groupID,
		peer.ID,
		peer.Username,
		peer.Hostname,
		peer.Platform,
		boolToInt(peer.Online),
		nowUnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("add member %q to group %q: %w", peer.ID, groupID, err)
	}
	return nil
}

// ListGroupPeers returns all group members across groups, ordered by group
// name then insertion order within each group.
func (s *Store) ListGroupPeers() ([]models.Peer, error) {
	rows, err := s.db.Query(
		`SELECT m.peer_id, m.username, m.hostname, m.platform, m.online
		FROM group_members m
		JOIN peer_groups g ON g.group_id = m.group_id
		ORDER BY g.name, g.group_id, m.added_at, m.peer_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list group peers: %w", err)
	}
	defer rows.Close()

	peers := make([]models.Peer, 0)
	for rows.Next() {
		var peer models.Peer
		var online int
		if err := rows.Scan(
			&peer.ID,
			&peer.Username,
			&peer.Hostname,
			&peer.Platform,
			&online,
		); err != nil {
			return nil, fmt.Errorf("scan group member row: %w", err)
		}
		peer.Online = online != 0
		peers = append(peers, peer)
	}

	return peers, rows.Err()
}
