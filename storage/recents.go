package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// TouchRecent inserts or refreshes a connection-history row.
//
// A non-empty password is stored only as a bcrypt hash; an empty password
// leaves any previously stored hash untouched.
func (s *Store) TouchRecent(rec RecentConnection, password string) error {
	if rec.PeerID == "" {
		return errors.New("peer_id is required")
	}
	if rec.LastConnected == 0 {
		rec.LastConnected = nowUnixMilli()
	}

	passwordHash := ""
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for peer %q: %w", rec.PeerID, err)
		}
		passwordHash = string(hash)
	}

	_, err := s.db.Exec(
		`INSERT INTO recent_connections (
			peer_id, username, hostname, alias, platform, online, password_hash, last_connected
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET
			username       = excluded.username,
			hostname       = excluded.hostname,
			alias          = excluded.alias,
			platform       = excluded.platform,
			online         = excluded.online,
			password_hash  = CASE WHEN excluded.password_hash = '' THEN password_hash ELSE excluded.password_hash END,
			last_connected = excluded.last_connected`,
		rec.PeerID,
		rec.Username,
		rec.Hostname,
		rec.Alias,
		rec.Platform,
		boolToInt(rec.Online),
		passwordHash,
		rec.LastConnected,
	)
	if err != nil {
		return fmt.Errorf("upsert recent connection %q: %w", rec.PeerID, err)
	}

	return nil
}

// GetRecent fetches one connection-history row by peer ID.
func (s *Store) GetRecent(peerID string) (*RecentConnection, error) {
	row := s.db.QueryRow(
		`SELECT peer_id, username, hostname, alias, platform, online, password_hash, last_connected
		FROM recent_connections
		WHERE peer_id = ?`,
		peerID,
	)

	rec, err := scanRecent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get recent connection %q: %w", peerID, err)
	}

	return rec, nil
}

// ListRecents returns connection history, most recent first.
func (s *Store) ListRecents() ([]RecentConnection, error) {
	rows, err := s.db.Query(
		`SELECT peer_id, username, hostname, alias, platform, online, password_hash, last_connected
		FROM recent_connections
		ORDER BY last_connected DESC, peer_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent connections: %w", err)
	}
	defer rows.Close()

	recents := make([]RecentConnection, 0)
	for rows.Next() {
		rec, err := scanRecent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recent connection row: %w", err)
		}
		recents = append(recents, *rec)
	}

	return recents, rows.Err()
}

// RemoveRecent deletes one connection-history row.
func (s *Store) RemoveRecent(peerID string) error {
	result, err := s.db.Exec(`DELETE FROM recent_connections WHERE peer_id = ?`, peerID)
	if err != nil {
		return fmt.Errorf("remove recent connection %q: %w", peerID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove recent connection %q: %w", peerID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyRecentPassword checks a candidate password against the stored hash.
//
// A peer without a stored hash never verifies.
func (s *Store) VerifyRecentPassword(peerID, password string) (bool, error) {
	rec, err := s.GetRecent(peerID)
	if err != nil {
		return false, err
	}
	if rec.PasswordHash == "" {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("verify password for peer %q: %w", peerID, err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecent(row rowScanner) (*RecentConnection, error) {
	var rec RecentConnection
	var online int
	if err := row.Scan(
		&rec.PeerID,
		&rec.Username,
		&rec.Hostname,
		&rec.Alias,
		&rec.Platform,
		&online,
		&rec.PasswordHash,
		&rec.LastConnected,
	); err != nil {
		return nil, err
	}
	rec.Online = online != 0
	return &rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
