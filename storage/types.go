package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("storage: record not found")
)

// RecentConnection is the SQLite representation of one connection-history row.
type RecentConnection struct {
	PeerID        string
	Username      string
	Hostname      string
	Alias         string
	Platform      string
	Online        bool
	PasswordHash  string
	LastConnected int64
}

// Group is a directory group of peers shared with this device.
type Group struct {
	GroupID string
	Name    string
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
