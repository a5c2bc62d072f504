package peers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"deskport/models"
)

// Source yields a serialized peer collection: a JSON object whose "peers" key
// holds either an array of peer objects or a JSON-encoded string of one.
type Source interface {
	Name() string
	Payload(ctx context.Context) ([]byte, error)
}

// Directory yields peer records already in canonical form.
type Directory interface {
	Name() string
	Records(ctx context.Context) ([]models.Peer, error)
}

// Aggregator reconciles peer records from several sources into one
// deduplicated collection keyed by peer id.
type Aggregator struct {
	sources     []Source
	directories []Directory
	logger      *log.Logger
}

// NewAggregator builds an aggregator over sources in precedence order.
// Serialized sources are merged first, then directories; within each list
// earlier entries win.
func NewAggregator(sources []Source, directories []Directory, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Aggregator{
		sources:     sources,
		directories: directories,
		logger:      logger,
	}
}

// Aggregate merges all sources under first-write-wins by peer id.
//
// Aggregation is best effort: a source whose payload cannot be decoded is
// skipped with a log line, malformed entries are dropped, and the result is
// whatever could be salvaged. Output order is first-seen order.
func (a *Aggregator) Aggregate(ctx context.Context) []models.Peer {
	seen := make(map[string]struct{})
	merged := make([]models.Peer, 0)

	insert := func(peer models.Peer) {
		if peer.ID == "" {
			return
		}
		if _, exists := seen[peer.ID]; exists {
			return
		}
		seen[peer.ID] = struct{}{}
		merged = append(merged, peer)
	}

	for _, source := range a.sources {
		payload, err := source.Payload(ctx)
		if err != nil {
			a.logger.Printf("peer source %q skipped: %v", source.Name(), err)
			continue
		}
		entries, err := decodePayload(payload)
		if err != nil {
			a.logger.Printf("peer source %q skipped: %v", source.Name(), err)
			continue
		}
		for _, entry := range entries {
			peer, ok := decodeEntry(entry)
			if !ok {
				continue
			}
			insert(peer)
		}
	}

	for _, directory := range a.directories {
		records, err := directory.Records(ctx)
		if err != nil {
			a.logger.Printf("peer directory %q skipped: %v", directory.Name(), err)
			continue
		}
		for _, record := range records {
			insert(record.Clone())
		}
	}

	return merged
}

// decodePayload unwraps a source payload down to its individual peer entries.
// The "peers" value may be doubly encoded (a JSON string holding the array).
func decodePayload(payload []byte) ([]json.RawMessage, error) {
	var envelope struct {
		Peers json.RawMessage `json:"peers"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	raw := envelope.Peers
	if len(raw) == 0 {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = []byte(encoded)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode peer list: %w", err)
	}
	return entries, nil
}

// decodeEntry normalizes one arbitrarily shaped peer entry to the canonical
// record. All tolerant-parsing decisions live here: missing optional fields
// default to empty or false, and an entry without an id is rejected.
func decodeEntry(raw json.RawMessage) (models.Peer, bool) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Peer{}, false
	}

	id := stringField(fields, "id")
	if id == "" {
		return models.Peer{}, false
	}

	return models.Peer{
		ID:       id,
		Username: stringField(fields, "username"),
		Hostname: stringField(fields, "hostname"),
		Alias:    stringField(fields, "alias"),
		Platform: stringField(fields, "platform"),
		Tags:     stringSliceField(fields, "tags"),
		Online:   boolField(fields, "online"),
	}, true
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return value
}

func stringSliceField(fields map[string]any, key string) []string {
	items, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item.(string); ok {
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func boolField(fields map[string]any, key string) bool {
	switch value := fields[key].(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		return value == "true" || value == "1"
	default:
		return false
	}
}
