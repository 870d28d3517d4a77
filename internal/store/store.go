package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports that no document exists at the requested path.
	// Delete-like callers treat it as success; read paths surface it.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable reports that the backing store could not be reached.
	ErrUnavailable = errors.New("record store unavailable")
)

// Scope is the top-level segment of a path, used to address change feeds.
type Scope string

const (
	ScopeContracts     Scope = "contracts"
	ScopeAgenda        Scope = "agenda"
	ScopeNotifications Scope = "notifications"
	ScopeChats         Scope = "chats"
)

type ChangeOp string

const (
	OpSet    ChangeOp = "set"
	OpRemove ChangeOp = "remove"
)

// ChangeEvent is one observed mutation on a subscribed scope. Data carries
// the document as written for set operations and is empty for removals.
type ChangeEvent struct {
	Op   ChangeOp        `json:"op"`
	Path string          `json:"path"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Store is a key-path-addressable document store with live change feeds.
// Each single-path write is atomic; there is no multi-path transaction.
type Store interface {
	// Get unmarshals the document at path into dest; ErrNotFound when absent.
	Get(ctx context.Context, path string, dest any) error

	// Set creates or replaces the whole document at path.
	Set(ctx context.Context, path string, value any) error

	// Update shallow-merges fields into the document at path, creating it
	// when absent.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Remove deletes the document at path. An absent path is success.
	Remove(ctx context.Context, path string) error

	// Push stores value under a freshly generated child id of parentPath and
	// returns the id.
	Push(ctx context.Context, parentPath string, value any) (string, error)

	// List returns the immediate children of parentPath keyed by child id.
	List(ctx context.Context, parentPath string) (map[string]json.RawMessage, error)

	// Subscribe returns a change feed for every mutation under the scope.
	// The cancel function releases the subscription and closes the channel.
	Subscribe(scope Scope) (<-chan ChangeEvent, func())
}

// Path layout shared by every client of the store. This is the wire contract;
// remote parties subscribe to the same paths.

func ContractPath(contractID string) string {
	return join("contracts", contractID)
}

func AgendaPath(workerID string) string {
	return join("agenda", workerID)
}

func AgendaDayPath(workerID, date string) string {
	return join("agenda", workerID, date)
}

func NotificationsPath(recipientID string) string {
	return join("notifications", recipientID)
}

func NotificationPath(recipientID, notificationID string) string {
	return join("notifications", recipientID, notificationID)
}

func ChatMessagesPath(contractID string) string {
	return join("chats", contractID, "messages")
}

func join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ScopeOf extracts the top-level scope of a path.
func ScopeOf(path string) Scope {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return Scope(path[:i])
	}
	return Scope(path)
}

// Segment returns the nth path segment, empty when out of range.
func Segment(path string, n int) string {
	parts := strings.Split(path, "/")
	if n < 0 || n >= len(parts) {
		return ""
	}
	return parts[n]
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("invalid record path %q", path)
	}
	return nil
}
