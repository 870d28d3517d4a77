package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"oficio/internal/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	docPrefix      = "doc:"
	childrenPrefix = "kids:"
	channelPrefix  = "store."
	opTimeout      = 5 * time.Second
)

// ValkeyStore is the production Store. Documents live as JSON values at keys
// mirroring the path layout, child ids are tracked in a set per parent path,
// and every mutation is published on a pubsub channel per scope so remote
// clients observe changes live.
type ValkeyStore struct {
	client valkey.Client
	log    logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewValkeyStore(client valkey.Client) *ValkeyStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &ValkeyStore{
		client: client,
		log:    logger.New("store"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *ValkeyStore) Close() {
	s.cancel()
}

func (s *ValkeyStore) Get(ctx context.Context, path string, dest any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := s.client.Do(ctx, s.client.B().Get().Key(docPrefix+path).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return json.Unmarshal(raw, dest)
}

func (s *ValkeyStore) Set(ctx context.Context, path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err = s.client.Do(ctx, s.client.B().Set().Key(docPrefix+path).Value(string(raw)).Build()).Error()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if parent, child, ok := splitParent(path); ok {
		err = s.client.Do(ctx, s.client.B().Sadd().Key(childrenPrefix+parent).Member(child).Build()).Error()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	s.publish(ChangeEvent{Op: OpSet, Path: path, Data: raw})
	return nil
}

func (s *ValkeyStore) Update(ctx context.Context, path string, fields map[string]any) error {
	merged := make(map[string]any)
	if err := s.Get(ctx, path, &merged); err != nil && err != ErrNotFound {
		return err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return s.Set(ctx, path, merged)
}

func (s *ValkeyStore) Remove(ctx context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	removed, err := s.client.Do(ctx, s.client.B().Del().Key(docPrefix+path).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if parent, child, ok := splitParent(path); ok {
		err = s.client.Do(ctx, s.client.B().Srem().Key(childrenPrefix+parent).Member(child).Build()).Error()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if removed > 0 {
		s.publish(ChangeEvent{Op: OpRemove, Path: path})
	}
	return nil
}

func (s *ValkeyStore) Push(ctx context.Context, parentPath string, value any) (string, error) {
	if err := validatePath(parentPath); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if err := s.Set(ctx, parentPath+"/"+id, value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *ValkeyStore) List(ctx context.Context, parentPath string) (map[string]json.RawMessage, error) {
	if err := validatePath(parentPath); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := s.client.Do(ctx, s.client.B().Smembers().Key(childrenPrefix+parentPath).Build()).
		AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	children := make(map[string]json.RawMessage, len(ids))
	for _, id := range ids {
		raw, err := s.client.Do(ctx, s.client.B().Get().Key(docPrefix+parentPath+"/"+id).Build()).
			AsBytes()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				// stale child index entry, skip
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		children[id] = raw
	}
	return children, nil
}

func (s *ValkeyStore) Subscribe(scope Scope) (<-chan ChangeEvent, func()) {
	log := s.log.Function("Subscribe")

	ch := make(chan ChangeEvent, feedBuffer)
	ctx, cancel := context.WithCancel(s.ctx)

	go func() {
		defer close(ch)

		err := s.client.Receive(
			ctx,
			s.client.B().Subscribe().Channel(channelPrefix+string(scope)).Build(),
			func(msg valkey.PubSubMessage) {
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
					log.Er("failed to unmarshal change event", err, "scope", scope)
					return
				}
				select {
				case ch <- event:
				default:
					log.Warn("dropping change event for slow subscriber", "scope", scope, "path", event.Path)
				}
			},
		)
		if err != nil && ctx.Err() == nil {
			log.Er("change feed terminated", err, "scope", scope)
		}
	}()

	return ch, cancel
}

func (s *ValkeyStore) publish(event ChangeEvent) {
	log := s.log.Function("publish")

	raw, err := json.Marshal(event)
	if err != nil {
		log.Er("failed to marshal change event", err, "path", event.Path)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	channel := channelPrefix + string(ScopeOf(event.Path))
	err = s.client.Do(ctx, s.client.B().Publish().Channel(channel).Message(string(raw)).Build()).
		Error()
	if err != nil {
		log.Er("failed to publish change event", err, "channel", channel, "path", event.Path)
	}
}

func splitParent(path string) (parent, child string, ok bool) {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}
