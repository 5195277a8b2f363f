// Package ws is the realtime side of the service: the /ws upgrade handler,
// per-connection sessions, the local subscription registry and the presence
// aggregator. Cross-process delivery goes through the broker; everything in
// this package only touches sessions living in this process.
package ws

import (
	"context"
	"time"

	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/store"
)

const (
	// Transport timing, gorilla pump style.
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 8192

	// Outbound queue depth per session. A full queue means a consumer that
	// stopped reading; the session is closed rather than blocking fan-out.
	sendQueueSize = 64

	// Minimum gap between last-activity write-throughs from ping frames.
	touchInterval = 90 * time.Second
)

// Store is the slice of the storage layer the realtime side reads from.
type Store interface {
	UserByID(ctx context.Context, id int64) (*store.User, error)
	TouchUserLastActivity(ctx context.Context, userID int64) error
	ChatsForUser(ctx context.Context, userID int64) ([]int64, error)
	LastSeenBucket(ctx context.Context, userID int64) (string, error)
	LastSeenVisibility(ctx context.Context, userID int64) (string, error)
}

// Authorizer gates chat subscriptions.
type Authorizer interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Broker is the pub/sub facade sessions publish to and the registry fans in
// from.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte)
	Subscribe(channel string, handler broker.Handler)
}
