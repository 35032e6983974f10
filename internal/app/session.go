package app

import (
	"context"
	"sync"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// session is the fully opened upstream connection. The Manager publishes it
// only once every handle below is in place.
type session struct {
	id       string
	identity domain.Identity

	api    domain.ChannelAPI
	chat   domain.ChatTransport
	pubsub domain.PubSubTransport

	// lifecycle holds the open/close listeners, subs the bridge listeners.
	lifecycle []domain.Subscription
	subs      []domain.Subscription
	writer    *chatWriter

	cancelConnect context.CancelFunc
	connectWg     sync.WaitGroup
}
