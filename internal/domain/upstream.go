package domain

import "context"

// EventKind names an upstream occurrence as classified by a transport.
type EventKind string

// Chat kinds.
const (
	KindChatMessage            EventKind = "chat.message"
	KindChatAction             EventKind = "chat.action"
	KindChatWhisper            EventKind = "chat.whisper"
	KindChatClear              EventKind = "chat.clear"
	KindChatBan                EventKind = "chat.ban"
	KindChatTimeout            EventKind = "chat.timeout"
	KindChatEmoteOnly          EventKind = "chat.emote-only"
	KindChatFollowersOnly      EventKind = "chat.followers-only"
	KindChatR9K                EventKind = "chat.r9k"
	KindChatSlow               EventKind = "chat.slow"
	KindChatSubsOnly           EventKind = "chat.subs-only"
	KindChatSub                EventKind = "chat.sub"
	KindChatResub              EventKind = "chat.resub"
	KindChatSubGift            EventKind = "chat.subgift"
	KindChatMysteryGift        EventKind = "chat.submysterygift"
	KindChatGiftPaidUpgrade    EventKind = "chat.giftpaidupgrade"
	KindChatPrimePaidUpgrade   EventKind = "chat.primepaidupgrade"
	KindChatRaid               EventKind = "chat.raid"
	KindChatUnraid             EventKind = "chat.unraid"
	KindChatRitual             EventKind = "chat.ritual"
	KindChatBitsBadgeTier      EventKind = "chat.bitsbadgetier"
	KindChatRewardGift         EventKind = "chat.rewardgift"
	KindChatCommunityPayFwd    EventKind = "chat.communitypayforward"
	KindChatStandardPayFwd     EventKind = "chat.standardpayforward"
	KindChatExtendSub          EventKind = "chat.extendsub"
	KindChatPrimeCommunityGift EventKind = "chat.primecommunitygiftreceived"
	KindChatJoin               EventKind = "chat.join"
	KindChatPart               EventKind = "chat.part"
	KindChatHost               EventKind = "chat.host"
	KindChatUnhost             EventKind = "chat.unhost"
	KindChatHosted             EventKind = "chat.hosted"
	KindChatHostsRemaining     EventKind = "chat.hosts-remaining"
)

// Pub/sub kinds use the EventSub subscription type verbatim.
const (
	KindRewardRedemption EventKind = "channel.channel_points_custom_reward_redemption.add"
	KindCheer            EventKind = "channel.cheer"
)

// Occurrence is one classified upstream event. Which fields are set depends on Kind.
type Occurrence struct {
	Kind     EventKind
	Channel  string
	User     string
	Target   string
	Message  string
	Title    string
	Info     map[string]any
	Enabled  bool
	Delay    int
	Viewers  int
	Count    int
	Duration int
	Amount   int
	Auto     bool
	Raw      any
}

// Listener receives occurrences on a transport goroutine.
type Listener func(Occurrence)

// Subscription is a removable listener registration. Remove is idempotent.
type Subscription interface {
	Remove(ctx context.Context) error
}

// Credentials are supplied by the host; the bridge never acquires or refreshes them.
type Credentials struct {
	ClientID    string
	AccessToken string
}

func (c Credentials) Validate() error {
	if c.ClientID == "" || c.AccessToken == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// Identity is the authenticated account, resolved once per session.
type Identity struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"displayName"`
}

// Connector opens the upstream handles a session is built from.
type Connector interface {
	Authenticate(ctx context.Context, creds Credentials) (ChannelAPI, error)
	OpenPubSub(ctx context.Context, creds Credentials) (PubSubTransport, error)
	OpenChat(creds Credentials, identity Identity) (ChatTransport, error)
}

// ChatTransport is a chat connection scoped to the identity's own channel.
type ChatTransport interface {
	On(kind EventKind, fn Listener) Subscription
	OnConnect(fn func()) Subscription
	OnDisconnect(fn func(err error)) Subscription

	// Connect runs the connection until Disconnect and returns why it ended.
	Connect(ctx context.Context) error
	Disconnect() error

	Say(message string) error
}

// PubSubTransport is a channel notification stream (EventSub over WebSocket).
type PubSubTransport interface {
	Subscribe(ctx context.Context, kind EventKind, broadcasterID string, fn Listener) (Subscription, error)
	Close() error
}
