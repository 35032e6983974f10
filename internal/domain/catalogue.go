package domain

import (
	"maps"
	"slices"
)

// EventName is a member of the closed outbound catalogue.
type EventName string

// Lifecycle events.
const (
	EventLoad     EventName = "load"
	EventLoaded   EventName = "loaded"
	EventOpen     EventName = "open"
	EventClose    EventName = "close"
	EventUnload   EventName = "unload"
	EventError    EventName = "error"
	EventChatOpen EventName = "chat-open"
)

// Upstream-derived events.
const (
	EventMessage             EventName = "message"
	EventAction              EventName = "action"
	EventBan                 EventName = "ban"
	EventBitsBadgeUpgrade    EventName = "bits-badge-upgrade"
	EventChatClear           EventName = "chat-clear"
	EventCommunityPayForward EventName = "community-pay-forward"
	EventCommunitySub        EventName = "community-sub"
	EventEmoteOnly           EventName = "emote-only"
	EventFollowerOnly        EventName = "follower-only"
	EventGiftPaidUpgrade     EventName = "gift-paid-upgrade"
	EventHost                EventName = "host"
	EventHosted              EventName = "hosted"
	EventHostsRemaining      EventName = "hosts-remaining"
	EventJoin                EventName = "join"
	EventPart                EventName = "part"
	EventPrimeCommunityGift  EventName = "prime-community-gift"
	EventPrimePaidUpgrade    EventName = "prime-paid-upgrade"
	EventR9K                 EventName = "r9k"
	EventRaid                EventName = "raid"
	EventRaidCancel          EventName = "raid-cancel"
	EventResub               EventName = "resub"
	EventRewardGift          EventName = "reward-gift"
	EventRitual              EventName = "ritual"
	EventSlow                EventName = "slow"
	EventStandardPayForward  EventName = "standard-pay-forward"
	EventSub                 EventName = "sub"
	EventSubExtend           EventName = "sub-extend"
	EventSubGift             EventName = "sub-gift"
	EventSubsOnly            EventName = "subs-only"
	EventTimeout             EventName = "timeout"
	EventUnhost              EventName = "unhost"
	EventWhisper             EventName = "whisper"
	EventChannelPointRedeem  EventName = "channel-point-redeem"
	EventBits                EventName = "bits"
)

// Payload field names.
const (
	FieldUser          = "user"
	FieldMessage       = "message"
	FieldRaw           = "raw"
	FieldInfo          = "info"
	FieldEnabled       = "enabled"
	FieldDelay         = "delay"
	FieldTarget        = "target"
	FieldViewers       = "viewers"
	FieldChannel       = "channel"
	FieldAuto          = "auto"
	FieldNumberOfHosts = "numberOfHosts"
	FieldDuration      = "duration"
	FieldTitle         = "title"
	FieldAmount        = "amount"
)

var (
	noFields         = []string{}
	userMessageRaw   = []string{FieldUser, FieldMessage, FieldRaw}
	userInfoRaw      = []string{FieldUser, FieldInfo, FieldRaw}
	userOnly         = []string{FieldUser}
	enabledOnly      = []string{FieldEnabled}
	enabledWithDelay = []string{FieldEnabled, FieldDelay}
)

var catalogue = map[EventName][]string{
	EventLoad:     noFields,
	EventLoaded:   noFields,
	EventOpen:     noFields,
	EventClose:    noFields,
	EventUnload:   noFields,
	EventError:    noFields,
	EventChatOpen: noFields,

	EventMessage:             userMessageRaw,
	EventAction:              userMessageRaw,
	EventWhisper:             userMessageRaw,
	EventBan:                 userOnly,
	EventChatClear:           userOnly,
	EventJoin:                userOnly,
	EventPart:                userOnly,
	EventTimeout:             {FieldUser, FieldDuration},
	EventBitsBadgeUpgrade:    userInfoRaw,
	EventCommunityPayForward: userInfoRaw,
	EventCommunitySub:        userInfoRaw,
	EventGiftPaidUpgrade:     userInfoRaw,
	EventPrimeCommunityGift:  userInfoRaw,
	EventPrimePaidUpgrade:    userInfoRaw,
	EventRaid:                userInfoRaw,
	EventResub:               userInfoRaw,
	EventRewardGift:          userInfoRaw,
	EventRitual:              userInfoRaw,
	EventStandardPayForward:  userInfoRaw,
	EventSub:                 userInfoRaw,
	EventSubExtend:           userInfoRaw,
	EventSubGift:             userInfoRaw,
	EventRaidCancel:          {FieldRaw},
	EventEmoteOnly:           enabledOnly,
	EventR9K:                 enabledOnly,
	EventSubsOnly:            enabledOnly,
	EventFollowerOnly:        enabledWithDelay,
	EventSlow:                enabledWithDelay,
	EventHost:                {FieldTarget, FieldViewers},
	EventHosted:              {FieldChannel, FieldAuto, FieldViewers},
	EventHostsRemaining:      {FieldNumberOfHosts},
	EventUnhost:              {FieldChannel},
	EventChannelPointRedeem:  {FieldUser, FieldTitle, FieldMessage, FieldRaw},
	EventBits:                {FieldUser, FieldAmount, FieldMessage, FieldRaw},
}

// Fields returns the payload field set of name.
func Fields(name EventName) ([]string, bool) {
	fields, ok := catalogue[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(fields), true
}

// EventNames returns every catalogued name in lexical order.
func EventNames() []EventName {
	return slices.Sorted(maps.Keys(catalogue))
}

// IsLifecycle reports whether name is emitted by the session lifecycle rather than upstream.
func (n EventName) IsLifecycle() bool {
	switch n {
	case EventLoad, EventLoaded, EventOpen, EventClose, EventUnload, EventError, EventChatOpen:
		return true
	}
	return false
}
