package bridge

import (
	"slices"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// Source selects the transport a mapping listens on.
type Source int

const (
	SourceChat Source = iota
	SourcePubSub
)

func (s Source) String() string {
	if s == SourcePubSub {
		return "pubsub"
	}
	return "chat"
}

// Extract builds the envelope payload from an occurrence. It must be pure.
type Extract func(o domain.Occurrence) map[string]any

type Mapping struct {
	Kind    domain.EventKind
	Event   domain.EventName
	Source  Source
	Extract Extract
}

func user(o domain.Occurrence) map[string]any {
	return map[string]any{domain.FieldUser: o.User}
}

func userMessage(o domain.Occurrence) map[string]any {
	return map[string]any{
		domain.FieldUser:    o.User,
		domain.FieldMessage: o.Message,
		domain.FieldRaw:     o.Raw,
	}
}

func userInfo(o domain.Occurrence) map[string]any {
	return map[string]any{
		domain.FieldUser: o.User,
		domain.FieldInfo: o.Info,
		domain.FieldRaw:  o.Raw,
	}
}

func toggle(o domain.Occurrence) map[string]any {
	return map[string]any{domain.FieldEnabled: o.Enabled}
}

func toggleWithDelay(o domain.Occurrence) map[string]any {
	return map[string]any{
		domain.FieldEnabled: o.Enabled,
		domain.FieldDelay:   o.Delay,
	}
}

var table = []Mapping{
	{domain.KindChatMessage, domain.EventMessage, SourceChat, userMessage},
	{domain.KindChatAction, domain.EventAction, SourceChat, userMessage},
	{domain.KindChatWhisper, domain.EventWhisper, SourceChat, userMessage},
	{domain.KindChatClear, domain.EventChatClear, SourceChat, user},
	{domain.KindChatBan, domain.EventBan, SourceChat, user},
	{domain.KindChatTimeout, domain.EventTimeout, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{domain.FieldUser: o.User, domain.FieldDuration: o.Duration}
	}},
	{domain.KindChatJoin, domain.EventJoin, SourceChat, user},
	{domain.KindChatPart, domain.EventPart, SourceChat, user},

	{domain.KindChatEmoteOnly, domain.EventEmoteOnly, SourceChat, toggle},
	{domain.KindChatFollowersOnly, domain.EventFollowerOnly, SourceChat, toggleWithDelay},
	{domain.KindChatR9K, domain.EventR9K, SourceChat, toggle},
	{domain.KindChatSlow, domain.EventSlow, SourceChat, toggleWithDelay},
	{domain.KindChatSubsOnly, domain.EventSubsOnly, SourceChat, toggle},

	{domain.KindChatSub, domain.EventSub, SourceChat, userInfo},
	{domain.KindChatResub, domain.EventResub, SourceChat, userInfo},
	{domain.KindChatSubGift, domain.EventSubGift, SourceChat, userInfo},
	{domain.KindChatMysteryGift, domain.EventCommunitySub, SourceChat, userInfo},
	{domain.KindChatGiftPaidUpgrade, domain.EventGiftPaidUpgrade, SourceChat, userInfo},
	{domain.KindChatPrimePaidUpgrade, domain.EventPrimePaidUpgrade, SourceChat, userInfo},
	{domain.KindChatRaid, domain.EventRaid, SourceChat, userInfo},
	{domain.KindChatUnraid, domain.EventRaidCancel, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{domain.FieldRaw: o.Raw}
	}},
	{domain.KindChatRitual, domain.EventRitual, SourceChat, userInfo},
	{domain.KindChatBitsBadgeTier, domain.EventBitsBadgeUpgrade, SourceChat, userInfo},
	{domain.KindChatRewardGift, domain.EventRewardGift, SourceChat, userInfo},
	{domain.KindChatCommunityPayFwd, domain.EventCommunityPayForward, SourceChat, userInfo},
	{domain.KindChatStandardPayFwd, domain.EventStandardPayForward, SourceChat, userInfo},
	{domain.KindChatExtendSub, domain.EventSubExtend, SourceChat, userInfo},
	{domain.KindChatPrimeCommunityGift, domain.EventPrimeCommunityGift, SourceChat, userInfo},

	{domain.KindChatHost, domain.EventHost, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{domain.FieldTarget: o.Target, domain.FieldViewers: o.Viewers}
	}},
	{domain.KindChatUnhost, domain.EventUnhost, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{domain.FieldChannel: o.Channel}
	}},
	{domain.KindChatHosted, domain.EventHosted, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{
			domain.FieldChannel: o.Channel,
			domain.FieldAuto:    o.Auto,
			domain.FieldViewers: o.Viewers,
		}
	}},
	{domain.KindChatHostsRemaining, domain.EventHostsRemaining, SourceChat, func(o domain.Occurrence) map[string]any {
		return map[string]any{domain.FieldNumberOfHosts: o.Count}
	}},

	{domain.KindRewardRedemption, domain.EventChannelPointRedeem, SourcePubSub, func(o domain.Occurrence) map[string]any {
		return map[string]any{
			domain.FieldUser:    o.User,
			domain.FieldTitle:   o.Title,
			domain.FieldMessage: o.Message,
			domain.FieldRaw:     o.Raw,
		}
	}},
	{domain.KindCheer, domain.EventBits, SourcePubSub, func(o domain.Occurrence) map[string]any {
		return map[string]any{
			domain.FieldUser:    o.User,
			domain.FieldAmount:  o.Amount,
			domain.FieldMessage: o.Message,
			domain.FieldRaw:     o.Raw,
		}
	}},
}

// Table returns a copy of the mapping table.
func Table() []Mapping {
	return slices.Clone(table)
}
