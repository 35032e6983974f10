package twitch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	twitch "github.com/gempir/go-twitch-irc/v4"
)

// hostedPattern matches the jtv notice sent when another channel hosts this one.
var hostedPattern = regexp.MustCompile(`^(\w+) is now (auto )?hosting you(?: for(?: up to)? (\d+) viewers?)?`)

var firstNumber = regexp.MustCompile(`\d+`)

var userNoticeKinds = map[string]domain.EventKind{
	"sub":                        domain.KindChatSub,
	"resub":                      domain.KindChatResub,
	"subgift":                    domain.KindChatSubGift,
	"anonsubgift":                domain.KindChatSubGift,
	"submysterygift":             domain.KindChatMysteryGift,
	"anonsubmysterygift":         domain.KindChatMysteryGift,
	"giftpaidupgrade":            domain.KindChatGiftPaidUpgrade,
	"anongiftpaidupgrade":        domain.KindChatGiftPaidUpgrade,
	"primepaidupgrade":           domain.KindChatPrimePaidUpgrade,
	"raid":                       domain.KindChatRaid,
	"unraid":                     domain.KindChatUnraid,
	"ritual":                     domain.KindChatRitual,
	"bitsbadgetier":              domain.KindChatBitsBadgeTier,
	"rewardgift":                 domain.KindChatRewardGift,
	"communitypayforward":        domain.KindChatCommunityPayFwd,
	"standardpayforward":         domain.KindChatStandardPayFwd,
	"extendsub":                  domain.KindChatExtendSub,
	"primecommunitygiftreceived": domain.KindChatPrimeCommunityGift,
}

// roomStateKeys fixes the emission order of ROOMSTATE toggles.
var roomStateKeys = []struct {
	tag  string
	kind domain.EventKind
}{
	{"emote-only", domain.KindChatEmoteOnly},
	{"followers-only", domain.KindChatFollowersOnly},
	{"r9k", domain.KindChatR9K},
	{"slow", domain.KindChatSlow},
	{"subs-only", domain.KindChatSubsOnly},
}

func rawLine(tags map[string]string, line string) map[string]any {
	return map[string]any{"tags": tags, "line": line}
}

// login is the sender's account name. USERNOTICE is sent by the server, so
// there the sender only appears in the login tag.
func login(u twitch.User, tags map[string]string) string {
	if u.Name != "" {
		return u.Name
	}
	return tags["login"]
}

func classifyPrivate(m twitch.PrivateMessage) []domain.Occurrence {
	if strings.EqualFold(m.User.Name, "jtv") {
		if o, ok := parseHosted(m.Message); ok {
			o.Raw = rawLine(m.Tags, m.Raw)
			return []domain.Occurrence{o}
		}
	}

	kind := domain.KindChatMessage
	if m.Action {
		kind = domain.KindChatAction
	}
	return []domain.Occurrence{{
		Kind:    kind,
		Channel: m.Channel,
		User:    login(m.User, m.Tags),
		Message: m.Message,
		Raw:     rawLine(m.Tags, m.Raw),
	}}
}

func parseHosted(text string) (domain.Occurrence, bool) {
	match := hostedPattern.FindStringSubmatch(text)
	if match == nil {
		return domain.Occurrence{}, false
	}
	viewers, _ := strconv.Atoi(match[3])
	return domain.Occurrence{
		Kind:    domain.KindChatHosted,
		Channel: match[1],
		Auto:    match[2] != "",
		Viewers: viewers,
	}, true
}

func classifyWhisper(m twitch.WhisperMessage) []domain.Occurrence {
	return []domain.Occurrence{{
		Kind:    domain.KindChatWhisper,
		User:    login(m.User, m.Tags),
		Message: m.Message,
		Raw:     rawLine(m.Tags, m.Raw),
	}}
}

func classifyClearChat(m twitch.ClearChatMessage) []domain.Occurrence {
	o := domain.Occurrence{Channel: m.Channel, Raw: rawLine(m.Tags, m.Raw)}
	switch {
	case m.TargetUsername == "":
		o.Kind = domain.KindChatClear
		o.User = m.Channel
	case m.BanDuration == 0:
		o.Kind = domain.KindChatBan
		o.User = m.TargetUsername
	default:
		o.Kind = domain.KindChatTimeout
		o.User = m.TargetUsername
		o.Duration = m.BanDuration
	}
	return []domain.Occurrence{o}
}

// classifyRoomState emits one occurrence per toggle present in the message.
// followers-only is -1 when off and otherwise the required follow age in minutes.
func classifyRoomState(m twitch.RoomStateMessage) []domain.Occurrence {
	var out []domain.Occurrence
	for _, key := range roomStateKeys {
		value, ok := m.State[key.tag]
		if !ok {
			continue
		}
		o := domain.Occurrence{Kind: key.kind, Channel: m.Channel, Raw: rawLine(m.Tags, m.Raw)}
		switch key.kind {
		case domain.KindChatFollowersOnly:
			o.Enabled = value >= 0
			o.Delay = max(value, 0)
		case domain.KindChatSlow:
			o.Enabled = value > 0
			o.Delay = value
		default:
			o.Enabled = value == 1
		}
		out = append(out, o)
	}
	return out
}

func classifyUserNotice(m twitch.UserNoticeMessage) []domain.Occurrence {
	kind, ok := userNoticeKinds[m.MsgID]
	if !ok {
		return nil
	}

	info := make(map[string]any, len(m.MsgParams)+4)
	for key, value := range m.MsgParams {
		info[strings.TrimPrefix(key, "msg-param-")] = value
	}
	if m.SystemMsg != "" {
		info["systemMessage"] = m.SystemMsg
	}
	if m.User.DisplayName != "" {
		info["displayName"] = m.User.DisplayName
	}
	if m.User.ID != "" {
		info["userId"] = m.User.ID
	}
	if m.Message != "" {
		info["message"] = m.Message
	}

	return []domain.Occurrence{{
		Kind:    kind,
		Channel: m.Channel,
		User:    login(m.User, m.Tags),
		Message: m.Message,
		Info:    info,
		Raw:     rawLine(m.Tags, m.Raw),
	}}
}

func classifyJoin(m twitch.UserJoinMessage) []domain.Occurrence {
	return []domain.Occurrence{{Kind: domain.KindChatJoin, Channel: m.Channel, User: m.User, Raw: rawLine(nil, m.Raw)}}
}

func classifyPart(m twitch.UserPartMessage) []domain.Occurrence {
	return []domain.Occurrence{{Kind: domain.KindChatPart, Channel: m.Channel, User: m.User, Raw: rawLine(nil, m.Raw)}}
}

func classifyNotice(m twitch.NoticeMessage) []domain.Occurrence {
	if m.MsgID != "hosts_remaining" {
		return nil
	}
	n, err := strconv.Atoi(firstNumber.FindString(m.Message))
	if err != nil {
		return nil
	}
	return []domain.Occurrence{{
		Kind:    domain.KindChatHostsRemaining,
		Channel: m.Channel,
		Count:   n,
		Raw:     rawLine(m.Tags, m.Raw),
	}}
}

// classifyUnset handles commands the IRC client does not parse itself.
// HOSTTARGET has the form ":tmi.twitch.tv HOSTTARGET #channel :target [viewers]"
// where target "-" ends hosting.
func classifyUnset(m twitch.RawMessage) []domain.Occurrence {
	if m.RawType != "HOSTTARGET" {
		return nil
	}
	_, rest, ok := strings.Cut(m.Raw, "HOSTTARGET ")
	if !ok {
		return nil
	}
	channel, trailing, _ := strings.Cut(rest, " :")
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "#")

	fields := strings.Fields(trailing)
	if len(fields) == 0 {
		return nil
	}
	viewers := 0
	if len(fields) > 1 {
		viewers, _ = strconv.Atoi(fields[1])
	}

	o := domain.Occurrence{Channel: channel, Raw: rawLine(m.Tags, m.Raw)}
	if fields[0] == "-" {
		o.Kind = domain.KindChatUnhost
	} else {
		o.Kind = domain.KindChatHost
		o.Target = fields[0]
		o.Viewers = viewers
	}
	return []domain.Occurrence{o}
}
