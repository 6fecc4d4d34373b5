package resource

// RuleKind identifies the shape of a TriggerRule
type RuleKind uint8

const (
	RuleNever RuleKind = iota
	RuleAnyPayload
	RuleOnlyPayloads
	RuleExceptPayloads
	RuleEitherChannel
)

// TriggerRule decides whether a (channel, payload) notification
// invalidates a resource. The zero value never matches.
type TriggerRule struct {
	kind     RuleKind
	channel  string
	other    string              // second channel (RuleEitherChannel)
	payloads map[string]struct{} // allowed or blocked payloads
}

// Never returns a rule which matches no notification
func Never() TriggerRule {
	return TriggerRule{kind: RuleNever}
}

// AnyPayload matches every payload on one channel
func AnyPayload(channel string) TriggerRule {
	return TriggerRule{kind: RuleAnyPayload, channel: channel}
}

// OnlyPayloads matches only the listed payloads on one channel
func OnlyPayloads(channel string, payloads ...string) TriggerRule {
	return TriggerRule{kind: RuleOnlyPayloads, channel: channel, payloads: payloadSet(payloads)}
}

// ExceptPayloads matches every payload on one channel except the listed ones
func ExceptPayloads(channel string, payloads ...string) TriggerRule {
	return TriggerRule{kind: RuleExceptPayloads, channel: channel, payloads: payloadSet(payloads)}
}

// AnyOnEitherChannel matches every payload on either of two channels
func AnyOnEitherChannel(first, second string) TriggerRule {
	return TriggerRule{kind: RuleEitherChannel, channel: first, other: second}
}

func payloadSet(payloads []string) map[string]struct{} {
	set := make(map[string]struct{}, len(payloads))
	for _, p := range payloads {
		set[p] = struct{}{}
	}
	return set
}

// Kind returns the rule kind
func (r TriggerRule) Kind() RuleKind {
	return r.kind
}

// Channels returns the channel names the rule listens on
func (r TriggerRule) Channels() []string {
	switch r.kind {
	case RuleAnyPayload, RuleOnlyPayloads, RuleExceptPayloads:
		return []string{r.channel}
	case RuleEitherChannel:
		return []string{r.channel, r.other}
	default:
		return nil
	}
}

func (r TriggerRule) hasPayload(payload string) bool {
	_, ok := r.payloads[payload]
	return ok
}

// Matches reports whether a notification should cause a refetch
func (r TriggerRule) Matches(channel, payload string) bool {
	switch r.kind {
	case RuleAnyPayload:
		return channel == r.channel
	case RuleOnlyPayloads:
		return channel == r.channel && r.hasPayload(payload)
	case RuleExceptPayloads:
		return channel == r.channel && !r.hasPayload(payload)
	case RuleEitherChannel:
		return channel == r.channel || channel == r.other
	default:
		return false
	}
}

// Excluded reports whether a notification is one the resource deliberately
// ignores. For ExceptPayloads rules it is true for blocked payloads on the
// rule's channel; for every other rule it equals Matches.
func (r TriggerRule) Excluded(channel, payload string) bool {
	if r.kind == RuleExceptPayloads {
		return channel == r.channel && r.hasPayload(payload)
	}
	return r.Matches(channel, payload)
}
