package template

import "github.com/foxzi/groupsend/internal/recipient"

// Derive computes one message per recipient, in recipient order.
//
// Accepted messages whose recipient is still present are kept verbatim;
// everything else is rendered again from the draft. Until there is at
// least one recipient and a complete draft, existing is returned as is.
func (e *Engine) Derive(recipients []recipient.Record, d Draft, existing []Message) []Message {
	if len(recipients) == 0 || !d.Complete() {
		return CloneMessages(existing)
	}

	accepted := make(map[string]Message, len(existing))
	for _, m := range existing {
		if m.Accepted {
			accepted[m.RecipientID] = m
		}
	}

	out := make([]Message, 0, len(recipients))
	for _, r := range recipients {
		if m, ok := accepted[r.ID]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, e.Personalize(d, r))
	}
	return out
}

// AllAccepted is true when there is at least one message and every
// message is accepted.
func AllAccepted(messages []Message) bool {
	if len(messages) == 0 {
		return false
	}
	for _, m := range messages {
		if !m.Accepted {
			return false
		}
	}
	return true
}

// AcceptedCount returns how many messages are accepted
func AcceptedCount(messages []Message) int {
	n := 0
	for _, m := range messages {
		if m.Accepted {
			n++
		}
	}
	return n
}

// CloneMessages returns a copy of messages that shares no backing array
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
