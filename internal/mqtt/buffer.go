package mqtt

import "log"

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO holding messages published while the
// broker is unreachable. When full, the oldest message gives way: recent
// telemetry supersedes stale telemetry. Not safe for concurrent use; the
// publisher synchronizes around it.
type backlog struct {
	msgs     []pendingMsg
	capacity int
	dropped  bool // a message was lost since the last drain
}

func newBacklog(capacity int) *backlog {
	return &backlog{capacity: capacity}
}

func (b *backlog) add(msg pendingMsg) {
	if len(b.msgs) >= b.capacity {
		if !b.dropped {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", b.capacity)
			b.dropped = true
		}
		b.msgs = b.msgs[1:]
	}
	b.msgs = append(b.msgs, msg)
}

// takeAll empties the backlog and returns its contents oldest-first.
func (b *backlog) takeAll() []pendingMsg {
	if len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = nil
	b.dropped = false
	return out
}

func (b *backlog) size() int {
	return len(b.msgs)
}
