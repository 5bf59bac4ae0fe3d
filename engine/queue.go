package engine

import "github.com/wippyai/render-worker/protocol"

// pendingQueue holds structural commands received before the module is
// ready, in arrival order.
type pendingQueue struct {
	items []protocol.Command
}

func (q *pendingQueue) push(cmd protocol.Command) {
	q.items = append(q.items, cmd)
}

// take empties the queue and returns what it held.
func (q *pendingQueue) take() []protocol.Command {
	items := q.items
	q.items = nil
	return items
}

func (q *pendingQueue) len() int {
	return len(q.items)
}

func (q *pendingQueue) snapshot() []protocol.Command {
	if len(q.items) == 0 {
		return nil
	}
	out := make([]protocol.Command, len(q.items))
	copy(out, q.items)
	return out
}

func (q *pendingQueue) reset() {
	q.items = nil
}
