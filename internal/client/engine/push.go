package engine

import (
	"context"
)

// Drain pushes the mutation queue to the central store in FIFO order.
// Each entry is re-stamped with the current wall clock and the current
// owner at push time, so a mutation that sat in the queue while offline
// still wins last-write-wins against anything older on the server.
//
// Only one drain runs at a time; a call made while another drain is in
// flight returns immediately with zero acked entries. A failed entry is
// logged and left in place, and the drain moves on to the next one, so a
// single poison entry cannot wedge the queue. Delivery is therefore
// at-least-once: the server-side upsert is idempotent.
func (e *Engine) Drain(ctx context.Context) (int, error) {
	if !e.pushBusy.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer e.pushBusy.Store(false)

	entries, err := e.queue.PeekAll(ctx)
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, entry := range entries {
		payload := entry.Payload
		payload.Owner = e.session.Owner()
		payload.UpdatedAt = e.now().UTC()

		if err := e.remote.Upsert(ctx, entry.Table, payload); err != nil {
			e.logger.Warn(ctx, "push failed",
				"table", entry.Table, "action", entry.Action, "id", payload.ID, "error", err)
			continue
		}

		if err := e.queue.Ack(ctx, entry.ID); err != nil {
			return acked, err
		}
		acked++
	}
	return acked, nil
}
