package tracker

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/shared/checksum"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// PurchaseOrderIDsKey holds the purchase dedup set in session storage
const PurchaseOrderIDsKey = "_constructorio_purchase_order_ids"

// TrackPurchase records a completed order. A purchase whose order id was
// already tracked in this session is skipped and reports false.
func (t *Tracker) TrackPurchase(p Purchase) (bool, error) {
	if err := t.check(EventPurchase, p); err != nil {
		return false, err
	}

	// A purchase the queue will drop must not claim its order id
	if p.OrderID != "" && t.accepting() && !t.recordOrder(p.OrderID) {
		t.logger.Debug("skipping duplicate purchase", zap.String("order_id", p.OrderID))
		t.metrics.RecordEvent(EventPurchase, monitoring.EventDuplicate)
		return false, nil
	}

	body := map[string]interface{}{
		"items":   p.Items,
		"section": orDefault(p.Section, defaultSection),
	}
	putIf(body, "revenue", p.Revenue)
	putIf(body, "order_id", p.OrderID)

	t.post(EventPurchase, "/v2/behavioral_action/purchase", body)
	return true, nil
}

// acceptor is implemented by queues that can tell whether a request would be
// dropped
type acceptor interface {
	Accepting() bool
}

func (t *Tracker) accepting() bool {
	if a, ok := t.queue.(acceptor); ok {
		return a.Accepting()
	}
	return true
}

// recordOrder adds orderID to the dedup set and reports whether it was new.
// Without session storage, or when it fails, every order counts as new.
func (t *Tracker) recordOrder(orderID string) bool {
	if t.session == nil {
		return true
	}

	key := checksum.Key(orderID)
	fresh := true

	err := storage.Update(t.session, PurchaseOrderIDsKey, func(current []byte) ([]byte, error) {
		seen := map[string]bool{}
		if current != nil {
			// An unreadable set is replaced
			_ = storage.Unmarshal(current, &seen)
			if seen == nil {
				seen = map[string]bool{}
			}
		}

		if seen[key] {
			fresh = false
			return current, nil
		}
		seen[key] = true
		return storage.Marshal(seen)
	})
	if err != nil {
		t.logger.Debug("failed to record purchase order id", zap.Error(err))
		return true
	}
	return fresh
}
