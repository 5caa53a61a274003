package model

import "testing"

func TestOrderStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPaid, OrderStatusProcessing, true},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDone, true},

		// 終端からは動けない
		{OrderStatusDone, OrderStatusProcessing, false},
		{OrderStatusDone, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPaid, false},

		// 後戻り・飛び越し不可
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusProcessing, OrderStatusPaid, false},
		{OrderStatusPaid, OrderStatusDone, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestOrderStatusIsCancellable(t *testing.T) {
	if !OrderStatusPaid.IsCancellable() || !OrderStatusProcessing.IsCancellable() {
		t.Error("paid and processing must be cancellable")
	}
	if OrderStatusShipped.IsCancellable() || OrderStatusDone.IsCancellable() || OrderStatusCancelled.IsCancellable() {
		t.Error("shipped, done and cancelled must not be cancellable")
	}
}
