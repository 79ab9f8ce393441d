package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDedupKeyStable(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &Notification{RuleID: "r1", Symbol: "BTC", CurrentPrice: 51000, TriggeredAt: at}
	b := &Notification{RuleID: "r1", Symbol: "BTC", CurrentPrice: 51000, TriggeredAt: at}

	if DedupKey(a) != DedupKey(b) {
		t.Error("DedupKey() differs for identical triggering events")
	}
}

func TestDedupKeyDistinct(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	base := &Notification{RuleID: "r1", Symbol: "BTC", CurrentPrice: 51000, TriggeredAt: at}

	variants := []*Notification{
		{RuleID: "r2", Symbol: "BTC", CurrentPrice: 51000, TriggeredAt: at},
		{RuleID: "r1", Symbol: "ETH", CurrentPrice: 51000, TriggeredAt: at},
		{RuleID: "r1", Symbol: "BTC", CurrentPrice: 51000.5, TriggeredAt: at},
		{RuleID: "r1", Symbol: "BTC", CurrentPrice: 51000, TriggeredAt: at.Add(time.Second)},
	}

	for i, v := range variants {
		if DedupKey(base) == DedupKey(v) {
			t.Errorf("variant %d: DedupKey() collides with base key", i)
		}
	}
}

func TestDedupGuardInMemory(t *testing.T) {
	guard := NewDedupGuard(nil, zerolog.Nop())
	ctx := context.Background()

	if !guard.FirstDelivery(ctx, "key-1") {
		t.Error("FirstDelivery() = false on first claim, expected true")
	}
	if guard.FirstDelivery(ctx, "key-1") {
		t.Error("FirstDelivery() = true on repeat claim, expected false")
	}
	if !guard.FirstDelivery(ctx, "key-2") {
		t.Error("FirstDelivery() = false for unrelated key, expected true")
	}
}

type recordingDispatcher struct {
	calls []*Notification
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n *Notification) error {
	d.calls = append(d.calls, n)
	return d.err
}

func TestFanoutAttemptsAllTargets(t *testing.T) {
	failure := errors.New("webhook down")
	first := &recordingDispatcher{err: failure}
	second := &recordingDispatcher{}

	fanout := Fanout{first, second}
	n := &Notification{RuleID: "r1"}

	err := fanout.Dispatch(context.Background(), n)
	if !errors.Is(err, failure) {
		t.Errorf("Dispatch() error = %v, expected first failure", err)
	}
	if len(second.calls) != 1 {
		t.Errorf("second target got %d calls, expected 1", len(second.calls))
	}
}

func TestFanoutNoError(t *testing.T) {
	fanout := Fanout{&recordingDispatcher{}, &recordingDispatcher{}}
	if err := fanout.Dispatch(context.Background(), &Notification{}); err != nil {
		t.Errorf("Dispatch() error = %v, expected nil", err)
	}
}
