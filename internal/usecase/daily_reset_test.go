package usecase

import (
	"context"
	"testing"
	"time"
)

type resetCounter struct{ n int }

func (r *resetCounter) ResetDaily() { r.n++ }

func TestDailyResetSchedule(t *testing.T) {
	if _, err := NewDailyReset("not a cron", &resetCounter{}, nil); err == nil {
		t.Fatalf("expected invalid schedule error")
	}

	d, err := NewDailyReset("0 0 * * *", &resetCounter{}, nil)
	if err != nil {
		t.Fatalf("NewDailyReset: %v", err)
	}
	d.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)
	if ctx.Err() != nil {
		t.Fatalf("stop should return before the deadline")
	}
}
