package registration

import (
	"context"
	"time"
)

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// Countdown emits the seconds left until a deadline.
type Countdown struct {
	now       func() time.Time
	newTicker func(time.Duration) ticker
}

func NewCountdown() *Countdown {
	return &Countdown{
		now:       time.Now,
		newTicker: func(d time.Duration) ticker { return realTicker{time.NewTicker(d)} },
	}
}

// Watch sends the remaining seconds immediately and then on every tick. The
// channel is closed after 0 is sent or when ctx is done; the ticker is
// stopped in both cases.
func (c *Countdown) Watch(ctx context.Context, deadline time.Time, tick time.Duration) <-chan int {
	if tick <= 0 {
		tick = time.Second
	}
	out := make(chan int)

	go func() {
		defer close(out)

		t := c.newTicker(tick)
		defer t.Stop()

		for {
			left := RemainingSeconds(deadline, c.now())
			select {
			case out <- left:
			case <-ctx.Done():
				return
			}
			if left == 0 {
				return
			}

			select {
			case <-t.C():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
