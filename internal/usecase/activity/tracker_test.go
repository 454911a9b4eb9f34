package activity

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var msk = time.FixedZone("MSK", 3*60*60)

func at(day, hour, minute, second int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, second, 0, msk)
}

func TestTrackerIdleEpisode(t *testing.T) {
	tr := NewTracker()
	threshold := 15 * time.Minute
	tr.Touch(1, at(1, 9, 0, 0))

	if got := tr.CheckIdle(1, at(1, 9, 14, 59), threshold); got != NotIdle {
		t.Fatalf("09:14:59: ожидали NotIdle, получили %s", got)
	}
	if got := tr.CheckIdle(1, at(1, 9, 15, 1), threshold); got != Idle {
		t.Fatalf("09:15:01: ожидали Idle, получили %s", got)
	}
	if got := tr.CheckIdle(1, at(1, 9, 16, 0), threshold); got != NotIdle {
		t.Fatalf("09:16:00: эпизод уже отмечен, ожидали NotIdle, получили %s", got)
	}

	tr.Touch(1, at(1, 9, 20, 0))
	if got := tr.CheckIdle(1, at(1, 9, 35, 0), threshold); got != Idle {
		t.Fatalf("после новой активности ожидали новый эпизод, получили %s", got)
	}
}

func TestTrackerUnknownChat(t *testing.T) {
	tr := NewTracker()
	if got := tr.CheckIdle(42, at(1, 12, 0, 0), time.Minute); got != NotIdle {
		t.Fatalf("неизвестный чат должен быть NotIdle, получили %s", got)
	}
	if tr.Len() != 0 {
		t.Fatal("CheckIdle не должен создавать записи")
	}
}

func TestTrackerChatsAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 9, 0, 0))
	tr.Touch(2, at(1, 9, 10, 0))

	now := at(1, 9, 16, 0)
	if got := tr.CheckIdle(1, now, 15*time.Minute); got != Idle {
		t.Fatalf("чат 1: ожидали Idle, получили %s", got)
	}
	if got := tr.CheckIdle(2, now, 15*time.Minute); got != NotIdle {
		t.Fatalf("чат 2: ожидали NotIdle, получили %s", got)
	}
}

func TestTrackerTouchNeverMovesBackwards(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 10, 0, 0))
	tr.Touch(1, at(1, 9, 0, 0))
	last, ok := tr.LastSeen(1)
	if !ok || !last.Equal(at(1, 10, 0, 0)) {
		t.Fatalf("ожидали 10:00, получили %v", last)
	}
}

func TestTrackerRearm(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 9, 0, 0))
	status, episode := tr.claim(1, at(1, 9, 30, 0), 15*time.Minute)
	if status != Idle {
		t.Fatalf("ожидали Idle, получили %s", status)
	}
	if !tr.rearm(1, episode) {
		t.Fatal("rearm без новой активности должен сработать")
	}
	if got := tr.CheckIdle(1, at(1, 9, 31, 0), 15*time.Minute); got != Idle {
		t.Fatalf("после rearm ожидали Idle, получили %s", got)
	}

}

func TestTrackerRearmAfterActivity(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 9, 0, 0))
	_, episode := tr.claim(1, at(1, 9, 30, 0), 15*time.Minute)
	tr.Touch(1, at(1, 9, 31, 0))
	if tr.rearm(1, episode) {
		t.Fatal("rearm не должен срабатывать после новой активности")
	}
}

func TestTrackerEvictAndForget(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 9, 0, 0))
	tr.Touch(2, at(3, 9, 0, 0))
	tr.Touch(3, at(3, 10, 0, 0))

	if n := tr.EvictIdle(at(2, 0, 0, 0)); n != 1 {
		t.Fatalf("ожидали вытеснение одного чата, получили %d", n)
	}
	tr.Forget(3)
	chats := tr.Chats()
	if len(chats) != 1 || chats[0] != 2 {
		t.Fatalf("ожидали только чат 2, получили %v", chats)
	}
}

func TestTrackerConcurrentCheckIdleFiresOnce(t *testing.T) {
	tr := NewTracker()
	tr.Touch(1, at(1, 9, 0, 0))
	now := at(1, 10, 0, 0)

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.CheckIdle(1, now, 15*time.Minute) == Idle {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()
	if fired.Load() != 1 {
		t.Fatalf("Idle должен выдаваться ровно один раз, получили %d", fired.Load())
	}
}

func TestTrackerConcurrentTouch(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Touch(chat%4, at(1, 9, j%60, 0))
				tr.CheckIdle(chat%4, at(1, 11, 0, 0), time.Minute)
			}
		}(int64(i))
	}
	wg.Wait()
	if tr.Len() != 4 {
		t.Fatalf("ожидали 4 чата, получили %d", tr.Len())
	}
}
