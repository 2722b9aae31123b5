package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/rinktime/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGameTracker(t *testing.T) {
	Convey("Given a new game tracker", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a game is recorded", func() {
			seen := d.SeenAndRecord(ctx, "2024020001")

			Convey("Then it should be new the first time only", func() {
				So(seen, ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "2024020001"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded game is unrecorded", func() {
			d.SeenAndRecord(ctx, "g1")
			d.Unrecord(ctx, "g1")
			d.Unrecord(ctx, "missing")

			Convey("Then it can be accepted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "g1"), ShouldBeFalse)
			})
		})
	})
}

func TestGameTrackerEviction(t *testing.T) {
	Convey("Given a tracker remembering three games", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"g1", "g2", "g3"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth game arrives", func() {
			So(d.SeenAndRecord(ctx, "g4"), ShouldBeFalse)

			Convey("Then the oldest game should be forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "g3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "g4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "g1"), ShouldBeFalse)
			})
		})

		Convey("When a middle game is unrecorded and two more arrive", func() {
			d.Unrecord(ctx, "g2")
			d.SeenAndRecord(ctx, "g4")
			d.SeenAndRecord(ctx, "g5")

			Convey("Then size should stay within the bound", func() {
				So(d.Size(), ShouldBeLessThanOrEqualTo, 3)
				So(d.SeenAndRecord(ctx, "g5"), ShouldBeTrue)
			})
		})

		Convey("When the empty ID is recorded", func() {
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("x%d", i))
			}

			Convey("Then it should be evicted like any other", func() {
				So(d.Size(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an unbounded tracker", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))
		const n = 1000
		for i := 0; i < n; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("g%d", i))
		}

		Convey("Then nothing should be forgotten", func() {
			So(d.Size(), ShouldEqual, int64(n))
			So(d.SeenAndRecord(ctx, "g0"), ShouldBeTrue)
		})
	})
}

func TestGameTrackerConcurrency(t *testing.T) {
	Convey("Given concurrent submitters", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const workers, perWorker = 10, 100

		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					// Every worker submits the same games.
					if !d.SeenAndRecord(ctx, fmt.Sprintf("g%d", j)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each game should be accepted exactly once", func() {
			So(fresh, ShouldEqual, perWorker)
			So(d.Size(), ShouldEqual, int64(perWorker))
		})
	})
}
