package anomaly_test

import (
	"context"
	"testing"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		rec := anomaly.NewRecorder("g1", logger.Get())

		Convey("When anomalies are recorded", func() {
			rec.Record(ctx, model.AnomalySkaterClamp, 42, "home=%d", 2)
			rec.Record(ctx, model.AnomalySwappedInterval, 7, "penalty %s", "p1")
			rec.Record(ctx, model.AnomalySkaterClamp, 43, "home=%d", 2)

			Convey("Then they should be kept in order with formatted details", func() {
				items := rec.Anomalies()
				So(items, ShouldHaveLength, 3)
				So(items[0], ShouldResemble, model.Anomaly{Kind: model.AnomalySkaterClamp, Time: 42, Detail: "home=2"})
				So(rec.Count(model.AnomalySkaterClamp), ShouldEqual, 2)
				So(rec.Count(model.AnomalyDegenerateShift), ShouldEqual, 0)
			})

			Convey("Then the returned slice should be a copy", func() {
				items := rec.Anomalies()
				items[0].Time = 0
				So(rec.Anomalies()[0].Time, ShouldEqual, 42)
			})
		})

		Convey("When the recorder is nil", func() {
			var nilRec *anomaly.Recorder

			Convey("Then it should be a no-op", func() {
				So(func() { nilRec.Record(ctx, model.AnomalySkaterClamp, 1, "x") }, ShouldNotPanic)
				So(nilRec.Anomalies(), ShouldBeNil)
				So(nilRec.Count(model.AnomalySkaterClamp), ShouldEqual, 0)
			})
		})
	})
}
