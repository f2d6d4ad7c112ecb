package domain_test

import (
	"testing"

	"github.com/bangerpicks/backend/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAccuracy(t *testing.T) {
	Convey("Accuracy is the rounded percentage of correct predictions", t, func() {
		So(domain.Accuracy(3, 7), ShouldEqual, 43)
		So(domain.Accuracy(1, 3), ShouldEqual, 33)
		So(domain.Accuracy(2, 3), ShouldEqual, 67)
		So(domain.Accuracy(5, 5), ShouldEqual, 100)
		So(domain.Accuracy(0, 4), ShouldEqual, 0)

		Convey("And zero totals never divide", func() {
			So(domain.Accuracy(0, 0), ShouldEqual, 0)
			So(domain.Accuracy(3, 0), ShouldEqual, 0)
		})
	})
}

func TestPickValid(t *testing.T) {
	Convey("Only the three categorical picks are valid", t, func() {
		So(domain.PickHome.Valid(), ShouldBeTrue)
		So(domain.PickDraw.Valid(), ShouldBeTrue)
		So(domain.PickAway.Valid(), ShouldBeTrue)
		So(domain.Pick("").Valid(), ShouldBeFalse)
		So(domain.Pick("both").Valid(), ShouldBeFalse)
	})
}
