package scoring_test

import (
	"math/rand"
	"testing"

	"github.com/mfcastro/palco/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator_Range(t *testing.T) {
	Convey("Given a score generator", t, func() {
		gen := scoring.NewGenerator()

		Convey("When generating 10000 scores", func() {
			seen := make(map[int]bool)
			for i := 0; i < 10000; i++ {
				s := gen.Generate()
				if s < scoring.MinScore || s > scoring.MaxScore {
					t.Fatalf("score %d out of range", s)
				}
				seen[s] = true
			}

			Convey("Then every score lies in [65,100]", func() {
				So(len(seen), ShouldBeGreaterThan, 0)
				for s := range seen {
					So(s, ShouldBeBetweenOrEqual, scoring.MinScore, scoring.MaxScore)
				}
			})

			Convey("And the distribution covers the full range", func() {
				// 10000 draws over 36 values; both endpoints should appear.
				So(seen[scoring.MinScore], ShouldBeTrue)
				So(seen[scoring.MaxScore], ShouldBeTrue)
			})
		})
	})
}

func TestGenerator_Deterministic(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := scoring.NewGenerator(scoring.WithSource(rand.NewSource(7)))
		b := scoring.NewGenerator(scoring.WithSource(rand.NewSource(7)))

		Convey("Then they produce the same sequence", func() {
			for i := 0; i < 100; i++ {
				So(a.Generate(), ShouldEqual, b.Generate())
			}
		})
	})
}

func TestTierFor(t *testing.T) {
	Convey("Given the tier thresholds", t, func() {
		Convey("Scores of 90 and above are high", func() {
			So(scoring.TierFor(90), ShouldEqual, scoring.TierHigh)
			So(scoring.TierFor(100), ShouldEqual, scoring.TierHigh)
		})

		Convey("Scores of 75 to 89 are medium", func() {
			So(scoring.TierFor(75), ShouldEqual, scoring.TierMedium)
			So(scoring.TierFor(89), ShouldEqual, scoring.TierMedium)
		})

		Convey("Scores below 75 are low", func() {
			So(scoring.TierFor(65), ShouldEqual, scoring.TierLow)
			So(scoring.TierFor(74), ShouldEqual, scoring.TierLow)
		})
	})
}

func TestInRange(t *testing.T) {
	Convey("Given the score bounds", t, func() {
		So(scoring.InRange(65), ShouldBeTrue)
		So(scoring.InRange(100), ShouldBeTrue)
		So(scoring.InRange(64), ShouldBeFalse)
		So(scoring.InRange(101), ShouldBeFalse)
		So(scoring.InRange(0), ShouldBeFalse)
	})
}
