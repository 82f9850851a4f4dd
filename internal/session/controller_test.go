package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/domain/scoring"
	"github.com/mfcastro/palco/internal/session"
	"github.com/mfcastro/palco/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCatalog struct {
	songs map[string]model.Song
}

func (f *fakeCatalog) GetSongs(context.Context) ([]model.Song, error) {
	out := make([]model.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCatalog) GetSongByNumber(_ context.Context, key string) (model.Song, error) {
	for _, s := range f.songs {
		if s.Number == key || s.ID == key {
			return s, nil
		}
	}
	return model.Song{}, errors.New("song not found")
}

type fakeQueue struct {
	entries []model.QueueEntry
	nextID  int
}

func (f *fakeQueue) GetQueue(context.Context) ([]model.QueueEntry, error) {
	out := make([]model.QueueEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeQueue) Enqueue(_ context.Context, song model.Song, singer string) (model.QueueEntry, error) {
	f.nextID++
	entry := model.QueueEntry{
		ID:       fmt.Sprintf("q%d", f.nextID),
		Song:     song,
		Singer:   singer,
		Position: len(f.entries) + 1,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeQueue) DequeueAt(_ context.Context, index int) error {
	if index < 0 || index >= len(f.entries) {
		return errors.New("invalid index")
	}
	f.entries = append(f.entries[:index], f.entries[index+1:]...)
	for i := range f.entries {
		f.entries[i].Position = i + 1
	}
	return nil
}

type fakeRanking struct {
	entries []model.RankingEntry
}

func (f *fakeRanking) Top(_ context.Context, n int) ([]model.RankingEntry, error) {
	return f.entries, nil
}

func (f *fakeRanking) AddEntry(_ context.Context, song model.Song, singer string, score int) (model.RankingEntry, error) {
	entry := model.RankingEntry{
		ID:     fmt.Sprintf("r%d", len(f.entries)+1),
		Song:   song,
		Singer: singer,
		Score:  score,
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

type fakeSettings struct {
	value model.Settings
}

func (f *fakeSettings) Settings(context.Context) (model.Settings, error) {
	return f.value, nil
}

type effectRecorder struct {
	played []scoring.Tier
}

func (e *effectRecorder) Play(_ context.Context, tier scoring.Tier) error {
	e.played = append(e.played, tier)
	return nil
}

type fixedScore int

func (s fixedScore) Generate() int { return int(s) }

// harness bundles the controller with all its fakes.
type harness struct {
	ctrl     *session.Controller
	clk      *clock.Fake
	catalog  *fakeCatalog
	queue    *fakeQueue
	ranking  *fakeRanking
	settings *fakeSettings
	effects  *effectRecorder
	delays   *[]time.Duration
}

func newHarness(score int, songs ...model.Song) *harness {
	catalog := &fakeCatalog{songs: make(map[string]model.Song)}
	for _, s := range songs {
		catalog.songs[s.ID] = s
	}
	queue := &fakeQueue{}
	ranking := &fakeRanking{}
	settings := &fakeSettings{value: model.Settings{VideosPath: "/srv/videos"}}
	effects := &effectRecorder{}
	clk := clock.NewFake(time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC))

	delays := &[]time.Duration{}
	ctrl := session.New(catalog, queue, ranking, settings, effects, fixedScore(score),
		session.WithClock(clk),
		session.WithDelayFunc(func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		}),
	)
	return &harness{
		ctrl: ctrl, clk: clk, catalog: catalog, queue: queue,
		ranking: ranking, settings: settings, effects: effects, delays: delays,
	}
}

var (
	song101 = model.Song{ID: "s1", Number: "101", Title: "Garota de Ipanema", Artist: "Tom Jobim"}
	song102 = model.Song{ID: "s2", Number: "102", Title: "Aquarela", Artist: "Toquinho"}
)

func TestController_ScoredPerformance(t *testing.T) {
	Convey("Given Ana and Beto waiting on the queue", t, func() {
		ctx := context.Background()
		h := newHarness(95, song101, song102)

		_, err := h.ctrl.Select(ctx, "101")
		So(err, ShouldBeNil)
		_, err = h.ctrl.EnqueueCurrent(ctx, "Ana")
		So(err, ShouldBeNil)
		_, err = h.ctrl.Select(ctx, "102")
		So(err, ShouldBeNil)
		_, err = h.ctrl.EnqueueCurrent(ctx, "Beto")
		So(err, ShouldBeNil)

		Convey("When Ana's song plays past the minimum and ends", func() {
			_, err := h.ctrl.Select(ctx, "101")
			So(err, ShouldBeNil)
			So(h.ctrl.VideoName(), ShouldEqual, "101.mp4")

			So(h.ctrl.StartPlayback(ctx), ShouldBeNil)
			So(h.ctrl.State(), ShouldEqual, session.StatePlaying)

			Convey("Then Ana's entry left the queue at playback start", func() {
				entries, _ := h.queue.GetQueue(ctx)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Singer, ShouldEqual, "Beto")
				So(entries[0].Position, ShouldEqual, 1)
			})

			h.clk.Advance(61 * time.Second)
			res, err := h.ctrl.EndPlayback(ctx)
			So(err, ShouldBeNil)

			Convey("Then the performance is scored and committed", func() {
				So(res.Incomplete, ShouldBeFalse)
				So(res.Score, ShouldEqual, 95)
				So(res.Tier, ShouldEqual, scoring.TierHigh)
				So(res.Committed, ShouldBeTrue)
			})

			Convey("Then the score is credited to the current queue head", func() {
				// Beto moved to the head when Ana's entry was dequeued, so
				// the commit names Beto even though the played song is 101.
				So(len(h.ranking.entries), ShouldEqual, 1)
				So(h.ranking.entries[0].Singer, ShouldEqual, "Beto")
				So(h.ranking.entries[0].Song.Number, ShouldEqual, "101")
				So(h.ranking.entries[0].Score, ShouldEqual, 95)
			})

			Convey("Then the head entry is dequeued after the commit", func() {
				entries, _ := h.queue.GetQueue(ctx)
				So(entries, ShouldBeEmpty)
			})

			Convey("Then effects play drum roll first, tier second", func() {
				So(h.effects.played, ShouldResemble, []scoring.Tier{scoring.TierDrums, scoring.TierHigh})
			})

			Convey("Then the reveal and return delays are observed in order", func() {
				So(*h.delays, ShouldResemble, []time.Duration{7 * time.Second, 6 * time.Second})
			})

			Convey("Then the controller returns to idle", func() {
				So(h.ctrl.State(), ShouldEqual, session.StateIdle)
				So(h.ctrl.VideoName(), ShouldBeEmpty)
			})
		})
	})
}

func TestController_IncompletePerformance(t *testing.T) {
	Convey("Given a playing performance stopped before the minimum", t, func() {
		ctx := context.Background()
		h := newHarness(80, song101)

		_, err := h.ctrl.Select(ctx, "101")
		So(err, ShouldBeNil)
		So(h.ctrl.StartPlayback(ctx), ShouldBeNil)
		h.clk.Advance(30 * time.Second)

		res, err := h.ctrl.StopPlayback(ctx)
		So(err, ShouldBeNil)

		Convey("Then no score is produced and nothing is committed", func() {
			So(res.Incomplete, ShouldBeTrue)
			So(res.Score, ShouldEqual, 0)
			So(res.Committed, ShouldBeFalse)
			So(h.ranking.entries, ShouldBeEmpty)
		})

		Convey("Then only the incomplete effect plays", func() {
			So(h.effects.played, ShouldResemble, []scoring.Tier{scoring.TierIncomplete})
		})

		Convey("Then only the return delay is observed", func() {
			So(*h.delays, ShouldResemble, []time.Duration{6 * time.Second})
		})

		Convey("Then the controller returns to idle", func() {
			So(h.ctrl.State(), ShouldEqual, session.StateIdle)
		})
	})
}

func TestController_ScoringWithEmptyQueue(t *testing.T) {
	Convey("Given a performance with nobody on the queue", t, func() {
		ctx := context.Background()
		h := newHarness(70, song101)

		_, err := h.ctrl.Select(ctx, "101")
		So(err, ShouldBeNil)
		So(h.ctrl.StartPlayback(ctx), ShouldBeNil)
		h.clk.Advance(2 * time.Minute)

		res, err := h.ctrl.EndPlayback(ctx)
		So(err, ShouldBeNil)

		Convey("Then the score is shown but never committed", func() {
			So(res.Score, ShouldEqual, 70)
			So(res.Tier, ShouldEqual, scoring.TierLow)
			So(res.Committed, ShouldBeFalse)
			So(h.ranking.entries, ShouldBeEmpty)
		})
	})
}

func TestController_StateGuards(t *testing.T) {
	Convey("Given an idle controller", t, func() {
		ctx := context.Background()
		h := newHarness(80, song101)

		Convey("Finishing playback is rejected", func() {
			_, err := h.ctrl.EndPlayback(ctx)
			So(errors.Is(err, session.ErrBadState), ShouldBeTrue)
		})

		Convey("Enqueueing without a selection is rejected", func() {
			_, err := h.ctrl.EnqueueCurrent(ctx, "Ana")
			So(errors.Is(err, session.ErrBadState), ShouldBeTrue)
		})

		Convey("Starting playback without a selection is rejected", func() {
			err := h.ctrl.StartPlayback(ctx)
			So(errors.Is(err, session.ErrBadState), ShouldBeTrue)
		})

		Convey("Selecting an unknown song stays idle", func() {
			_, err := h.ctrl.Select(ctx, "999")
			So(err, ShouldNotBeNil)
			So(h.ctrl.State(), ShouldEqual, session.StateIdle)
		})
	})
}

func TestController_IdlePolling(t *testing.T) {
	Convey("Given a controller whose poll ticks once and then stops", t, func() {
		ctx := context.Background()
		h := newHarness(80, song101)
		_, err := h.queue.Enqueue(ctx, song101, "Ana")
		So(err, ShouldBeNil)
		_, err = h.ranking.AddEntry(ctx, song101, "Ana", 88)
		So(err, ShouldBeNil)

		ticks := 0
		ctrl := session.New(h.catalog, h.queue, h.ranking, h.settings, h.effects, fixedScore(80),
			session.WithClock(h.clk),
			session.WithDelayFunc(func(context.Context, time.Duration) error {
				ticks++
				if ticks > 1 {
					return context.Canceled
				}
				return nil
			}),
		)

		Convey("When the polling loop runs", func() {
			err := ctrl.Run(ctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)

			Convey("Then the snapshot reflects queue, ranking and settings", func() {
				snap := ctrl.Snapshot()
				So(len(snap.Queue), ShouldEqual, 1)
				So(snap.Queue[0].Singer, ShouldEqual, "Ana")
				So(len(snap.Ranking), ShouldEqual, 1)
				So(snap.Settings.VideosPath, ShouldEqual, "/srv/videos")
				So(snap.RefreshedAt.Equal(h.clk.Now()), ShouldBeTrue)
			})
		})
	})
}
