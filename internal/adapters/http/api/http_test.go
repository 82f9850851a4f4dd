package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/mfcastro/palco/internal/adapters/http/api"
	repository "github.com/mfcastro/palco/internal/adapters/repository"
	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/queue"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps is an in-memory implementation of the handler dependency
// surface, just enough to drive the HTTP layer.
type fakeDeps struct {
	songs    map[string]model.Song
	queue    []model.QueueEntry
	ranking  []model.RankingEntry
	settings model.Settings
	nextID   int
}

func newFakeDeps(songs ...model.Song) *fakeDeps {
	f := &fakeDeps{songs: make(map[string]model.Song)}
	for _, s := range songs {
		f.songs[s.ID] = s
	}
	return f
}

func (f *fakeDeps) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeDeps) Songs(context.Context) ([]model.Song, error) {
	out := make([]model.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeDeps) SongByKey(_ context.Context, key string) (model.Song, error) {
	if s, ok := f.songs[key]; ok {
		return s, nil
	}
	for _, s := range f.songs {
		if s.Number == key {
			return s, nil
		}
	}
	return model.Song{}, repository.ErrNotFound
}

func (f *fakeDeps) AddSong(_ context.Context, s model.Song) (model.Song, error) {
	s.ID = f.id("s")
	f.songs[s.ID] = s
	return s, nil
}

func (f *fakeDeps) UpdateSong(_ context.Context, s model.Song) (model.Song, error) {
	if _, ok := f.songs[s.ID]; !ok {
		return model.Song{}, repository.ErrNotFound
	}
	f.songs[s.ID] = s
	return s, nil
}

func (f *fakeDeps) DeleteSong(_ context.Context, id string) error {
	if _, ok := f.songs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.songs, id)
	return nil
}

func (f *fakeDeps) Queue(context.Context) ([]model.QueueEntry, error) {
	return f.queue, nil
}

func (f *fakeDeps) Enqueue(ctx context.Context, songKey, singer string) (model.QueueEntry, error) {
	song, err := f.SongByKey(ctx, songKey)
	if err != nil {
		return model.QueueEntry{}, err
	}
	entry := model.QueueEntry{
		ID:       f.id("q"),
		Song:     song,
		Singer:   singer,
		Position: len(f.queue) + 1,
	}
	f.queue = append(f.queue, entry)
	return entry, nil
}

func (f *fakeDeps) DequeueAt(_ context.Context, index int) error {
	if index < 0 || index >= len(f.queue) {
		return queue.ErrInvalidIndex
	}
	f.queue = append(f.queue[:index], f.queue[index+1:]...)
	for i := range f.queue {
		f.queue[i].Position = i + 1
	}
	return nil
}

func (f *fakeDeps) MoveQueueItem(_ context.Context, fromIndex, toIndex int) error {
	if fromIndex < 0 || toIndex < 0 || fromIndex >= len(f.queue) || toIndex >= len(f.queue) {
		return queue.ErrInvalidIndex
	}
	f.queue[fromIndex], f.queue[toIndex] = f.queue[toIndex], f.queue[fromIndex]
	for i := range f.queue {
		f.queue[i].Position = i + 1
	}
	return nil
}

func (f *fakeDeps) ClearQueue(context.Context) error {
	f.queue = nil
	return nil
}

func (f *fakeDeps) Ranking(_ context.Context, limit int) ([]model.RankingEntry, error) {
	out := make([]model.RankingEntry, len(f.ranking))
	copy(out, f.ranking)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit <= 0 {
		limit = 5
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDeps) CommitScore(ctx context.Context, songKey, singer string, score int) (model.RankingEntry, error) {
	song, err := f.SongByKey(ctx, songKey)
	if err != nil {
		return model.RankingEntry{}, err
	}
	entry := model.RankingEntry{ID: f.id("r"), Song: song, Singer: singer, Score: score}
	f.ranking = append(f.ranking, entry)
	return entry, nil
}

func (f *fakeDeps) ClearRanking(context.Context) error {
	f.ranking = nil
	return nil
}

func (f *fakeDeps) Settings(context.Context) (model.Settings, error) {
	return f.settings, nil
}

func (f *fakeDeps) SaveSettings(_ context.Context, s model.Settings) (model.Settings, error) {
	f.settings = s
	return s, nil
}

func newTestServer(deps api.Dependencies) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

var (
	songA = model.Song{ID: "sa", Number: "101", Title: "Garota de Ipanema", Artist: "Tom Jobim"}
	songB = model.Song{ID: "sb", Number: "102", Title: "Aquarela", Artist: "Toquinho"}
)

func TestSongsEndpoints(t *testing.T) {
	Convey("Given an API server over a two-song catalog", t, func() {
		deps := newFakeDeps(songA, songB)
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("GET /api/songs lists the catalog", func() {
			resp := doJSON(t, http.MethodGet, srv.URL+"/api/songs", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			songs := decodeBody[[]model.Song](t, resp)
			So(len(songs), ShouldEqual, 2)
			So(songs[0].Number, ShouldEqual, "101")
		})

		Convey("GET /api/songs/{number} resolves by display number", func() {
			resp := doJSON(t, http.MethodGet, srv.URL+"/api/songs/102", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(decodeBody[model.Song](t, resp).Title, ShouldEqual, "Aquarela")
		})

		Convey("GET /api/songs/{missing} is a 404 with an error body", func() {
			resp := doJSON(t, http.MethodGet, srv.URL+"/api/songs/999", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			body := decodeBody[map[string]string](t, resp)
			So(body["code"], ShouldEqual, "not_found")
		})

		Convey("POST /api/songs creates and POST without a title is rejected", func() {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/songs", map[string]string{
				"number": "103", "title": "Trem das Onze", "artist": "Adoniran Barbosa",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			created := decodeBody[model.Song](t, resp)
			So(created.ID, ShouldNotBeEmpty)

			resp = doJSON(t, http.MethodPost, srv.URL+"/api/songs", map[string]string{"number": "104"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("DELETE /api/songs/{id} removes the row", func() {
			resp := doJSON(t, http.MethodDelete, srv.URL+"/api/songs/sa", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			resp.Body.Close()
			_, ok := deps.songs["sa"]
			So(ok, ShouldBeFalse)
		})
	})
}

func TestQueueEndpoints(t *testing.T) {
	Convey("Given an API server with an empty queue", t, func() {
		deps := newFakeDeps(songA, songB)
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("POST /api/queue enqueues by song number", func() {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/queue", map[string]string{
				"song": "101", "singer": "Ana",
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			entry := decodeBody[model.QueueEntry](t, resp)
			So(entry.Position, ShouldEqual, 1)
			So(entry.Song.Title, ShouldEqual, "Garota de Ipanema")
		})

		Convey("POST /api/queue without a singer is rejected", func() {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/queue", map[string]string{"song": "101"})
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			resp.Body.Close()
		})

		Convey("With two singers queued", func() {
			doJSON(t, http.MethodPost, srv.URL+"/api/queue", map[string]string{"song": "101", "singer": "Ana"}).Body.Close()
			doJSON(t, http.MethodPost, srv.URL+"/api/queue", map[string]string{"song": "102", "singer": "Beto"}).Body.Close()

			Convey("DELETE /api/queue/0 drops the head and renumbers", func() {
				resp := doJSON(t, http.MethodDelete, srv.URL+"/api/queue/0", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
				resp.Body.Close()

				resp = doJSON(t, http.MethodGet, srv.URL+"/api/queue", nil)
				entries := decodeBody[[]model.QueueEntry](t, resp)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Singer, ShouldEqual, "Beto")
				So(entries[0].Position, ShouldEqual, 1)
			})

			Convey("DELETE /api/queue/9 is an invalid index", func() {
				resp := doJSON(t, http.MethodDelete, srv.URL+"/api/queue/9", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				body := decodeBody[map[string]string](t, resp)
				So(body["code"], ShouldEqual, "invalid_index")
			})

			Convey("POST /api/queue/move swaps the two entries", func() {
				resp := doJSON(t, http.MethodPost, srv.URL+"/api/queue/move", map[string]int{"from": 0, "to": 1})
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
				resp.Body.Close()
				So(deps.queue[0].Singer, ShouldEqual, "Beto")
			})

			Convey("DELETE /api/queue clears everything", func() {
				resp := doJSON(t, http.MethodDelete, srv.URL+"/api/queue", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
				resp.Body.Close()
				So(deps.queue, ShouldBeEmpty)
			})
		})
	})
}

func TestRankingEndpoints(t *testing.T) {
	Convey("Given an API server with committed scores", t, func() {
		deps := newFakeDeps(songA, songB)
		srv := newTestServer(deps)
		defer srv.Close()

		for _, sc := range []int{70, 99, 85, 66, 92, 78} {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/ranking", map[string]any{
				"song": "101", "singer": "Ana", "score": sc,
			})
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			resp.Body.Close()
		}

		Convey("GET /api/ranking defaults to the top five, descending", func() {
			resp := doJSON(t, http.MethodGet, srv.URL+"/api/ranking", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			entries := decodeBody[[]model.RankingEntry](t, resp)
			So(len(entries), ShouldEqual, 5)
			So(entries[0].Score, ShouldEqual, 99)
			So(entries[4].Score, ShouldEqual, 70)
		})

		Convey("GET /api/ranking?limit=2 narrows the board", func() {
			resp := doJSON(t, http.MethodGet, srv.URL+"/api/ranking?limit=2", nil)
			entries := decodeBody[[]model.RankingEntry](t, resp)
			So(len(entries), ShouldEqual, 2)
		})

		Convey("POST with a score outside [65,100] is rejected at the edge", func() {
			for _, sc := range []int{64, 101, 0, -5} {
				resp := doJSON(t, http.MethodPost, srv.URL+"/api/ranking", map[string]any{
					"song": "101", "singer": "Ana", "score": sc,
				})
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				resp.Body.Close()
			}
		})

		Convey("Boundary scores 65 and 100 are accepted", func() {
			for _, sc := range []int{65, 100} {
				resp := doJSON(t, http.MethodPost, srv.URL+"/api/ranking", map[string]any{
					"song": "102", "singer": "Beto", "score": sc,
				})
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				resp.Body.Close()
			}
		})

		Convey("DELETE /api/ranking clears the board", func() {
			resp := doJSON(t, http.MethodDelete, srv.URL+"/api/ranking", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			resp.Body.Close()
			So(deps.ranking, ShouldBeEmpty)
		})
	})
}

func TestSettingsEndpoints(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newFakeDeps()
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("PUT then GET round-trips the settings singleton", func() {
			want := model.Settings{
				VideosPath:      "/srv/videos",
				BackgroundImage: "palco.png",
				SoundEffects: model.SoundEffects{
					Low: "low.mp3", Medium: "medium.mp3", High: "high.mp3",
					Drums: "tambores.mp3", Incomplete: "incomplete.mp3",
				},
			}
			resp := doJSON(t, http.MethodPut, srv.URL+"/api/settings", want)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			resp.Body.Close()

			resp = doJSON(t, http.MethodGet, srv.URL+"/api/settings", nil)
			got := decodeBody[model.Settings](t, resp)
			So(got.VideosPath, ShouldEqual, "/srv/videos")
			So(got.SoundEffects.Drums, ShouldEqual, "tambores.mp3")
		})
	})
}
