package scorefeed_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bangerpicks/backend/internal/domain"
	"github.com/bangerpicks/backend/internal/platform/scorefeed"
	. "github.com/smartystreets/goconvey/convey"
)

const fixturesBody = `{
	"get": "fixtures",
	"errors": [],
	"results": 2,
	"response": [
		{
			"fixture": {"id": 215662, "date": "2026-08-29T14:00:00+00:00", "status": {"long": "Match Finished", "short": "FT", "elapsed": 90}},
			"teams": {"home": {"id": 1, "name": "Arsenal"}, "away": {"id": 2, "name": "Chelsea"}},
			"goals": {"home": 2, "away": 1}
		},
		{
			"fixture": {"id": 215663, "date": "2026-08-29T16:30:00+00:00", "status": {"long": "Second Half", "short": "2H", "elapsed": 71}},
			"teams": {"home": {"id": 3, "name": "Everton"}, "away": {"id": 4, "name": "Fulham"}},
			"goals": {"home": 0, "away": null}
		}
	]
}`

func newClient(srv *httptest.Server) *scorefeed.Client {
	return scorefeed.New(scorefeed.ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
}

func TestFetchByIDs(t *testing.T) {
	Convey("Given a provider returning two fixtures", t, func() {
		var gotIDs, gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotIDs = r.URL.Query().Get("ids")
			gotKey = r.Header.Get("x-apisports-key")
			fmt.Fprint(w, fixturesBody)
		}))
		defer srv.Close()

		client := newClient(srv)

		Convey("When fetching by IDs", func() {
			snaps, err := client.FetchByIDs(context.Background(), []int64{215662, 215663})

			Convey("Then both snapshots map onto the domain model", func() {
				So(err, ShouldBeNil)
				So(snaps, ShouldHaveLength, 2)

				So(snaps[0].ExternalID, ShouldEqual, 215662)
				So(snaps[0].Status, ShouldEqual, domain.StatusFullTime)
				So(snaps[0].HomeTeam, ShouldEqual, "Arsenal")
				So(*snaps[0].HomeGoals, ShouldEqual, 2)
				So(*snaps[0].AwayGoals, ShouldEqual, 1)
				So(snaps[0].Payload, ShouldNotBeEmpty)

				So(snaps[1].ExternalID, ShouldEqual, 215663)
				So(snaps[1].Status, ShouldEqual, domain.StatusSecondHalf)
				So(snaps[1].AwayGoals, ShouldBeNil)
			})

			Convey("And the request carried the joined IDs and the API key", func() {
				So(gotIDs, ShouldEqual, "215662-215663")
				So(gotKey, ShouldEqual, "test-key")
			})
		})

		Convey("When fetching with no IDs", func() {
			snaps, err := client.FetchByIDs(context.Background(), nil)

			Convey("Then no request is made and nothing is returned", func() {
				So(err, ShouldBeNil)
				So(snaps, ShouldBeNil)
				So(gotIDs, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a provider reporting an in-band error on HTTP 200", t, func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			fmt.Fprint(w, `{"get":"fixtures","errors":{"token":"Error/Missing application key."},"results":0,"response":[]}`)
		}))
		defer srv.Close()

		client := newClient(srv)

		Convey("When fetching", func() {
			_, err := client.FetchByIDs(context.Background(), []int64{1})

			Convey("Then the call fails without retrying", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, domain.ErrProvider), ShouldBeTrue)
				So(atomic.LoadInt32(&calls), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a provider that recovers after a 5xx", t, func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, fixturesBody)
		}))
		defer srv.Close()

		client := newClient(srv)

		Convey("When fetching", func() {
			snaps, err := client.FetchByIDs(context.Background(), []int64{215662, 215663})

			Convey("Then the bounded retry succeeds on the second attempt", func() {
				So(err, ShouldBeNil)
				So(snaps, ShouldHaveLength, 2)
				So(atomic.LoadInt32(&calls), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a provider rejecting the credential with a 4xx", t, func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client := newClient(srv)

		Convey("When fetching", func() {
			_, err := client.FetchByIDs(context.Background(), []int64{1})

			Convey("Then the failure is permanent", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, domain.ErrProvider), ShouldBeTrue)
				So(atomic.LoadInt32(&calls), ShouldEqual, 1)
			})
		})
	})
}
