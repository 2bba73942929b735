package enumerator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/httpclient"
)

type stubSession struct{}

func (stubSession) Cookies(ctx context.Context) ([]*http.Cookie, error) { return nil, nil }
func (stubSession) Refresh(ctx context.Context) error                  { return nil }

type stubSubscription struct{ subscribed bool }

func (s stubSubscription) IsSubscribed(ctx context.Context, communityID int64) (bool, error) {
	return s.subscribed, nil
}

func TestListMediaPaginatesAndPartitions(t *testing.T) {
	mediaCalls := 0
	liveCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/1/medias/recent", func(w http.ResponseWriter, r *http.Request) {
		mediaCalls++
		if mediaCalls == 1 {
			fmt.Fprint(w, `{"code":"0000","data":{"contents":[
				{"mediaId":"v1","mediaType":"VOD","communityId":1,"isFanclubOnly":false,"publishedAt":"2026-01-01T00:00:00Z","title":"a"},
				{"mediaId":"p1","mediaType":"PHOTO","communityId":1,"isFanclubOnly":false,"publishedAt":"2026-01-01T00:00:00Z","title":"b"}
			],"cursor":{"next":"cur2"},"hasNext":true}}`)
			return
		}
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[
			{"mediaId":"v2","mediaType":"VOD","communityId":1,"isFanclubOnly":true,"publishedAt":"2026-01-02T00:00:00Z","title":"c"}
		],"cursor":{"next":""},"hasNext":false}}`)
	})
	mux.HandleFunc("/service/v1/community/1/medias/live/end", func(w http.ResponseWriter, r *http.Request) {
		liveCalls++
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[
			{"mediaId":"l1","mediaType":"LIVE","communityId":1,"isFanclubOnly":false,"publishedAt":"2026-01-01T00:00:00Z","title":"d"}
		],"cursor":{"next":""},"hasNext":false}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc := httpclient.New(stubSession{}, 5*time.Second)
	e := New(hc, srv.URL, stubSubscription{subscribed: true})

	vods, photos, lives, err := e.ListMedia(context.Background(), 1, TimeWindow{}, domain.FanclubUnset)
	require.NoError(t, err)
	require.Len(t, vods, 2)
	require.Len(t, photos, 1)
	require.Len(t, lives, 1)
	require.Equal(t, 2, mediaCalls)
	require.Equal(t, 1, liveCalls)
}

func TestListMediaFanclubExcludeFiltersOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/1/medias/recent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[
			{"mediaId":"v1","mediaType":"VOD","communityId":1,"isFanclubOnly":true,"publishedAt":"2026-01-01T00:00:00Z","title":"a"}
		],"cursor":{"next":""},"hasNext":false}}`)
	})
	mux.HandleFunc("/service/v1/community/1/medias/live/end", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[],"cursor":{"next":""},"hasNext":false}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc := httpclient.New(stubSession{}, 5*time.Second)
	e := New(hc, srv.URL, stubSubscription{subscribed: true})

	vods, _, _, err := e.ListMedia(context.Background(), 1, TimeWindow{}, domain.FanclubExclude)
	require.NoError(t, err)
	require.Empty(t, vods)
}

func TestListMediaTimeWindowFiltersOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/1/medias/recent", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[
			{"mediaId":"v1","mediaType":"VOD","communityId":1,"publishedAt":"2020-01-01T00:00:00Z","title":"old"},
			{"mediaId":"v2","mediaType":"VOD","communityId":1,"publishedAt":"2026-06-01T00:00:00Z","title":"new"}
		],"cursor":{"next":""},"hasNext":false}}`)
	})
	mux.HandleFunc("/service/v1/community/1/medias/live/end", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[],"cursor":{"next":""},"hasNext":false}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc := httpclient.New(stubSession{}, 5*time.Second)
	e := New(hc, srv.URL, nil)

	window := TimeWindow{From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)}
	vods, _, _, err := e.ListMedia(context.Background(), 1, window, domain.FanclubUnset)
	require.NoError(t, err)
	require.Len(t, vods, 1)
	require.Equal(t, "v2", vods[0].ID)
}

func TestListNotifyLivesDispatchesNCA005AndNCA011(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[
			{"communityId":1,"notificationCase":"NCA005","publishedAt":"2026-01-01T00:00:00Z","isFanclubOnly":false,"messageByType":{"context":"going live"},"additionalInfo":{"notificationInfo":{"liveId":"live1","liveStatus":"ON_AIR"}}},
			{"communityId":1,"notificationCase":"NCA011","publishedAt":"2026-01-01T01:00:00Z","isFanclubOnly":true,"messageByType":{"context":"live update"},"additionalInfo":{"notificationInfo":{"mediaId":"live2","liveStatus":"END"}}},
			{"communityId":1,"notificationCase":"NCA001","publishedAt":"2026-01-01T02:00:00Z"}
		],"cursor":{"next":""},"hasNext":false}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc := httpclient.New(stubSession{}, 5*time.Second)
	e := New(hc, srv.URL, nil)

	lives, err := e.ListNotifyLives(context.Background(), 1, TimeWindow{})
	require.NoError(t, err)
	require.Len(t, lives, 2)
	require.Equal(t, "live1", lives[0].ID)
	require.Equal(t, domain.MediaLive, lives[0].Type)
	require.Equal(t, "live2", lives[1].ID)
	require.True(t, lives[1].IsFanclubOnly)
}

func TestListNoticesStopsOnEmptyPage(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/1/notices", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"code":"0000","data":{"contents":[{"communityNoticeId":1,"communityId":1,"publishedAt":"2026-01-01T00:00:00Z","title":"n1"}],"next":"cur2"}}`)
			return
		}
		fmt.Fprint(w, `{"code":"0000","data":{"contents":[],"next":""}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hc := httpclient.New(stubSession{}, 5*time.Second)
	e := New(hc, srv.URL, nil)

	notices, err := e.ListNotices(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.Equal(t, 2, calls)
}
