package berrizapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/httpclient"
)

type stubSession struct{}

func (stubSession) Cookies(ctx context.Context) ([]*http.Cookie, error) { return nil, nil }
func (stubSession) Refresh(ctx context.Context) error                   { return nil }

func TestPlaybackInfoParsesDRMFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/medias/m1/playback_info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{
			"mediaUrl":"https://cdn/manifest.mpd",
			"drmType":"widevine",
			"acquireLicenseAssertion":"tok",
			"widevineLicenseUrl":"https://lic/wv",
			"durationMs":60000,
			"orientation":"landscape"
		}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	pctx, err := c.PlaybackInfo(context.Background(), "m1")
	require.NoError(t, err)
	require.True(t, pctx.IsDRM)
	require.Equal(t, "https://cdn/manifest.mpd", pctx.MPDUrl)
	require.Equal(t, domain.OrientationLandscape, pctx.Orientation)
	require.NoError(t, pctx.Validate())
}

func TestPublicContextParsesMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/medias/m2/public_context", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"title":"Episode 1","communityName":"IVE","artistList":["Wonyoung"]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	info, err := c.PublicContext(context.Background(), "m2")
	require.NoError(t, err)
	require.Equal(t, "Episode 1", info.Title)
	require.Equal(t, []string{"Wonyoung"}, info.ArtistList)
}

func TestBoardItemDetailCollectsImages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/7/post/abc", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0000","data":{"postId":99,"title":"Hi","body":"<p>x</p>","plainBody":"x","languageCode":"en","media":{"photo":[{"imageUrl":"https://cdn/a.jpg"}]}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	item, err := c.BoardItemDetail(context.Background(), 7, "abc")
	require.NoError(t, err)
	require.Equal(t, "99", item.PostID)
	require.Equal(t, []string{"https://cdn/a.jpg"}, item.ImageURLs)
}

func TestTranslatePostReturnsResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/translate/post", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "zh-Hant", body["translateLanguageCode"])
		fmt.Fprint(w, `{"code":"0000","data":{"result":"你好"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	result, err := c.TranslatePost(context.Background(), "p1", "zh-Hant")
	require.NoError(t, err)
	require.Equal(t, "你好", result)
}

func TestTranslatePostShortCircuitsOn403(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/translate/post", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	result, err := c.TranslatePost(context.Background(), "p1", "en")
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestNoticeItemDetailReturnsDomainErrorOnFailureCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/service/v1/community/7/notices/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"FS_MD9001","data":{}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(httpclient.New(stubSession{}, 0), srv.URL)
	_, err := c.NoticeItemDetail(context.Background(), 7, "5")
	require.Error(t, err)
}
