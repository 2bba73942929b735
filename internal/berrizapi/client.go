// Package berrizapi wraps the remaining per-media endpoints Pipeline needs
// beyond MediaEnumerator: playback info, public context, and board/notice
// detail, recovered from
// original_source/unit/http/request_berriz_api.py's BerrizAPIClient.
package berrizapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/httpclient"
)

// Client fetches the per-media metadata endpoints.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// New builds a Client. baseURL is the API origin, e.g. "https://svc-api.berriz.in".
func New(httpClient *httpclient.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: baseURL}
}

type playbackInfoResponse struct {
	Code string `json:"code"`
	Data struct {
		MediaURL         string `json:"mediaUrl"`
		HlsURL           string `json:"hlsUrl"`
		DrmType          string `json:"drmType"`
		AcquireLicenseAssertion string `json:"acquireLicenseAssertion"`
		WidevineLicenseURL      string `json:"widevineLicenseUrl"`
		PlayReadyLicenseURL     string `json:"playreadyLicenseUrl"`
		DurationMs       int64  `json:"durationMs"`
		Orientation      string `json:"orientation"`
	} `json:"data"`
}

// PlaybackInfo fetches spec.md §4.12's "playback-info" step for a VOD. The
// endpoint is recovered from request_berriz_api.py's get_playback_context:
// GET /service/v1/medias/{id}/playback_info.
func (c *Client) PlaybackInfo(ctx context.Context, mediaID string) (domain.PlaybackContext, error) {
	url := fmt.Sprintf("%s/service/v1/medias/%s/playback_info", c.baseURL, mediaID)
	return c.fetchPlaybackContext(ctx, url)
}

// LivePlaybackInfo fetches the live-replay counterpart, recovered from
// get_live_playback_info: GET /service/v1/medias/live/replay/{id}/playback_area_context.
func (c *Client) LivePlaybackInfo(ctx context.Context, mediaID string) (domain.PlaybackContext, error) {
	url := fmt.Sprintf("%s/service/v1/medias/live/replay/%s/playback_area_context", c.baseURL, mediaID)
	return c.fetchPlaybackContext(ctx, url)
}

func (c *Client) fetchPlaybackContext(ctx context.Context, url string) (domain.PlaybackContext, error) {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return domain.PlaybackContext{}, err
	}
	if !resp.IsDomainSuccess() {
		return domain.PlaybackContext{}, fmt.Errorf("berrizapi: playback info returned code %q", resp.Code)
	}

	var env playbackInfoResponse
	if err := decodeResponse(resp, &env); err != nil {
		return domain.PlaybackContext{}, fmt.Errorf("berrizapi: decode playback info: %w", err)
	}

	pctx := domain.PlaybackContext{
		MPDUrl:    env.Data.MediaURL,
		HLSUrl:    env.Data.HlsURL,
		IsDRM:     env.Data.DrmType != "",
		Assertion: env.Data.AcquireLicenseAssertion,
		LicenseURLs: domain.LicenseURLs{
			Widevine:  env.Data.WidevineLicenseURL,
			PlayReady: env.Data.PlayReadyLicenseURL,
		},
		Duration: time.Duration(env.Data.DurationMs) * time.Millisecond,
	}
	if env.Data.Orientation == "portrait" {
		pctx.Orientation = domain.OrientationPortrait
	} else {
		pctx.Orientation = domain.OrientationLandscape
	}
	return pctx, nil
}

type photoPlaybackResponse struct {
	Code string `json:"code"`
	Data struct {
		Photo struct {
			Images []struct {
				URL string `json:"imageUrl"`
			} `json:"images"`
		} `json:"photo"`
	} `json:"data"`
}

// PhotoImages fetches the image URL list carried on a PHOTO item's
// playback_info response, recovered from
// original_source/unit/image/parse_playback_contexts.py's
// IMG_PlaybackContext (data.photo.images).
func (c *Client) PhotoImages(ctx context.Context, mediaID string) ([]string, error) {
	url := fmt.Sprintf("%s/service/v1/medias/%s/playback_info", c.baseURL, mediaID)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.IsDomainSuccess() {
		return nil, fmt.Errorf("berrizapi: photo playback info returned code %q", resp.Code)
	}

	var env photoPlaybackResponse
	if err := decodeResponse(resp, &env); err != nil {
		return nil, fmt.Errorf("berrizapi: decode photo playback info: %w", err)
	}

	var urls []string
	for _, img := range env.Data.Photo.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls, nil
}

type publicContextResponse struct {
	Code string `json:"code"`
	Data struct {
		Title         string   `json:"title"`
		CommunityName string   `json:"communityName"`
		ArtistList    []string `json:"artistList"`
		PublishedAt   time.Time `json:"publishedAt"`
	} `json:"data"`
}

// PublicContext fetches spec.md §4.12's "public-context" step, recovered
// from get_public_context: GET /service/v1/medias/{id}/public_context.
func (c *Client) PublicContext(ctx context.Context, mediaID string) (domain.PublicInfo, error) {
	url := fmt.Sprintf("%s/service/v1/medias/%s/public_context", c.baseURL, mediaID)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return domain.PublicInfo{}, err
	}
	if !resp.IsDomainSuccess() {
		return domain.PublicInfo{}, fmt.Errorf("berrizapi: public context returned code %q", resp.Code)
	}

	var env publicContextResponse
	if err := decodeResponse(resp, &env); err != nil {
		return domain.PublicInfo{}, fmt.Errorf("berrizapi: decode public context: %w", err)
	}
	return domain.PublicInfo{
		Title:         env.Data.Title,
		CommunityName: env.Data.CommunityName,
		ArtistList:    env.Data.ArtistList,
		PublishedAt:   env.Data.PublishedAt,
	}, nil
}

// BoardItem is the flattened subset of a post this core needs: inline
// image URLs and the plain body, recovered from
// original_source/static/Board_from.py's Board_from and
// original_source/unit/post/post.py's PostIndex/Media.
type BoardItem struct {
	PostID      string
	Title       string
	Body        string
	PlainBody   string
	LanguageCode string
	ImageURLs   []string
}

type boardItemResponse struct {
	Code string `json:"code"`
	Data struct {
		PostID       json.Number `json:"postId"`
		Title        string      `json:"title"`
		Body         string      `json:"body"`
		PlainBody    string      `json:"plainBody"`
		LanguageCode string      `json:"languageCode"`
		Media        struct {
			Photo []struct {
				URL string `json:"imageUrl"`
			} `json:"photo"`
		} `json:"media"`
	} `json:"data"`
}

// BoardItemDetail fetches one post's detail, recovered from
// request_berriz_api.py's community-scoped post endpoint
// (/service/v1/community/{id}/post/{postUuid}).
func (c *Client) BoardItemDetail(ctx context.Context, communityID int64, postUUID string) (BoardItem, error) {
	url := fmt.Sprintf("%s/service/v1/community/%d/post/%s", c.baseURL, communityID, postUUID)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return BoardItem{}, err
	}
	if !resp.IsDomainSuccess() {
		return BoardItem{}, fmt.Errorf("berrizapi: post detail returned code %q", resp.Code)
	}

	var env boardItemResponse
	if err := decodeResponse(resp, &env); err != nil {
		return BoardItem{}, fmt.Errorf("berrizapi: decode post detail: %w", err)
	}

	item := BoardItem{
		PostID:       env.Data.PostID.String(),
		Title:        env.Data.Title,
		Body:         env.Data.Body,
		PlainBody:    env.Data.PlainBody,
		LanguageCode: env.Data.LanguageCode,
	}
	for _, p := range env.Data.Media.Photo {
		if p.URL != "" {
			item.ImageURLs = append(item.ImageURLs, p.URL)
		}
	}
	return item, nil
}

// NoticeDetail is the flattened subset of a notice this core needs.
type NoticeDetail struct {
	NoticeID  string
	Title     string
	Body      string
	ImageURLs []string
}

type noticeDetailResponse struct {
	Code string `json:"code"`
	Data struct {
		CommunityNoticeID json.Number `json:"communityNoticeId"`
		Title             string      `json:"title"`
		Body              string      `json:"body"`
		Photos            []struct {
			URL string `json:"imageUrl"`
		} `json:"photos"`
	} `json:"data"`
}

// NoticeItemDetail fetches one notice's detail
// (/service/v1/community/{id}/notices/{noticeId}).
func (c *Client) NoticeItemDetail(ctx context.Context, communityID int64, noticeID string) (NoticeDetail, error) {
	url := fmt.Sprintf("%s/service/v1/community/%d/notices/%s", c.baseURL, communityID, noticeID)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return NoticeDetail{}, err
	}
	if !resp.IsDomainSuccess() {
		return NoticeDetail{}, fmt.Errorf("berrizapi: notice detail returned code %q", resp.Code)
	}

	var env noticeDetailResponse
	if err := decodeResponse(resp, &env); err != nil {
		return NoticeDetail{}, fmt.Errorf("berrizapi: decode notice detail: %w", err)
	}

	detail := NoticeDetail{
		NoticeID: env.Data.CommunityNoticeID.String(),
		Title:    env.Data.Title,
		Body:     env.Data.Body,
	}
	for _, p := range env.Data.Photos {
		if p.URL != "" {
			detail.ImageURLs = append(detail.ImageURLs, p.URL)
		}
	}
	return detail, nil
}

type translatePostResponse struct {
	Code string `json:"code"`
	Data struct {
		Result string `json:"result"`
	} `json:"data"`
}

// TranslatePost fetches one machine translation of a post body, recovered
// from request_berriz_api.py's Translate.translate_post: POST
// /service/v1/translate/post with {postId, translateLanguageCode}. A 403
// here is treated as "no translation available" rather than a retryable
// failure (httpclient's translation short-circuit). An empty string with a
// nil error is returned for that 403, for a non-JSON body, and for a
// non-success domain code alike.
func (c *Client) TranslatePost(ctx context.Context, postID, targetLang string) (string, error) {
	url := fmt.Sprintf("%s/service/v1/translate/post?languageCode=en", c.baseURL)
	body := map[string]string{
		"postId":                postID,
		"translateLanguageCode": targetLang,
	}
	resp, err := c.http.Post(ctx, url, body)
	if err != nil {
		return "", err
	}
	if resp.JSON == nil {
		return "", nil
	}
	if !resp.IsDomainSuccess() {
		return "", nil
	}

	var env translatePostResponse
	if err := decodeResponse(resp, &env); err != nil {
		return "", fmt.Errorf("berrizapi: decode translate post: %w", err)
	}
	return env.Data.Result, nil
}

func decodeResponse(resp httpclient.Response, v any) error {
	if resp.JSON == nil {
		return fmt.Errorf("berrizapi: non-JSON response")
	}
	raw, err := json.Marshal(resp.JSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
