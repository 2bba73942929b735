// Package enumerator implements MediaEnumerator (spec.md §4.11): paginated
// listing of a community's VOD/LIVE/PHOTO media and board/notice items,
// partitioned, time-filtered, and fanclub-filtered.
package enumerator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/berrizdl/core/internal/domain"
	"github.com/berrizdl/core/internal/httpclient"
)

const (
	// minPageSize/maxPageSize back the VOD/LIVE media-list pagination,
	// grounded on GetMediaList.py's random.randint(25000, 30000).
	minPageSize = 25000
	maxPageSize = 30000

	// noticePageSize backs board/notice pagination. The original
	// (artis_menu.py's Notice.get_all_notice_content_lists) hardcodes an
	// absurd pageSize of 999999999339134974 to fetch everything in one
	// shot; this core caps it at a realistic page size instead of
	// carrying that constant forward (spec.md §9).
	noticePageSize = 10000

	// notifyPageSize backs the personal notification-feed pagination,
	// grounded on GetNotifyList.py's fixed pageSize of 100.
	notifyPageSize = 100
)

// SubscriptionChecker reports whether the current account is subscribed to
// a community's fanclub, standing in for the account/fanclub endpoint
// external collaborator.
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, communityID int64) (bool, error)
}

// TimeWindow bounds publishedAt filtering to [From, To] inclusive, UTC.
// A zero value means "no filtering".
type TimeWindow struct {
	From, To time.Time
}

func (w TimeWindow) active() bool {
	return !w.From.IsZero() && !w.To.IsZero()
}

func (w TimeWindow) contains(t time.Time) bool {
	if !w.active() {
		return true
	}
	t = t.UTC()
	return !t.Before(w.From.UTC()) && !t.After(w.To.UTC())
}

// Enumerator is the MediaEnumerator.
type Enumerator struct {
	http    *httpclient.Client
	baseURL string
	sub     SubscriptionChecker
}

// New builds an Enumerator. baseURL is the API origin, e.g.
// "https://svc-api.berriz.in".
func New(httpClient *httpclient.Client, baseURL string, sub SubscriptionChecker) *Enumerator {
	return &Enumerator{http: httpClient, baseURL: baseURL, sub: sub}
}

type mediaItem struct {
	ID            string    `json:"mediaId"`
	MediaType     string    `json:"mediaType"`
	CommunityID   int64     `json:"communityId"`
	IsFanclubOnly bool      `json:"isFanclubOnly"`
	PublishedAt   time.Time `json:"publishedAt"`
	Title         string    `json:"title"`
}

func (m mediaItem) descriptor() domain.MediaDescriptor {
	return domain.MediaDescriptor{
		ID:            m.ID,
		Type:          domain.MediaType(m.MediaType),
		CommunityID:   m.CommunityID,
		IsFanclubOnly: m.IsFanclubOnly,
		PublishedAt:   m.PublishedAt,
		Title:         m.Title,
	}
}

type pageEnvelope struct {
	Code string `json:"code"`
	Data struct {
		Contents []mediaItem `json:"contents"`
		Cursor   struct {
			Next string `json:"next"`
		} `json:"cursor"`
		HasNext bool `json:"hasNext"`
	} `json:"data"`
}

// ListMedia paginates the media-list and live-replay endpoints concurrently
// until both exhaust, merges and partitions the results by mediaType,
// applies the time window and fanclub filters (spec.md §4.11).
func (e *Enumerator) ListMedia(ctx context.Context, communityID int64, window TimeWindow, fanclub domain.FanclubFilter) (vods, photos, lives []domain.MediaDescriptor, err error) {
	subscribed := false
	if e.sub != nil {
		subscribed, err = e.sub.IsSubscribed(ctx, communityID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("enumerator: check subscription: %w", err)
		}
	}

	var mediaCursor, liveCursor string
	mediaDone, liveDone := false, false

	for !mediaDone || !liveDone {
		var mediaPage, livePage pageEnvelope
		g, gctx := errgroup.WithContext(ctx)

		if !mediaDone {
			g.Go(func() error {
				p, err := e.fetchPage(gctx, mediaListURL(e.baseURL, communityID), mediaCursor)
				if err != nil {
					return err
				}
				mediaPage = p
				return nil
			})
		}
		if !liveDone {
			g.Go(func() error {
				p, err := e.fetchPage(gctx, liveReplayURL(e.baseURL, communityID), liveCursor)
				if err != nil {
					return err
				}
				livePage = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, nil, fmt.Errorf("enumerator: fetch page: %w", err)
		}

		if !mediaDone {
			for _, item := range mediaPage.Data.Contents {
				d := item.descriptor()
				if !window.contains(d.PublishedAt) {
					continue
				}
				if !fanclub.Allows(d.IsFanclubOnly, subscribed) {
					continue
				}
				switch d.Type {
				case domain.MediaVOD:
					vods = append(vods, d)
				case domain.MediaPhoto:
					photos = append(photos, d)
				}
			}
			mediaCursor = mediaPage.Data.Cursor.Next
			mediaDone = !mediaPage.Data.HasNext
		}

		if !liveDone {
			for _, item := range livePage.Data.Contents {
				d := item.descriptor()
				if !window.contains(d.PublishedAt) {
					continue
				}
				if !fanclub.Allows(d.IsFanclubOnly, subscribed) {
					continue
				}
				if d.Type == domain.MediaLive {
					lives = append(lives, d)
				}
			}
			liveCursor = livePage.Data.Cursor.Next
			liveDone = !livePage.Data.HasNext
		}
	}

	return vods, photos, lives, nil
}

// noticeItem mirrors the board/notice cursor shape, which carries only
// {next} with no hasNext flag; exhaustion is signalled by an empty page.
type noticeItem struct {
	ID          int64     `json:"communityNoticeId"`
	CommunityID int64     `json:"communityId"`
	PublishedAt time.Time `json:"publishedAt"`
	Title       string    `json:"title"`
}

type noticeEnvelope struct {
	Code string `json:"code"`
	Data struct {
		Contents []noticeItem `json:"contents"`
		Next     string       `json:"next"`
	} `json:"data"`
}

// ListNotices paginates the notices endpoint until a page returns no
// items or no next cursor, per spec.md §4.11's "Board/notice enumeration is analogous with
// a different cursor shape ({next: …})".
func (e *Enumerator) ListNotices(ctx context.Context, communityID int64) ([]domain.MediaDescriptor, error) {
	var out []domain.MediaDescriptor
	cursor := ""

	for {
		u := noticesURL(e.baseURL, communityID)
		params := url.Values{"languageCode": {"en"}, "pageSize": {fmt.Sprint(noticePageSize)}}
		if cursor != "" {
			params.Set("next", cursor)
		}
		resp, err := e.http.Get(ctx, u+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("enumerator: fetch notices: %w", err)
		}

		var env noticeEnvelope
		if err := decodeResponse(resp, &env); err != nil {
			return nil, fmt.Errorf("enumerator: decode notices: %w", err)
		}
		if len(env.Data.Contents) == 0 {
			break
		}
		for _, n := range env.Data.Contents {
			out = append(out, domain.MediaDescriptor{
				ID:          fmt.Sprint(n.ID),
				Type:        domain.MediaNotice,
				CommunityID: n.CommunityID,
				PublishedAt: n.PublishedAt,
				Title:       n.Title,
			})
		}
		if env.Data.Next == "" {
			break
		}
		cursor = env.Data.Next
	}
	return out, nil
}

// notifyItem mirrors the fields of GetNotifyList.py's Notification
// dataclass that NCA005/NCA011 dispatch actually reads.
type notifyItem struct {
	CommunityID      int64             `json:"communityId"`
	MessageByType    map[string]string `json:"messageByType"`
	PublishedAt      time.Time         `json:"publishedAt"`
	IsFanclubOnly    bool              `json:"isFanclubOnly"`
	ImageURL         string            `json:"imageUrl"`
	NotificationCase string            `json:"notificationCase"`
	AdditionalInfo   struct {
		NotificationInfo struct {
			LiveID     string `json:"liveId"`
			MediaID    string `json:"mediaId"`
			LiveStatus string `json:"liveStatus"`
		} `json:"notificationInfo"`
	} `json:"additionalInfo"`
}

type notifyEnvelope struct {
	Code string `json:"code"`
	Data struct {
		Contents []notifyItem `json:"contents"`
		Cursor   struct {
			Next string `json:"next"`
		} `json:"cursor"`
		HasNext bool `json:"hasNext"`
	} `json:"data"`
}

// classifyNotification implements GetNotifyList.py's HANDLERS dispatch,
// narrowed to the two cases (NCA005 "going live", NCA011 "live context
// update") that carry a media reference; every other notificationCase
// value is not a NotificationCase for this core's purposes.
func classifyNotification(item notifyItem) (domain.NotificationCase, bool) {
	info := item.AdditionalInfo.NotificationInfo
	nc := domain.NotificationCase{
		CommunityID:   item.CommunityID,
		Title:         item.MessageByType["context"],
		ThumbnailURL:  item.ImageURL,
		PublishedAt:   item.PublishedAt,
		IsFanclubOnly: item.IsFanclubOnly,
		LiveStatus:    info.LiveStatus,
	}
	switch item.NotificationCase {
	case string(domain.NCA005):
		nc.Kind = domain.NCA005
		nc.MediaID = info.LiveID
	case string(domain.NCA011):
		nc.Kind = domain.NCA011
		nc.MediaID = info.MediaID
	default:
		return domain.NotificationCase{}, false
	}
	return nc, true
}

// ListNotifyLives scans the account's notification feed for NCA005/NCA011
// entries and resolves them into LIVE MediaDescriptors, recovered from
// GetNotifyList.py's NotifyFetcher.get_all_notify_lists and
// Process_Notify._extract_media_items. This is a second, independent
// discovery path for live media alongside ListMedia's medias/live/end
// listing, surfacing lives the platform only announced via notification
// rather than exposing in the live-replay list yet.
func (e *Enumerator) ListNotifyLives(ctx context.Context, communityID int64, window TimeWindow) ([]domain.MediaDescriptor, error) {
	var out []domain.MediaDescriptor
	cursor := ""

	for {
		params := url.Values{"languageCode": {"en"}, "pageSize": {fmt.Sprint(notifyPageSize)}}
		if communityID != 0 {
			params.Set("communityId", fmt.Sprint(communityID))
		}
		if cursor != "" {
			params.Set("next", cursor)
		}
		resp, err := e.http.Get(ctx, notificationsURL(e.baseURL)+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("enumerator: fetch notifications: %w", err)
		}

		var env notifyEnvelope
		if err := decodeResponse(resp, &env); err != nil {
			return nil, fmt.Errorf("enumerator: decode notifications: %w", err)
		}

		for _, item := range env.Data.Contents {
			nc, ok := classifyNotification(item)
			if !ok {
				continue
			}
			d := nc.Descriptor()
			if !window.contains(d.PublishedAt) {
				continue
			}
			out = append(out, d)
		}

		if !env.Data.HasNext {
			break
		}
		cursor = env.Data.Cursor.Next
	}
	return out, nil
}

func (e *Enumerator) fetchPage(ctx context.Context, baseURL, cursor string) (pageEnvelope, error) {
	params := url.Values{"languageCode": {"en"}, "pageSize": {fmt.Sprint(randomPageSize())}}
	if cursor != "" {
		params.Set("next", cursor)
	}
	resp, err := e.http.Get(ctx, baseURL+"?"+params.Encode())
	if err != nil {
		return pageEnvelope{}, err
	}
	var env pageEnvelope
	if err := decodeResponse(resp, &env); err != nil {
		return pageEnvelope{}, err
	}
	return env, nil
}

func decodeResponse(resp httpclient.Response, v any) error {
	if resp.JSON == nil {
		return fmt.Errorf("enumerator: non-JSON response")
	}
	raw, err := json.Marshal(resp.JSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func randomPageSize() int {
	return minPageSize + rand.Intn(maxPageSize-minPageSize+1)
}

func mediaListURL(base string, communityID int64) string {
	return fmt.Sprintf("%s/service/v1/community/%d/medias/recent", base, communityID)
}

func liveReplayURL(base string, communityID int64) string {
	return fmt.Sprintf("%s/service/v1/community/%d/medias/live/end", base, communityID)
}

func noticesURL(base string, communityID int64) string {
	return fmt.Sprintf("%s/service/v1/community/%d/notices", base, communityID)
}

func notificationsURL(base string) string {
	return fmt.Sprintf("%s/service/v1/notifications", base)
}
