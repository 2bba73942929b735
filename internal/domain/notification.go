package domain

import "time"

// NotificationCaseKind tags which of the platform's notificationCase
// values a Notification carries. Only NCA005 ("going live") and NCA011
// ("live context update") carry a media reference this core can act on;
// every other case is inert for acquisition purposes, recovered from
// original_source/unit/GET/GetNotifyList.py's HANDLERS table.
type NotificationCaseKind string

const (
	NCA005 NotificationCaseKind = "NCA005"
	NCA011 NotificationCaseKind = "NCA011"
)

// NotificationCase is the tagged sum over a dispatched notification-feed
// entry, recovered from GetNotifyList.py's NCA005/NCA011 classes and
// Process_Notify._extract_media_items: both cases resolve to a LIVE
// MediaDescriptor carried in the notification's additionalInfo.
type NotificationCase struct {
	Kind          NotificationCaseKind
	MediaID       string
	CommunityID   int64
	Title         string
	ThumbnailURL  string
	PublishedAt   time.Time
	IsFanclubOnly bool
	LiveStatus    string
}

// Descriptor converts a dispatched NotificationCase into the
// MediaDescriptor the rest of the pipeline consumes.
func (n NotificationCase) Descriptor() MediaDescriptor {
	return MediaDescriptor{
		ID:            n.MediaID,
		Type:          MediaLive,
		CommunityID:   n.CommunityID,
		IsFanclubOnly: n.IsFanclubOnly,
		PublishedAt:   n.PublishedAt,
		Title:         n.Title,
	}
}
