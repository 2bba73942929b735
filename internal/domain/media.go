// Package domain defines the typed data model shared across the
// acquisition pipeline: MediaDescriptor, PlaybackContext, Manifest,
// PsshSet, KeyEntry, Job and their supporting enums (spec.md §3).
package domain

import "time"

// MediaType enumerates the acquirable content categories.
type MediaType string

const (
	MediaVOD    MediaType = "VOD"
	MediaLive   MediaType = "LIVE"
	MediaPhoto  MediaType = "PHOTO"
	MediaPost   MediaType = "POST"
	MediaNotice MediaType = "NOTICE"
)

// MediaDescriptor identifies one acquirable item.
type MediaDescriptor struct {
	ID            string
	Type          MediaType
	CommunityID   int64
	IsFanclubOnly bool
	PublishedAt   time.Time
	Title         string
}

// LicenseURLs holds the per-DRM-kind license endpoints of a PlaybackContext.
type LicenseURLs struct {
	Widevine  string
	PlayReady string
	FairPlay  string
}

// Orientation describes the presentation aspect of a video.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// PlaybackContext carries everything needed to fetch and decrypt one media.
type PlaybackContext struct {
	MPDUrl      string
	HLSUrl      string
	IsDRM       bool
	Assertion   string
	LicenseURLs LicenseURLs
	Duration    time.Duration
	Orientation Orientation
}

// Validate checks the PlaybackContext invariants from spec.md §3.
func (p PlaybackContext) Validate() error {
	if p.MPDUrl == "" && p.HLSUrl == "" {
		return ErrNoPlaybackURL
	}
	if p.IsDRM {
		if p.Assertion == "" {
			return ErrMissingAssertion
		}
		if p.LicenseURLs.Widevine == "" && p.LicenseURLs.PlayReady == "" && p.LicenseURLs.FairPlay == "" {
			return ErrNoLicenseURL
		}
	}
	return nil
}

// PublicInfo is the merged public metadata used to expand path templates,
// recovered from original_source/static/PublicInfo.py.
type PublicInfo struct {
	Title         string
	CommunityName string
	ArtistList    []string
	Orientation   Orientation
	Duration      time.Duration
	PublishedAt   time.Time
}
