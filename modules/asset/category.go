package asset

import "strings"

// Category identifies one kind of marketing deliverable.
type Category string

// Current category revision. Adding a member requires a row in categoryTable
// and a template in promptTemplates.
const (
	ProductPhotoWhiteBG  Category = "PRODUCT_PHOTO_4K_WHITE_BG"
	LifestyleMockup      Category = "LIFESTYLE_MOCKUP"
	ShadowEffect3D       Category = "SHADOW_EFFECT_3D"
	SocialInstagramPost  Category = "SOCIAL_INSTAGRAM_POST"
	SocialInstagramStory Category = "SOCIAL_INSTAGRAM_STORY"
	SocialPinterestPin   Category = "SOCIAL_PINTEREST_PIN"
	AdPromotionalBanner  Category = "AD_PROMOTIONAL_BANNER"
	AdYouTubeThumbnail   Category = "AD_YOUTUBE_THUMBNAIL"
	AdFacebookFeed       Category = "AD_FACEBOOK_FEED"
	AdEmailHeader        Category = "AD_EMAIL_HEADER"
	VideoPromotional     Category = "VIDEO_PROMOTIONAL"
	VideoProduct360      Category = "VIDEO_PRODUCT_360"
)

// MediaKind is the type of payload a category produces.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Group is the presentation bucket a category is listed under.
type Group string

const (
	GroupPhotography Group = "photography"
	GroupSocial      Group = "social"
	GroupAdvertising Group = "advertising"
	GroupVideo       Group = "video"
)

// AspectRatio - generation aspect hint
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
)

// CategoryInfo describes a category for listing and generation.
type CategoryInfo struct {
	ID          Category    `json:"id"`
	Title       string      `json:"title"`
	Group       Group       `json:"group"`
	MediaKind   MediaKind   `json:"mediaKind"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

var categoryTable = []CategoryInfo{
	{ProductPhotoWhiteBG, "Product Photo (White Background)", GroupPhotography, MediaImage, AspectSquare},
	{LifestyleMockup, "Lifestyle Mockup (with Model)", GroupPhotography, MediaImage, AspectLandscape},
	{ShadowEffect3D, "3D Shadow Effect", GroupPhotography, MediaImage, AspectSquare},
	{SocialInstagramPost, "Instagram Post", GroupSocial, MediaImage, AspectSquare},
	{SocialInstagramStory, "Instagram Story", GroupSocial, MediaImage, AspectPortrait},
	{SocialPinterestPin, "Pinterest Pin", GroupSocial, MediaImage, AspectPortrait},
	{AdPromotionalBanner, "Promotional Banner", GroupAdvertising, MediaImage, AspectLandscape},
	{AdYouTubeThumbnail, "YouTube Thumbnail", GroupAdvertising, MediaImage, AspectLandscape},
	{AdFacebookFeed, "Facebook Feed Ad", GroupAdvertising, MediaImage, AspectSquare},
	{AdEmailHeader, "Email Header", GroupAdvertising, MediaImage, AspectLandscape},
	{VideoPromotional, "Promotional Video", GroupVideo, MediaVideo, AspectLandscape},
	{VideoProduct360, "360° Product Video", GroupVideo, MediaVideo, AspectPortrait},
}

var categoryIndex = func() map[Category]CategoryInfo {
	m := make(map[Category]CategoryInfo, len(categoryTable))
	for _, info := range categoryTable {
		m[info.ID] = info
	}
	return m
}()

// DefaultCategories is the fallback selection used when the selector
// response is unusable.
var DefaultCategories = []Category{
	ProductPhotoWhiteBG,
	LifestyleMockup,
	SocialInstagramPost,
	AdPromotionalBanner,
	VideoPromotional,
}

// AllCategories returns the closed enumeration in listing order.
func AllCategories() []Category {
	out := make([]Category, len(categoryTable))
	for i, info := range categoryTable {
		out[i] = info.ID
	}
	return out
}

// Catalog returns a copy of every category's metadata.
func Catalog() []CategoryInfo {
	return append([]CategoryInfo(nil), categoryTable...)
}

// ParseCategory accepts an identifier in any letter case.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := categoryIndex[c]
	return c, ok
}

// Info returns the metadata for c.
func (c Category) Info() (CategoryInfo, bool) {
	info, ok := categoryIndex[c]
	return info, ok
}

// Valid reports membership in the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Kind - image or video; unknown categories report image
func (c Category) Kind() MediaKind {
	if info, ok := categoryIndex[c]; ok {
		return info.MediaKind
	}
	return MediaImage
}

// IsVideo reports whether c is one of the video-producing categories.
func (c Category) IsVideo() bool {
	return c.Kind() == MediaVideo
}

// Title - display name, falls back to the identifier
func (c Category) Title() string {
	if info, ok := categoryIndex[c]; ok {
		return info.Title
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// ParseCategories keeps known identifiers in order, dropping unknown and
// duplicate entries.
func ParseCategories(raw []string) []Category {
	seen := make(map[Category]bool, len(raw))
	out := make([]Category, 0, len(raw))
	for _, r := range raw {
		c, ok := ParseCategory(r)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
