package asset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCategory is returned for identifiers outside the enumeration.
var ErrUnsupportedCategory = errors.New("unsupported category")

// promptTemplates - %s is the product description
var promptTemplates = map[Category]string{
	ProductPhotoWhiteBG:  "Professional 4K product photography of %s, studio lighting, on a pure white background. Hyper-realistic.",
	LifestyleMockup:      "A realistic lifestyle photograph of a person happily using %s in a bright, modern home setting. The focus is on the product.",
	ShadowEffect3D:       "A dramatic studio shot of %s with a long, soft 3D shadow on a solid-colored background. Minimalist and artistic.",
	SocialInstagramPost:  "An aesthetic Instagram post template featuring %s. Minimalist, clean design with space for text. Suitable for a high-end brand.",
	SocialInstagramStory: "A vertical Instagram story frame showcasing %s, bold modern layout with room for a swipe-up call to action. Vibrant and on-trend.",
	SocialPinterestPin:   "A tall, inspirational Pinterest pin featuring %s in a curated flat-lay arrangement with soft natural light and elegant typography space.",
	AdPromotionalBanner:  "A vibrant, eye-catching promotional banner for %s. Include the text \"20%% OFF\". Modern design aesthetic for an e-commerce website.",
	AdYouTubeThumbnail:   "A compelling YouTube thumbnail about %s. Bold text \"NEW RELEASE!\" and high-contrast colors to maximize clicks.",
	AdFacebookFeed:       "A scroll-stopping Facebook feed ad for %s with a clean product hero shot, a short headline area and a clear \"Shop Now\" button.",
	AdEmailHeader:        "A wide, polished email newsletter header presenting %s on a soft gradient background with space for a headline on the left.",
	VideoPromotional:     "A short, 5-second, looping promotional video ad for %s. Dynamic, engaging, and eye-catching, perfect for social media. 4K quality.",
	VideoProduct360:      "A smooth 360-degree turntable video of %s rotating slowly on a clean studio pedestal, soft even lighting, seamless loop.",
}

// BuildPrompt - generation instruction and aspect hint for one category
func BuildPrompt(category Category, description ProductDescription) (string, AspectRatio, error) {
	info, ok := categoryIndex[category]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedCategory, category)
	}
	tmpl, ok := promptTemplates[category]
	if !ok {
		return "", "", fmt.Errorf("%w: %s has no prompt template", ErrUnsupportedCategory, category)
	}

	subject := strings.TrimSpace(string(description))
	if subject == "" {
		subject = "the product"
	}
	return fmt.Sprintf(tmpl, subject), info.AspectRatio, nil
}
