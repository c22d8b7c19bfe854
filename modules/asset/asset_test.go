package asset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
)

func TestBuildPrompt_EveryCategory(t *testing.T) {
	valid := map[AspectRatio]bool{AspectSquare: true, AspectPortrait: true, AspectLandscape: true}

	for _, c := range AllCategories() {
		prompt, aspect, err := BuildPrompt(c, "a red ceramic mug")
		require.NoError(t, err, c)
		assert.NotEmpty(t, prompt, c)
		assert.Contains(t, prompt, "a red ceramic mug", c)
		assert.NotContains(t, prompt, "%!", c)
		assert.True(t, valid[aspect], "%s has aspect %q", c, aspect)
	}
}

func TestBuildPrompt_TemplateTableIsExhaustive(t *testing.T) {
	assert.Len(t, promptTemplates, len(categoryTable))
	for _, c := range AllCategories() {
		_, ok := promptTemplates[c]
		assert.True(t, ok, "missing template for %s", c)
	}
}

func TestBuildPrompt_UnknownCategory(t *testing.T) {
	_, _, err := BuildPrompt(Category("HOLOGRAM"), "a mug")
	assert.ErrorIs(t, err, ErrUnsupportedCategory)
}

func TestBuildPrompt_BannerKeepsLiteralPercent(t *testing.T) {
	prompt, aspect, err := BuildPrompt(AdPromotionalBanner, "a gaming headset")
	require.NoError(t, err)
	assert.Contains(t, prompt, `"20% OFF"`)
	assert.Equal(t, AspectLandscape, aspect)
}

func TestCategory_KindIsFixedByCategory(t *testing.T) {
	var videos []Category
	for _, c := range AllCategories() {
		if c.IsVideo() {
			videos = append(videos, c)
		}
	}
	assert.ElementsMatch(t, []Category{VideoPromotional, VideoProduct360}, videos)
	assert.Len(t, AllCategories(), 12)
}

func TestParseCategories_DropsUnknownAndDuplicates(t *testing.T) {
	got := ParseCategories([]string{"ad_youtube_thumbnail", "NOPE", "AD_YOUTUBE_THUMBNAIL", " VIDEO_PROMOTIONAL "})
	assert.Equal(t, []Category{AdYouTubeThumbnail, VideoPromotional}, got)
}

func TestDefaultCategories_AreKnown(t *testing.T) {
	for _, c := range DefaultCategories {
		assert.True(t, c.Valid(), c)
	}
}

func TestNewGeneratedAsset(t *testing.T) {
	a := NewGeneratedAsset(VideoProduct360, "spin it", []byte("mp4"), "")

	assert.Equal(t, MediaVideo, a.MediaKind)
	assert.Equal(t, "video/mp4", a.MIMEType)
	assert.Equal(t, "360°_Product_Video.mp4", a.FileName)
	assert.Equal(t, "data:video/mp4;base64,bXA0", a.ResultLocation)
	assert.Equal(t, "spin it", a.PromptUsed)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Product_Photo_(White_Background).png", FileName("Product Photo (White Background)", MediaImage, "image/png"))
	assert.Equal(t, "Instagram_Post.jpg", FileName("Instagram  Post", MediaImage, "image/jpeg"))
	assert.Equal(t, "Promo.mp4", FileName("Promo", MediaVideo, ""))
}

func TestValidateUpload(t *testing.T) {
	mime, err := ValidateUpload(jpegHeader, "image/jpg", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	mime, err = ValidateUpload(pngHeader, "image/png", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = ValidateUpload(webpHeader, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)

	// animated PNG carries an acTL chunk at offset 37
	apng := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 21)...)
	apng = append(apng, "acTL"...)
	mime, err = ValidateUpload(apng, "image/png", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestValidateUpload_Rejects(t *testing.T) {
	_, err := ValidateUpload([]byte("GIF89a......"), "image/gif", 0)
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Equal(t, "Invalid file type. Please upload a JPG, PNG, or WEBP file.", err.Error())

	_, err = ValidateUpload(pngHeader, "image/jpeg", 0)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = ValidateUpload([]byte("%PDF-1.4\n%"), "", 0)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = ValidateUpload([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), "application/octet-stream", 0)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	_, err = ValidateUpload(big, "image/png", 32)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, IsValidationError(err))
	assert.True(t, strings.HasPrefix(err.Error(), "File is too large"))

	_, err = ValidateUpload(nil, "image/png", 0)
	assert.ErrorIs(t, err, ErrEmptyFile)
}
