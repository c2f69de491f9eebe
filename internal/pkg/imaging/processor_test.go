package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestPhotoFitsOriginalAndCropsThumbnail(t *testing.T) {
	p := NewProcessor(Config{MaxWidth: 100, MaxHeight: 100, ThumbWidth: 20, ThumbHeight: 20, AvatarSize: 10, Quality: 80})

	original, thumb, err := p.Photo(testPNG(t, 300, 150))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if original.Width != 100 || original.Height != 50 {
		t.Fatalf("expected 100x50 original, got %dx%d", original.Width, original.Height)
	}
	if thumb.Width != 20 || thumb.Height != 20 {
		t.Fatalf("expected 20x20 thumb, got %dx%d", thumb.Width, thumb.Height)
	}
	if original.ContentType != "image/png" || Extension(original.ContentType) != ".png" {
		t.Fatalf("png should stay png, got %s", original.ContentType)
	}
}

func TestPhotoKeepsSmallImages(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	original, _, err := p.Photo(testPNG(t, 64, 32))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if original.Width != 64 || original.Height != 32 {
		t.Fatalf("small image should not be resized, got %dx%d", original.Width, original.Height)
	}
}

func TestAvatarIsSquare(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	avatar, err := p.Avatar(testPNG(t, 800, 500))
	if err != nil {
		t.Fatalf("avatar: %v", err)
	}
	if avatar.Width != 400 || avatar.Height != 400 {
		t.Fatalf("expected 400x400, got %dx%d", avatar.Width, avatar.Height)
	}
}

func TestPhotoRejectsGarbage(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	if _, _, err := p.Photo(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected decode error")
	}
}
