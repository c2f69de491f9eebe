package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoder
)

// Processed is an encoded image ready for storage.
type Processed struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Config for image processing
type Config struct {
	MaxWidth    int // originals are fit into MaxWidth x MaxHeight
	MaxHeight   int
	ThumbWidth  int
	ThumbHeight int
	AvatarSize  int
	Quality     int // JPEG quality 1-100
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxWidth:    2000,
		MaxHeight:   2000,
		ThumbWidth:  400,
		ThumbHeight: 400,
		AvatarSize:  400,
		Quality:     85,
	}
}

// Processor resizes and re-encodes uploaded photos.
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

func decode(reader io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Photo returns the original fit into the size limit and a center-cropped
// thumbnail.
func (p *Processor) Photo(reader io.Reader) (original, thumb *Processed, err error) {
	img, format, err := decode(reader)
	if err != nil {
		return nil, nil, err
	}

	resized := img
	b := img.Bounds()
	if b.Dx() > p.config.MaxWidth || b.Dy() > p.config.MaxHeight {
		resized = imaging.Fit(img, p.config.MaxWidth, p.config.MaxHeight, imaging.Lanczos)
	}
	if original, err = p.encode(resized, format); err != nil {
		return nil, nil, fmt.Errorf("failed to encode original: %w", err)
	}

	t := imaging.Fill(img, p.config.ThumbWidth, p.config.ThumbHeight, imaging.Center, imaging.Lanczos)
	if thumb, err = p.encode(t, format); err != nil {
		return nil, nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return original, thumb, nil
}

// Avatar center-crops to a square of AvatarSize.
func (p *Processor) Avatar(reader io.Reader) (*Processed, error) {
	img, format, err := decode(reader)
	if err != nil {
		return nil, err
	}
	square := imaging.Fill(img, p.config.AvatarSize, p.config.AvatarSize, imaging.Center, imaging.Lanczos)
	return p.encode(square, format)
}

// encode keeps PNG as PNG; everything else becomes JPEG.
func (p *Processor) encode(img image.Image, format string) (*Processed, error) {
	var buf bytes.Buffer
	out := &Processed{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

	if format == "png" {
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, err
		}
		out.ContentType = "image/png"
	} else {
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.config.Quality)); err != nil {
			return nil, err
		}
		out.ContentType = "image/jpeg"
	}
	out.Data = buf.Bytes()
	return out, nil
}

// Extension returns the file extension for a processed content type.
func Extension(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
