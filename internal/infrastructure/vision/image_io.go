package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"  // BMP для пакетной обработки
	_ "golang.org/x/image/tiff" // TIFF для пакетной обработки

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// DefaultOverlayColor цвет окружностей на изображении для проверки.
var DefaultOverlayColor = color.RGBA{G: 255, A: 255}

// DecodeImage превращает байты изображения в image.Image.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", entity.ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", entity.ErrDecode)
	}
	return img, nil
}

var _ port.ImageCodec = Codec{}

// Codec реализует port.ImageCodec поверх DecodeImage и EncodePNG.
type Codec struct{}

// Decode см. DecodeImage.
func (Codec) Decode(data []byte) (image.Image, error) { return DecodeImage(data) }

// EncodePNG см. EncodePNG.
func (Codec) EncodePNG(img image.Image) ([]byte, error) { return EncodePNG(img) }

// LoadImage читает и декодирует файл с диска.
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// EncodePNG кодирует маску или подсветку для ответа клиенту.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseOverlayColor разбирает цвет вида "#00ff00".
func ParseOverlayColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return DefaultOverlayColor, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("overlay color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// toGray приводит изображение к одному каналу яркости с началом в (0,0).
// Полутоновый вход копируется без изменений, цветной переводится
// по весам 0.299/0.587/0.114.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			start := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[start:start+w])
		}
		return out
	}

	luma := imaging.Grayscale(img)
	for y := 0; y < h; y++ {
		row := luma.Pix[y*luma.Stride:]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}
