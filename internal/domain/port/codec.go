package port

import "image"

// ImageCodec разбирает входные байты и кодирует маски и подсветку
type ImageCodec interface {
	Decode(data []byte) (image.Image, error)
	EncodePNG(img image.Image) ([]byte, error)
}
