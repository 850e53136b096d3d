package face

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// DataURLBytes extracts the raw bytes from a browser-style data URL
// ("data:image/...;base64,...."). A bare base64 payload without the
// header is also accepted.
func DataURLBytes(data string) ([]byte, error) {
	payload := data
	if idx := strings.Index(data, ","); idx >= 0 {
		payload = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return raw, nil
}

// DecodeDataURL decodes a data URL into an image.
func DecodeDataURL(data string) (image.Image, error) {
	raw, err := DataURLBytes(data)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
