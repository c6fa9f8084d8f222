package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// EncodedImage is an image in data URL form: data:<mediatype>;base64,<payload>.
type EncodedImage string

var ErrInvalidDataURL = errors.New("invalid image data url")

func EncodeImage(mediaType string, data []byte) EncodedImage {
	return EncodedImage("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func (img EncodedImage) split() (string, string, error) {
	rest, ok := strings.CutPrefix(string(img), "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	return mediaType, payload, nil
}

func (img EncodedImage) MediaType() string {
	mediaType, _, err := img.split()
	if err != nil {
		return ""
	}
	return mediaType
}

func (img EncodedImage) Bytes() ([]byte, error) {
	_, payload, err := img.split()
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, nil
}

// Validate checks the data URL shape and that it declares an image media type.
func (img EncodedImage) Validate() error {
	mediaType, payload, err := img.split()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("%w: media type %q is not an image", ErrInvalidDataURL, mediaType)
	}
	if payload == "" {
		return fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	return nil
}
