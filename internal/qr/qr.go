package qr

import (
	"errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidLink = errors.New("meeting link is not an absolute http(s) URL")

const DefaultSize = 256

type QRGenerator struct {
	size int
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size}
}

// MeetingLinkPNG renders a scannable PNG of the meeting link so it can be
// opened on a phone.
func (q *QRGenerator) MeetingLinkPNG(link string) ([]byte, error) {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidLink
	}
	return qrcode.Encode(link, qrcode.Medium, q.size)
}
