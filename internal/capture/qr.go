package capture

import (
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDetectorName is the engine name reported for decoded QR codes.
const QRDetectorName = "QR Code Detector"

// QRDetector decodes a QR code from an image.
type QRDetector interface {
	Detect(img image.Image) (string, bool)
}

// ZXingDetector decodes QR codes with gozxing.
type ZXingDetector struct{}

var qrHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// Detect implements QRDetector. Images without a readable code report false.
func (ZXingDetector) Detect(img image.Image) (string, bool) {
	if img == nil || img.Bounds().Empty() {
		return "", false
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, qrHints)
	if err != nil {
		return "", false
	}

	text := strings.TrimSpace(result.GetText())
	return text, text != ""
}
