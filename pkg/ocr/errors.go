package ocr

import "errors"

// ErrRecognitionFailed is returned when the external engine cannot
// produce text for a field. The field degrades to zero confidence; the
// image is never retried.
var ErrRecognitionFailed = errors.New("recognition failed")
