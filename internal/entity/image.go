package entity

// ImageRequest is the input of a single OCR request. Exactly one of Data or
// URL is populated.
// DetThresh and RecThresh override the configured thresholds when set.
type ImageRequest struct {
	Data                []byte
	DeclaredContentType string
	URL                 string
	DetThresh           *float64
	RecThresh           *float64
}

func (r ImageRequest) IsUpload() bool {
	return r.Data != nil
}

// ResolvedImage is an image that passed size, type and decode validation.
type ResolvedImage struct {
	Data        []byte
	ByteLength  int
	ContentType string
	Width       int
	Height      int
}
