package dto

// Request and response shapes of the first-generation mobile client.

type LegacyAddPersonRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Photo     string `json:"photo"`
}

type LegacyRecognizeRequest struct {
	Image string `json:"image"`
}

type LegacyRecognizedFace struct {
	Name         string  `json:"name"`
	Confidence   float64 `json:"confidence"`
	Box          [4]int  `json:"box"`
	PhotoDataURL string  `json:"photoDataUrl"`
}

type LegacyRecognitionResponse struct {
	RecognizedFaces []LegacyRecognizedFace `json:"recognized_faces"`
	ImageBase64     string                 `json:"image_base64"`
}
