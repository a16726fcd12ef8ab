package models

import "image"

// ImageKind is the top-level prefix of an image kept in the object store.
type ImageKind string

const (
	ImageEnrollment ImageKind = "enrollments"
	ImageSnapshot   ImageKind = "snapshots"
	ImageProbe      ImageKind = "probes"
)

// Box is a face region in pixel coordinates using the
// top/right/bottom/left convention.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect returns the box as an image rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Array returns [top, right, bottom, left].
func (b Box) Array() [4]int {
	return [4]int{b.Top, b.Right, b.Bottom, b.Left}
}

// Face is one detection returned by an embedding provider.
type Face struct {
	Box        Box
	Confidence float32
	Embedding  []float32
}
