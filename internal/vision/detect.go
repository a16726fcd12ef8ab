package vision

import (
	"fmt"
	"image"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/attendance/internal/models"
)

const (
	detInputSize     = 640
	anchorsPerCell   = 2
	nmsIoUThreshold  = 0.4
	detInputName     = "input.1"
	detLandmarkCount = 5
)

// RetinaFace det_10g feature map strides.
var detStrides = []int{8, 16, 32}

// det_10g output names, grouped scores / boxes / landmarks, each by stride.
var (
	detScoreOutputs    = []string{"448", "471", "494"}
	detBoxOutputs      = []string{"451", "474", "497"}
	detLandmarkOutputs = []string{"454", "477", "500"}
)

// Detection is one face found by the detector, in original image pixels.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2
	Confidence float32
	Landmarks  [detLandmarkCount][2]float32
}

// Box converts the detection to integer top/right/bottom/left coordinates.
func (d Detection) Box() models.Box {
	return models.Box{
		Top:    int(math.Round(float64(d.BBox[1]))),
		Right:  int(math.Round(float64(d.BBox[2]))),
		Bottom: int(math.Round(float64(d.BBox[3]))),
		Left:   int(math.Round(float64(d.BBox[0]))),
	}
}

// Rect is the detection box as an image rectangle.
func (d Detection) Rect() image.Rectangle {
	return d.Box().Rect()
}

// Detector wraps a RetinaFace session. Not safe for concurrent use.
type Detector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	scores    []*ort.Tensor[float32]
	boxes     []*ort.Tensor[float32]
	landmarks []*ort.Tensor[float32]
	threshold float32
}

// NewDetector loads det_10g. opts may be nil.
func NewDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, detInputSize, detInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	d := &Detector{input: input, threshold: threshold}

	var names []string
	var values []ort.Value
	add := func(dst *[]*ort.Tensor[float32], outputs []string, width int64) error {
		for i, name := range outputs {
			n := cellsForStride(detStrides[i])
			t, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), width))
			if err != nil {
				return fmt.Errorf("create output tensor %s: %w", name, err)
			}
			*dst = append(*dst, t)
			names = append(names, name)
			values = append(values, t)
		}
		return nil
	}
	for _, group := range []struct {
		dst     *[]*ort.Tensor[float32]
		outputs []string
		width   int64
	}{
		{&d.scores, detScoreOutputs, 1},
		{&d.boxes, detBoxOutputs, 4},
		{&d.landmarks, detLandmarkOutputs, detLandmarkCount * 2},
	} {
		if err := add(group.dst, group.outputs, group.width); err != nil {
			d.Close()
			return nil, err
		}
	}

	d.session, err = ort.NewAdvancedSession(modelPath,
		[]string{detInputName}, names,
		[]ort.Value{input}, values,
		opts,
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create detector session: %w", err)
	}
	return d, nil
}

// cellsForStride is the anchor count for one stride: (640/s)^2 * 2.
func cellsForStride(stride int) int {
	side := detInputSize / stride
	return side * side * anchorsPerCell
}

// Detect runs the model on CHW input already resized to 640x640 and returns
// faces in descending confidence after NMS.
func (d *Detector) Detect(chw []float32, origW, origH int) ([]Detection, error) {
	copy(d.input.GetData(), chw)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	scaleX := float32(origW) / detInputSize
	scaleY := float32(origH) / detInputSize

	var dets []Detection
	for i, stride := range detStrides {
		dets = append(dets, decodeStride(
			d.scores[i].GetData(), d.boxes[i].GetData(), d.landmarks[i].GetData(),
			stride, d.threshold, scaleX, scaleY, origW, origH)...)
	}
	return nms(dets, nmsIoUThreshold), nil
}

// decodeStride turns one stride's distance-to-edge outputs into detections.
func decodeStride(scores, boxes, landmarks []float32, stride int, threshold, scaleX, scaleY float32, origW, origH int) []Detection {
	var out []Detection
	side := detInputSize / stride
	st := float32(stride)

	idx := 0
	for cy := 0; cy < side; cy++ {
		for cx := 0; cx < side; cx++ {
			for a := 0; a < anchorsPerCell; a, idx = a+1, idx+1 {
				if idx >= len(scores) || scores[idx] < threshold {
					continue
				}
				ax := float32(cx) * st
				ay := float32(cy) * st

				det := Detection{
					BBox: [4]float32{
						clampF((ax-boxes[idx*4+0]*st)*scaleX, 0, float32(origW)),
						clampF((ay-boxes[idx*4+1]*st)*scaleY, 0, float32(origH)),
						clampF((ax+boxes[idx*4+2]*st)*scaleX, 0, float32(origW)),
						clampF((ay+boxes[idx*4+3]*st)*scaleY, 0, float32(origH)),
					},
					Confidence: scores[idx],
				}
				for l := 0; l < detLandmarkCount; l++ {
					det.Landmarks[l][0] = (ax + landmarks[idx*10+l*2]*st) * scaleX
					det.Landmarks[l][1] = (ay + landmarks[idx*10+l*2+1]*st) * scaleY
				}
				out = append(out, det)
			}
		}
	}
	return out
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	for _, group := range [][]*ort.Tensor[float32]{d.scores, d.boxes, d.landmarks} {
		for _, t := range group {
			t.Destroy()
		}
	}
}

// nms keeps the most confident box of every overlapping cluster. The result
// is ordered by descending confidence.
func nms(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) == 0 {
		return dets
	}

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	suppressed := make([]bool, len(dets))
	var kept []Detection
	for i := range dets {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if !suppressed[j] && iou(dets[i].BBox, dets[j].BBox) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b [4]float32) float32 {
	ix := max(0, min(a[2], b[2])-max(a[0], b[0]))
	iy := max(0, min(a[3], b[3])-max(a[1], b[1]))
	inter := ix * iy

	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clampF(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
