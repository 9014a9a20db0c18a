package comicrepack

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Verdict is the outcome of blank-page classification.
type Verdict int

const (
	// VerdictContent means the page carries content and is kept.
	VerdictContent Verdict = iota
	// VerdictTooSmall means a dimension is below the minimum size.
	VerdictTooSmall
	// VerdictWhite means the page is almost entirely background.
	VerdictWhite
	// VerdictFlatCenter means the centre of the page has no visible variation.
	VerdictFlatCenter
	// VerdictInkBlob means a single dark blob dominates the page.
	VerdictInkBlob
)

// String returns a short, log-friendly name for the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictContent:
		return "content"
	case VerdictTooSmall:
		return "too-small"
	case VerdictWhite:
		return "white"
	case VerdictFlatCenter:
		return "flat-center"
	case VerdictInkBlob:
		return "ink-blob"
	default:
		return "unknown"
	}
}

// Blank reports whether the verdict drops the page.
func (v Verdict) Blank() bool { return v != VerdictContent }

// Classifier decides whether a decoded grayscale page is blank filler.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	t BlankThresholds
}

// NewClassifier returns a classifier using t.
func NewClassifier(t BlankThresholds) *Classifier {
	return &Classifier{t: t}
}

// IsBlank reports whether page should be dropped.
func (c *Classifier) IsBlank(page *image.Gray) bool {
	return c.Classify(page).Blank()
}

// Classify applies the blank heuristics in order and returns the first that
// fires, or VerdictContent. A page that cannot be classified, because it is
// nil or because a heuristic panics, is treated as content: classification
// never causes a page to be dropped by its own failure.
func (c *Classifier) Classify(page *image.Gray) (v Verdict) {
	defer func() {
		if recover() != nil {
			v = VerdictContent
		}
	}()
	if page == nil {
		return VerdictContent
	}

	b := page.Bounds()
	if b.Dx() < c.t.MinDimension || b.Dy() < c.t.MinDimension {
		return VerdictTooSmall
	}
	if whiteRatio(page, c.t.WhiteLevel) >= c.t.WhiteRatio {
		return VerdictWhite
	}
	if centerStdDev(page, c.t.CenterMargin) < c.t.CenterStdDev {
		return VerdictFlatCenter
	}
	if largestInkBlobRatio(page, c.t.ThumbnailSize, c.t.InkLevel) >= c.t.BlobRatio {
		return VerdictInkBlob
	}
	return VerdictContent
}

// whiteRatio returns the fraction of pixels with intensity >= level.
func whiteRatio(page *image.Gray, level uint8) float64 {
	var hist [256]int
	b := page.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := page.Pix[page.PixOffset(b.Min.X, y):page.PixOffset(b.Max.X, y)]
		for _, px := range row {
			hist[px]++
		}
	}

	white := 0
	for i := int(level); i < len(hist); i++ {
		white += hist[i]
	}
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	return float64(white) / float64(total)
}

// centerStdDev returns the population standard deviation of the intensity
// inside the rectangle left after cutting margin (a fraction) from each side.
// Dark borders and gutters fall outside the patch.
func centerStdDev(page *image.Gray, margin float64) float64 {
	b := page.Bounds()
	dx := int(float64(b.Dx()) * margin)
	dy := int(float64(b.Dy()) * margin)
	r := image.Rect(b.Min.X+dx, b.Min.Y+dy, b.Max.X-dx, b.Max.Y-dy)
	if r.Empty() {
		r = b
	}

	var sum, sumSq float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := page.Pix[page.PixOffset(r.Min.X, y):page.PixOffset(r.Max.X, y)]
		for _, px := range row {
			v := float64(px)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(r.Dx() * r.Dy())
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// largestInkBlobRatio downsamples page to a size×size grid and returns the
// share of the grid covered by the largest 4-connected component of cells
// darker than ink. Line art and lettering break into many small components;
// a smear or solid filler block forms one large one.
func largestInkBlobRatio(page *image.Gray, size int, ink uint8) float64 {
	thumb := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(thumb, thumb.Bounds(), page, page.Bounds(), draw.Src, nil)

	n := size * size
	visited := make([]bool, n)
	queue := make([]int, 0, n)
	largest := 0

	for start := 0; start < n; start++ {
		if visited[start] || thumb.Pix[start] >= ink {
			continue
		}
		visited[start] = true
		queue = append(queue[:0], start)
		area := 0
		for head := 0; head < len(queue); head++ {
			cell := queue[head]
			area++
			x, y := cell%size, cell/size
			for _, nb := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				if nb[0] < 0 || nb[0] >= size || nb[1] < 0 || nb[1] >= size {
					continue
				}
				idx := nb[1]*size + nb[0]
				if !visited[idx] && thumb.Pix[idx] < ink {
					visited[idx] = true
					queue = append(queue, idx)
				}
			}
		}
		if area > largest {
			largest = area
		}
	}

	return float64(largest) / float64(n)
}
