package tracking

import "sort"

// region is a maximal 8-connected foreground component of a mask.
// Centroid is the ratio of the first-order spatial moments (m10, m01) to the
// zeroth-order moment (m00, the pixel area).
type region struct {
	area     int
	centroid Point
}

// Detector extracts object centroids from one binary mask. Components with
// area outside [minArea, maxArea] are discarded. When more than
// maxDetections components qualify, only the largest ones are kept so the
// downstream association cost stays bounded.
type Detector struct {
	minArea       int
	maxArea       int
	maxDetections int
}

// NewDetector creates a Detector from an already validated TrackerConfig.
func NewDetector(cfg TrackerConfig) *Detector {
	return &Detector{
		minArea:       cfg.MinArea,
		maxArea:       cfg.MaxArea,
		maxDetections: cfg.MaxDetections,
	}
}

// Detect returns the centroids of qualifying foreground components of mask.
// An empty or fully-background mask yields an empty result, never an error.
func (d *Detector) Detect(mask *Mask) []Point {
	regions := d.labelRegions(mask)

	if len(regions) > d.maxDetections {
		sort.SliceStable(regions, func(i, j int) bool {
			return regions[i].area > regions[j].area
		})
		regions = regions[:d.maxDetections]
	}

	centroids := make([]Point, len(regions))
	for i, reg := range regions {
		centroids[i] = reg.centroid
	}
	return centroids
}

// labelRegions scans the mask and flood-fills each unvisited foreground
// pixel into its 8-connected component, accumulating the raw moments.
func (d *Detector) labelRegions(mask *Mask) []region {
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return nil
	}

	visited := make([]bool, mask.Width*mask.Height)
	var regions []region
	// Reused BFS queue of pixel indices
	queue := make([]int, 0, 64)

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			idx := y*mask.Width + x
			if visited[idx] || !mask.At(x, y) {
				continue
			}

			var m00 int
			var m10, m01 float64

			queue = queue[:0]
			queue = append(queue, idx)
			visited[idx] = true
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				cx := cur % mask.Width
				cy := cur / mask.Width

				m00++
				m10 += float64(cx)
				m01 += float64(cy)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := cx+dx, cy+dy
						if !mask.At(nx, ny) {
							continue
						}
						nidx := ny*mask.Width + nx
						if visited[nidx] {
							continue
						}
						visited[nidx] = true
						queue = append(queue, nidx)
					}
				}
			}

			if m00 < d.minArea || m00 > d.maxArea {
				continue
			}
			regions = append(regions, region{
				area: m00,
				centroid: Point{
					X: m10 / float64(m00),
					Y: m01 / float64(m00),
				},
			})
		}
	}
	return regions
}
