package alignment

import (
	"math"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FrameStatus is the discrete guidance tier shown to the user.
type FrameStatus string

const (
	StatusDetecting FrameStatus = "detecting"
	StatusAdjust    FrameStatus = "adjust"
	StatusGood      FrameStatus = "good"
	StatusMatched   FrameStatus = "matched"
)

// DefaultBaseScore is used when a detection carries no score, e.g. a remote
// detector that only reports a box.
const DefaultBaseScore = 0.65

// Confidence blend weights and bonuses.
const (
	weightBase      = 0.40
	weightAlignment = 0.25
	weightIoU       = 0.25

	areaBonus         = 0.15
	areaBonusMinRatio = 0.8
	areaBonusMaxRatio = 1.3

	iouBonusStart = 0.5
	iouBonusSlope = 0.3
	iouBonusCap   = 0.10

	centerPenaltyWeight = 2.8
	sizePenaltyWeight   = 0.8
	sizePenaltyCap      = 0.6
)

// DetectionMeta carries detector diagnostics. The analyzer ignores it.
type DetectionMeta struct {
	EdgePixels int     `json:"edge_pixels"`
	RegionArea int     `json:"region_area,omitempty"`
	Density    float64 `json:"density,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
	SampleStep int     `json:"sample_step,omitempty"`
}

// DetectionResult is a single-frame vehicle detection, from the edge
// detector or from a remote API.
type DetectionResult struct {
	HasVehicle bool           `json:"has_vehicle"`
	BBox       *Box           `json:"bbox,omitempty"`
	Score      *float64       `json:"score,omitempty"`
	Meta       *DetectionMeta `json:"meta,omitempty"`
}

// UnmarshalJSON also accepts the camelCase "hasVehicle" key sent by browser
// clients and the remote detection API. "has_vehicle" wins when both are set.
func (d *DetectionResult) UnmarshalJSON(data []byte) error {
	type plain DetectionResult
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}

	var keys struct {
		Snake *bool `json:"has_vehicle"`
		Camel *bool `json:"hasVehicle"`
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if keys.Snake == nil && keys.Camel != nil {
		d.HasVehicle = *keys.Camel
	}
	return nil
}

// Thresholds are the confidence and IoU cut-offs for each frame status.
type Thresholds struct {
	MatchedConfidence float64 `json:"matched_confidence"`
	GoodConfidence    float64 `json:"good_confidence"`
	AdjustConfidence  float64 `json:"adjust_confidence"`
	MatchedIoU        float64 `json:"matched_iou"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MatchedConfidence: 0.70,
		GoodConfidence:    0.60,
		AdjustConfidence:  0.45,
		MatchedIoU:        0.50,
	}
}

// ThresholdOverrides replaces any subset of Thresholds. Nil fields keep the
// base value.
type ThresholdOverrides struct {
	MatchedConfidence *float64 `json:"matched_confidence,omitempty"`
	GoodConfidence    *float64 `json:"good_confidence,omitempty"`
	AdjustConfidence  *float64 `json:"adjust_confidence,omitempty"`
	MatchedIoU        *float64 `json:"matched_iou,omitempty"`
}

// Merge returns t with the non-nil fields of o applied.
func (t Thresholds) Merge(o *ThresholdOverrides) Thresholds {
	if o == nil {
		return t
	}
	if o.MatchedConfidence != nil {
		t.MatchedConfidence = *o.MatchedConfidence
	}
	if o.GoodConfidence != nil {
		t.GoodConfidence = *o.GoodConfidence
	}
	if o.AdjustConfidence != nil {
		t.AdjustConfidence = *o.AdjustConfidence
	}
	if o.MatchedIoU != nil {
		t.MatchedIoU = *o.MatchedIoU
	}
	return t
}

// Options tune a single Analyze call.
type Options struct {
	// Base is the threshold set overrides apply to. Nil means DefaultThresholds.
	Base *Thresholds

	// Thresholds overrides individual fields of Base.
	Thresholds *ThresholdOverrides

	// Locale selects the message language. Empty means English.
	Locale Locale
}

// EffectiveThresholds returns Base, or the defaults, with Thresholds applied.
func (o Options) EffectiveThresholds() Thresholds {
	base := DefaultThresholds()
	if o.Base != nil {
		base = *o.Base
	}
	return base.Merge(o.Thresholds)
}

// Metrics is a diagnostic snapshot of the geometry behind a GuidanceResult.
type Metrics struct {
	OffsetX        float64 `json:"offset_x"`
	OffsetY        float64 `json:"offset_y"`
	AreaRatio      float64 `json:"area_ratio"`
	IoU            float64 `json:"iou"`
	BaseScore      float64 `json:"base_score"`
	AlignmentScore float64 `json:"alignment_score"`
}

// GuidanceResult is the analyzer output consumed by the capture UI.
//
// DetectionBox and Metrics are nil whenever no usable detection was given.
type GuidanceResult struct {
	HasVehicle   bool        `json:"has_vehicle"`
	Confidence   float64     `json:"confidence"`
	FrameStatus  FrameStatus `json:"frame_status"`
	Message      string      `json:"message"`
	DetectionBox *Box        `json:"detection_box"`
	Metrics      *Metrics    `json:"metrics"`
}

func notDetected(locale Locale) GuidanceResult {
	return GuidanceResult{
		HasVehicle:  false,
		Confidence:  0,
		FrameStatus: StatusDetecting,
		Message:     locale.catalogue().notDetected,
	}
}

// Analyze scores how well a detection matches the expected region and turns
// the score into a frame status and a user-facing message.
//
// Analyze never fails: a missing detection, a detection without a vehicle or a
// box, or a box that cannot be normalized all yield the "detecting" result with
// zero confidence and nil DetectionBox and Metrics. Boxes are not shifted back
// into the frame, so an expected or detected box whose x or y exceeds 0.98
// (no room for a MinBoxSize extent) also yields "detecting".
func Analyze(det *DetectionResult, expected *Box, opts Options) GuidanceResult {
	if det == nil || !det.HasVehicle || det.BBox == nil {
		return notDetected(opts.Locale)
	}
	want, ok := NormalizeBox(expected)
	if !ok {
		return notDetected(opts.Locale)
	}
	got, ok := NormalizeBox(det.BBox)
	if !ok {
		return notDetected(opts.Locale)
	}

	thresholds := opts.EffectiveThresholds()

	wantX, wantY := want.Center()
	gotX, gotY := got.Center()
	offsetX := gotX - wantX
	offsetY := gotY - wantY

	areaRatio := got.Area() / want.Area()
	sizePenalty := math.Min(math.Abs(math.Log(areaRatio)), sizePenaltyCap)
	centerPenalty := math.Sqrt(offsetX*offsetX + offsetY*offsetY)
	iou := IoU(got, want)

	baseScore := DefaultBaseScore
	if det.Score != nil && !math.IsNaN(*det.Score) {
		baseScore = *det.Score
	}

	alignmentScore := math.Max(0, 1-centerPenalty*centerPenaltyWeight-sizePenalty*sizePenaltyWeight)
	confidence := blend(baseScore, alignmentScore, iou, areaRatio)

	c := opts.Locale.catalogue()
	result := GuidanceResult{
		HasVehicle:   true,
		Confidence:   confidence,
		DetectionBox: &got,
		Metrics: &Metrics{
			OffsetX:        offsetX,
			OffsetY:        offsetY,
			AreaRatio:      areaRatio,
			IoU:            iou,
			BaseScore:      baseScore,
			AlignmentScore: alignmentScore,
		},
	}

	switch {
	case confidence >= thresholds.MatchedConfidence && iou > thresholds.MatchedIoU:
		result.FrameStatus = StatusMatched
		result.Message = c.matched
	case confidence >= thresholds.GoodConfidence:
		result.FrameStatus = StatusGood
		result.Message = c.good
	case confidence >= thresholds.AdjustConfidence:
		result.FrameStatus = StatusAdjust
		result.Message = Hint(offsetX, offsetY, areaRatio, opts.Locale)
	default:
		result.FrameStatus = StatusDetecting
		result.Message = Hint(offsetX, offsetY, areaRatio, opts.Locale)
	}

	return result
}

// blend combines detector confidence, alignment and overlap into [0,1].
func blend(baseScore, alignmentScore, iou, areaRatio float64) float64 {
	sizeBonus := 0.0
	if areaRatio >= areaBonusMinRatio && areaRatio <= areaBonusMaxRatio {
		sizeBonus = areaBonus
	}
	overlapBonus := 0.0
	if iou > iouBonusStart {
		overlapBonus = math.Min(iouBonusCap, (iou-iouBonusStart)*iouBonusSlope)
	}

	return clampFloat(
		baseScore*weightBase+alignmentScore*weightAlignment+iou*weightIoU+sizeBonus+overlapBonus,
		0, 1,
	)
}
