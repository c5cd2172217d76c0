// Package verify replays recorded detections through the alignment analyzer
// and checks each one lands on the frame status it was labelled with.
package verify

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoCases is returned when a case file parses but holds nothing to run.
var ErrNoCases = errors.New("no alignment cases")

// Case is one labelled detection.
type Case struct {
	Name           string                        `json:"name" validate:"required"`
	Detection      *alignment.DetectionResult    `json:"detection"`
	Expected       *alignment.Box                `json:"expected"`
	ExpectedStatus alignment.FrameStatus         `json:"expected_status" validate:"required,oneof=detecting adjust good matched"`
	Thresholds     *alignment.ThresholdOverrides `json:"thresholds,omitempty"`
}

// UnmarshalJSON also accepts "expectedStatus", the key used by recorded
// browser fixtures.
func (c *Case) UnmarshalJSON(data []byte) error {
	type plain Case
	if err := json.Unmarshal(data, (*plain)(c)); err != nil {
		return err
	}
	if c.ExpectedStatus != "" {
		return nil
	}

	var keys struct {
		ExpectedStatus alignment.FrameStatus `json:"expectedStatus"`
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	c.ExpectedStatus = keys.ExpectedStatus
	return nil
}

// CaseResult is the outcome of a single case.
type CaseResult struct {
	Name           string                `json:"name"`
	ExpectedStatus alignment.FrameStatus `json:"expected_status"`
	Status         alignment.FrameStatus `json:"status"`
	Confidence     float64               `json:"confidence"`
	IoU            *float64              `json:"iou,omitempty"`
	Message        string                `json:"message"`
	Passed         bool                  `json:"passed"`
}

// Report collects every case result.
type Report struct {
	Results []CaseResult `json:"results"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}

// OK reports whether every case passed.
func (r Report) OK() bool {
	return r.Failed == 0
}

// LoadCases reads a JSON array of cases from path.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}
	return ParseCases(data)
}

// ParseCases decodes and validates a JSON array of cases.
func ParseCases(data []byte) ([]Case, error) {
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}

	validate := validator.New()
	for i := range cases {
		if err := validate.Struct(cases[i]); err != nil {
			return nil, fmt.Errorf("case %d (%q): %w", i, cases[i].Name, err)
		}
	}
	return cases, nil
}

// Run analyzes every case. Per-case thresholds are layered on top of the
// thresholds opts resolves to.
func Run(cases []Case, opts alignment.Options) Report {
	base := opts.EffectiveThresholds()

	report := Report{Results: make([]CaseResult, 0, len(cases))}
	for _, c := range cases {
		guidance := alignment.Analyze(c.Detection, c.Expected, alignment.Options{
			Base:       &base,
			Thresholds: c.Thresholds,
			Locale:     opts.Locale,
		})

		res := CaseResult{
			Name:           c.Name,
			ExpectedStatus: c.ExpectedStatus,
			Status:         guidance.FrameStatus,
			Confidence:     guidance.Confidence,
			Message:        guidance.Message,
			Passed:         guidance.FrameStatus == c.ExpectedStatus,
		}
		if guidance.Metrics != nil {
			iou := guidance.Metrics.IoU
			res.IoU = &iou
		}

		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}
	return report
}

// Write prints one line per case followed by a summary.
func (r Report) Write(w io.Writer) error {
	for _, res := range r.Results {
		var err error
		if res.Passed {
			_, err = fmt.Fprintf(w, "PASS %s -> %s (confidence=%.3f)\n", res.Name, res.Status, res.Confidence)
		} else {
			iou := "n/a"
			if res.IoU != nil {
				iou = fmt.Sprintf("%.3f", *res.IoU)
			}
			_, err = fmt.Fprintf(w, "FAIL %s: expected %s, got %s (confidence=%.3f, iou=%s)\n",
				res.Name, res.ExpectedStatus, res.Status, res.Confidence, iou)
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d passed, %d failed\n", r.Passed, r.Failed)
	return err
}
