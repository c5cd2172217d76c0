package main

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/detection"
	"github.com/ironsheep/frame-guide-mcp/internal/imaging"
)

const (
	sourceEdge   = "edge"
	sourceRemote = "remote"
)

type detectOutput struct {
	Source    string                    `json:"source"`
	Detection alignment.DetectionResult `json:"detection"`
	Guidance  *alignment.GuidanceResult `json:"guidance,omitempty"`
}

func detectCommand(a *app) *cobra.Command {
	var (
		imagePath string
		expected  []float64
		source    string
		noAlign   bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the vehicle in one frame and print the guidance as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guide := a.settings.GuideRegion()
			if cmd.Flags().Changed("expected") {
				if len(expected) != 4 {
					return fmt.Errorf("--expected needs x,y,width,height, got %d values", len(expected))
				}
				guide = alignment.Box{X: expected[0], Y: expected[1], Width: expected[2], Height: expected[3]}
			}

			cache := imaging.NewImageCache()
			var det alignment.DetectionResult

			switch source {
			case sourceEdge:
				img, err := imaging.LoadFrame(cache, imagePath, a.settings.Frame.MaxDimension)
				if err != nil {
					return err
				}
				det = detection.DetectVehicleEdges(detection.FrameFromImage(img), &guide, a.settings.EdgeOptions())

			case sourceRemote:
				client := a.vehicleClient(nil)
				img, err := cache.Load(imagePath)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				bounds := img.Bounds()
				det, err = client.Detect(cmd.Context(), data, bounds.Dx(), bounds.Dy())
				if err != nil {
					return err
				}

			default:
				return fmt.Errorf("unknown source %q: want %q or %q", source, sourceEdge, sourceRemote)
			}

			out := detectOutput{Source: source, Detection: det}
			if !noAlign {
				thresholds := a.settings.AlignmentThresholds()
				guidance := alignment.Analyze(&det, &guide, alignment.Options{
					Base:   &thresholds,
					Locale: a.settings.MessageLocale(),
				})
				out.Guidance = &guidance
			}

			enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the captured frame")
	cmd.Flags().Float64SliceVar(&expected, "expected", nil, "Guide region as x,y,width,height (default from config)")
	cmd.Flags().StringVar(&source, "source", sourceEdge, "Detection source: edge or remote")
	cmd.Flags().BoolVar(&noAlign, "no-align", false, "Only print the detection")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
