package main

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuxbotix/hulk/internal/calibration"
	"github.com/tuxbotix/hulk/internal/edge"
	"github.com/tuxbotix/hulk/internal/overlay"
	"github.com/tuxbotix/hulk/internal/projection"
	"github.com/tuxbotix/hulk/internal/store"
)

var (
	imagePath      string
	overlayPath    string
	cameraName     string
	captureDir     string
	seed           int64
	pixelsPerMeter float64
	horizonRow     float64
	useLumaOnly    bool
	noRefine       bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the center circle in a single frame",
	Long: `Runs the detection pipeline on an image file with a planar camera
model, prints the detection, and optionally writes an annotated overlay and
a calibration capture.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&imagePath, "image", "", "Input image path (required)")
	detectCmd.Flags().StringVar(&overlayPath, "overlay", "", "Write annotated overlay PNG to this path")
	detectCmd.Flags().StringVar(&cameraName, "camera", "top", "Camera name recorded in captures")
	detectCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Persist the detection as a measurement under this directory")
	detectCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	detectCmd.Flags().Float64Var(&pixelsPerMeter, "pixels-per-meter", 100, "Planar camera scale")
	detectCmd.Flags().Float64Var(&horizonRow, "horizon", 0, "Horizon row; edges above it are discarded")
	detectCmd.Flags().BoolVar(&useLumaOnly, "luma-only", false, "Use the plain luma edge source")
	detectCmd.Flags().BoolVar(&noRefine, "no-refine", false, "Disable midfield-line refinement")

	detectCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	frame, nrgba := convertToYCbCr422(img)
	slog.Info("Loaded frame", "path", imagePath, "width", frame.Width, "height", frame.Height)

	cfg := detectionConfig()
	camera := projection.NewPlanarCamera(frame.Width, frame.Height, pixelsPerMeter)
	if horizonRow > 0 {
		camera.HorizonY = horizonRow
		camera.HasHorizon = true
	}

	rng := rand.New(rand.NewSource(seed))
	start := time.Now()
	detection, err := calibration.DetectCenterCircle(
		calibration.Input{Image: frame},
		camera,
		calibration.DefaultFieldDimensions(),
		cfg,
		rng,
	)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	elapsed := time.Since(start)

	if detection == nil {
		slog.Info("No center circle found", "elapsed", elapsed)
		fmt.Println("no center circle found")
		return nil
	}

	slog.Info("Center circle detected",
		"center_x", detection.CenterPixel.X,
		"center_y", detection.CenterPixel.Y,
		"inliers", len(detection.Points),
		"score", detection.Score,
		"elapsed", elapsed,
	)
	fmt.Printf("center: (%.1f, %.1f), inliers: %d, score: %.3f\n",
		detection.CenterPixel.X, detection.CenterPixel.Y, len(detection.Points), detection.Score)

	if overlayPath != "" {
		overlay.DrawDetection(nrgba, detection)
		if err := imaging.Save(nrgba, overlayPath); err != nil {
			return fmt.Errorf("failed to save overlay: %w", err)
		}
		slog.Info("Overlay written", "path", overlayPath)
	}

	if captureDir != "" {
		if err := saveCapture(detection); err != nil {
			return err
		}
	}
	return nil
}

// detectionConfig layers viper-provided values and flags over the defaults.
func detectionConfig() calibration.Config {
	cfg := calibration.DefaultConfig()
	if viper.IsSet("gaussian_sigma") {
		cfg.GaussianSigma = float32(viper.GetFloat64("gaussian_sigma"))
	}
	if viper.IsSet("canny_low") {
		cfg.CannyLow = float32(viper.GetFloat64("canny_low"))
	}
	if viper.IsSet("canny_high") {
		cfg.CannyHigh = float32(viper.GetFloat64("canny_high"))
	}
	if viper.IsSet("ransac_iterations") {
		cfg.RansacIterations = viper.GetInt("ransac_iterations")
	}
	if viper.IsSet("ransac_max_circles") {
		cfg.RansacMaxCircles = viper.GetInt("ransac_max_circles")
	}
	if viper.IsSet("ransac_inlier_threshold") {
		cfg.RansacInlierThreshold = viper.GetFloat64("ransac_inlier_threshold")
	}
	if viper.IsSet("min_circumference_ratio") {
		cfg.MinCircumferenceRatio = viper.GetFloat64("min_circumference_ratio")
	}
	if useLumaOnly {
		cfg.SourceType = edge.EdgeSourceLuma
	}
	if noRefine {
		cfg.RefineEnable = false
	}
	return cfg
}

// convertToYCbCr422 converts a decoded image to the packed 4:2:2 frame the
// pipeline consumes, along with the NRGBA copy used for overlays. Odd
// widths lose their last column.
func convertToYCbCr422(img image.Image) (*edge.YCbCr422Image, *image.NRGBA) {
	nrgba := imaging.Clone(img)
	width := nrgba.Rect.Dx() &^ 1
	height := nrgba.Rect.Dy()

	buffer := make([]uint8, width*height*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 2 {
			c0 := nrgba.NRGBAAt(x, y)
			c1 := nrgba.NRGBAAt(x+1, y)
			y0, cb0, cr0 := color.RGBToYCbCr(c0.R, c0.G, c0.B)
			y1, cb1, cr1 := color.RGBToYCbCr(c1.R, c1.G, c1.B)

			i := (y*width/2 + x/2) * 4
			buffer[i+0] = y0
			buffer[i+1] = uint8((int(cb0) + int(cb1)) / 2)
			buffer[i+2] = y1
			buffer[i+3] = uint8((int(cr0) + int(cr1)) / 2)
		}
	}
	return edge.NewYCbCr422Image(width, height, buffer), nrgba
}

func saveCapture(detection *calibration.Detection) error {
	fs, err := store.NewFSStore(captureDir)
	if err != nil {
		return fmt.Errorf("failed to open capture store: %w", err)
	}

	now := time.Now()
	measurement := &store.Measurement{
		ID:          fmt.Sprintf("%s-%d", cameraName, now.UnixMilli()),
		Camera:      cameraName,
		CenterPixel: detection.CenterPixel,
		Points:      detection.Points,
		Score:       detection.Score,
		Timestamp:   now,
	}
	if err := fs.SaveMeasurement(measurement); err != nil {
		return fmt.Errorf("failed to save capture: %w", err)
	}
	slog.Info("Capture saved", "id", measurement.ID, "dir", captureDir)
	return nil
}
