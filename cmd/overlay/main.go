// Command overlay runs an object detector over a camera, video or frame
// directory and draws labelled boxes on every processed frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/config"
	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/inference"
	"github.com/nvr-ai/go-overlay/inference/providers"
	"github.com/nvr-ai/go-overlay/models"
	"github.com/nvr-ai/go-overlay/models/postprocess"
	"github.com/nvr-ai/go-overlay/pipeline"
	"github.com/nvr-ai/go-overlay/profiler"
	"github.com/nvr-ai/go-overlay/render"
)

type flags struct {
	configPath string
	demo       bool
	classify   bool

	model      string
	labels     string
	provider   string
	device     int
	video      string
	frames     string
	iou        float64
	confidence float64
	origin     string
	showWindow bool
	outputDir  string
	logLevel   string
	dev        bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	flag.BoolVar(&f.demo, "demo", false, "Replay canned results instead of running a model")
	flag.BoolVar(&f.classify, "classify", false, "Caption each frame with its top class instead of detecting objects")
	flag.StringVar(&f.model, "model", "", "Path to the ONNX detector, or classifier with -classify")
	flag.StringVar(&f.labels, "labels", "", "Path to a labels file, one class per line")
	flag.StringVar(&f.provider, "provider", "", "Execution provider: cpu, coreml, cuda, openvino")
	flag.IntVar(&f.device, "device", 0, "Camera device id")
	flag.StringVar(&f.video, "video", "", "Path to a video file (.mp4, .avi, .mov)")
	flag.StringVar(&f.frames, "frames", "", "Directory of frame-<n>.png/.jpg images")
	flag.Float64Var(&f.iou, "iou", 0.5, "IoU threshold passed to the model")
	flag.Float64Var(&f.confidence, "confidence", 0.3, "Confidence threshold passed to the model")
	flag.StringVar(&f.origin, "origin", "", "Model y-axis origin: bottom-left or top-left")
	flag.BoolVar(&f.showWindow, "show-window", false, "Show the overlay in a window")
	flag.StringVar(&f.outputDir, "output-dir", "", "Write rendered frames as PNG to this directory")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&f.dev, "dev", false, "Human-readable development logging")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "overlay: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	labels, err := cfg.Labels.LoadLabels()
	if err != nil {
		return err
	}

	source, err := openSource(cfg.Capture, f.demo)
	if err != nil {
		return err
	}

	m, err := openModel(cfg, labels, f.demo, logger)
	if err != nil {
		return multierr.Append(err, source.Close())
	}

	renderer, err := openRenderer(cfg.Output)
	if err != nil {
		return multierr.Combine(err, m.Close(), source.Close())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := profiler.New(profiler.Options{ReportInterval: cfg.Output.ReportInterval, Logger: logger})
	if cfg.Output.ReportInterval > 0 {
		prof.Start(ctx)
		defer prof.Stop()
	}

	p, err := pipeline.New(pipeline.Args{
		Source:     source,
		Engine:     m.engine,
		Classifier: m.classifier,
		Labels:     labels,
		Renderer:   renderer,
		Filter:     cfg.Postprocess.Filter(),
		Thresholds: cfg.Thresholds,
		Origin:     cfg.Postprocess.Origin,
		Profiler:   prof,
		Logger:     logger,
		OnDetections: func(frame capture.Frame, dets []postprocess.Detection) {
			logger.Debugw("frame processed", "frame", frame.ID, "detections", len(dets))
		},
		OnClassification: func(frame capture.Frame, c postprocess.Classification, ok bool) {
			logger.Debugw("frame classified", "frame", frame.ID, "label", c.Label, "confidence", c.Confidence, "ok", ok)
		},
	})
	if err != nil {
		return multierr.Combine(err, renderer.Close(), m.Close(), source.Close())
	}

	logger.Infow("overlay starting",
		"task", cfg.Task,
		"labels", labels.Len(),
		"family", labels.Family(),
		"iou", cfg.Thresholds.IoU,
		"confidence", cfg.Thresholds.Confidence,
		"origin", cfg.Postprocess.Origin,
		"demo", f.demo,
	)

	runErr := p.Run(ctx)
	s := p.Stats()
	logger.Infow("overlay finished",
		"processed", s.Processed,
		"dropped", s.Dropped,
		"failed", s.Failed,
		"fps", s.FPS,
		"avg_inference", s.AverageInference,
	)
	return multierr.Combine(runErr, renderer.Close(), m.Close(), source.Close())
}

// loadConfig layers the config file, then any flag set on the command line.
func loadConfig(f flags) (config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(f.configPath); err != nil {
			return config.Config{}, err
		}
	}

	modelSet := false
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "classify":
			if f.classify {
				cfg.Task = config.TaskClassify
			} else {
				cfg.Task = config.TaskDetect
			}
		case "model":
			modelSet = true
		case "labels":
			cfg.Labels.Path = f.labels
		case "provider":
			cfg.Model.Provider.Backend = providers.ProviderBackend(f.provider)
			cfg.Classifier.Provider.Backend = providers.ProviderBackend(f.provider)
		case "device":
			cfg.Capture.Device = f.device
		case "video":
			cfg.Capture.Video = f.video
		case "frames":
			cfg.Capture.Frames = f.frames
		case "iou":
			cfg.Thresholds.IoU = float32(f.iou)
		case "confidence":
			cfg.Thresholds.Confidence = float32(f.confidence)
		case "origin":
			cfg.Postprocess.Origin = images.Origin(f.origin)
		case "show-window":
			cfg.Output.ShowWindow = f.showWindow
		case "output-dir":
			cfg.Output.Dir = f.outputDir
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "dev":
			cfg.Log.Development = f.dev
		}
	})
	if modelSet {
		if cfg.Task == config.TaskClassify {
			cfg.Classifier.ModelPath = f.model
		} else {
			cfg.Model.ModelPath = f.model
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func openSource(c config.CaptureConfig, demo bool) (capture.Source, error) {
	switch {
	case c.Video != "":
		src, err := capture.NewFile(c.Video)
		if err != nil {
			return nil, err
		}
		return src, nil
	case c.Frames != "":
		src, err := capture.NewDirectorySource(c.Frames)
		if err != nil {
			return nil, err
		}
		return src, nil
	case demo:
		return demoSource(c), nil
	default:
		res, _ := images.GetResolutionByType(c.Resolution)
		src, err := capture.NewCamera(c.Device, res, c.FPS)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// demoSource loops a blank frame at the capture resolution and rate.
func demoSource(c config.CaptureConfig) capture.Source {
	res, _ := images.GetResolutionByType(c.Resolution)
	img := image.NewRGBA(image.Rect(0, 0, res.Pixels.Width, res.Pixels.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}), image.Point{}, draw.Src)

	src := capture.NewStillSource(img)
	src.Loop = true
	if c.FPS > 0 {
		src.Interval = time.Second / time.Duration(c.FPS)
	}
	return src
}

// model holds whichever of a detector or a classifier the task needs.
type model struct {
	engine     inference.Engine
	classifier inference.Classifier
}

func (m model) Close() error {
	if m.classifier != nil {
		return m.classifier.Close()
	}
	return m.engine.Close()
}

func openModel(cfg config.Config, labels *models.LabelTable, demo bool, logger *zap.SugaredLogger) (model, error) {
	switch {
	case cfg.Task == config.TaskClassify && demo:
		return model{classifier: demoClassifier(labels)}, nil
	case cfg.Task == config.TaskClassify:
		classifier, err := inference.NewONNXClassifier(cfg.Classifier, logger.Named("onnx"))
		if err != nil {
			return model{}, err
		}
		return model{classifier: classifier}, nil
	case demo:
		return model{engine: demoEngine(labels)}, nil
	default:
		engine, err := inference.NewONNXEngine(cfg.Model, logger.Named("onnx"))
		if err != nil {
			return model{}, err
		}
		return model{engine: engine}, nil
	}
}

// demoScores returns a score vector with a single nonzero class.
func demoScores(labels *models.LabelTable, class int, score float32) []float32 {
	s := make([]float32, labels.Len())
	s[class%labels.Len()] = score
	return s
}

func demoEngine(labels *models.LabelTable) *inference.StaticEngine {
	engine := inference.NewStaticEngine(
		postprocess.RawDetectionSet{
			Coordinates: []postprocess.Box{
				{CX: 0.30, CY: 0.55, W: 0.20, H: 0.50},
				{CX: 0.70, CY: 0.30, W: 0.25, H: 0.20},
			},
			Confidences: [][]float32{demoScores(labels, 0, 0.91), demoScores(labels, 2, 0.64)},
		},
		postprocess.RawDetectionSet{
			Coordinates: []postprocess.Box{{CX: 0.32, CY: 0.55, W: 0.20, H: 0.50}},
			Confidences: [][]float32{demoScores(labels, 0, 0.88)},
		},
	)
	engine.Delay = 30 * time.Millisecond
	return engine
}

// demoClassifier cycles through two answers and an empty result.
func demoClassifier(labels *models.LabelTable) *inference.StaticClassifier {
	classifier := inference.NewStaticClassifier(
		demoScores(labels, 0, 0.82),
		demoScores(labels, 1, 0.57),
		nil,
	)
	classifier.Delay = 30 * time.Millisecond
	return classifier
}

func openRenderer(c config.OutputConfig) (render.Renderer, error) {
	if c.ShowWindow {
		return render.NewMatRenderer(c.WindowTitle), nil
	}
	if c.Dir == "" {
		return &render.ImageRenderer{}, nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}
	return &render.ImageRenderer{Output: func(frame capture.Frame, img *image.RGBA) error {
		return writePNG(filepath.Join(c.Dir, fmt.Sprintf("frame-%d.png", frame.ID)), img)
	}}, nil
}

func writePNG(path string, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating frame file")
	}
	defer func() { err = multierr.Append(err, out.Close()) }()
	return errors.Wrapf(png.Encode(out, img), "encoding %s", path)
}
