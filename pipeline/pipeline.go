// Package pipeline - Runs frames from a source through detection and rendering.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-overlay/capture"
	"github.com/nvr-ai/go-overlay/images"
	"github.com/nvr-ai/go-overlay/inference"
	"github.com/nvr-ai/go-overlay/models"
	"github.com/nvr-ai/go-overlay/models/postprocess"
	"github.com/nvr-ai/go-overlay/profiler"
	"github.com/nvr-ai/go-overlay/render"
)

// CounterFailed is the profiler counter of skipped frames.
const CounterFailed = "failed"

// Args wires a pipeline together.
type Args struct {
	Source capture.Source
	// Engine detects objects. Set either Engine or Classifier.
	Engine inference.Engine
	// Classifier labels the whole frame instead of detecting objects.
	Classifier inference.Classifier
	Labels     *models.LabelTable

	// Renderer draws each processed frame. Nil skips drawing.
	Renderer render.Renderer
	// OnDetections observes every processed frame. Nil skips it.
	OnDetections func(frame capture.Frame, dets []postprocess.Detection)
	// OnClassification observes every classified frame. Nil skips it.
	OnClassification func(frame capture.Frame, c postprocess.Classification, ok bool)
	// Filter runs after post-processing. Nil keeps every detection.
	Filter postprocess.Postprocessor

	Thresholds inference.Thresholds
	Origin     images.Origin

	Profiler *profiler.Profiler
	Logger   *zap.SugaredLogger
}

// Stats counts what happened to the frames the source produced.
type Stats struct {
	Processed uint64
	Dropped   uint64
	Failed    uint64
	// FPS is 1 / the latest inference time.
	FPS float64
	// AverageInference is the mean inference time, when the model reports it.
	AverageInference time.Duration
}

// Pipeline keeps at most one frame in flight. Frames that arrive while a
// frame is being inferred and drawn replace each other in a one-slot mailbox,
// so only the newest is processed next and the rest are counted as dropped.
type Pipeline struct {
	args    Args
	logger  *zap.SugaredLogger
	mailbox *capture.Latest

	processed atomic.Uint64
	failed    atomic.Uint64
	fps       atomic.Float64
}

// New validates args and returns a pipeline ready to Run.
func New(args Args) (*Pipeline, error) {
	if args.Source == nil {
		return nil, errors.New("pipeline needs a source")
	}
	if (args.Engine == nil) == (args.Classifier == nil) {
		return nil, errors.New("pipeline needs exactly one of an engine or a classifier")
	}
	if args.Labels == nil {
		return nil, errors.New("pipeline needs a label table")
	}
	if err := args.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if args.Origin == "" {
		args.Origin = images.OriginBottomLeft
	}
	if args.Filter == nil {
		args.Filter = postprocess.Chain()
	}
	if args.Logger == nil {
		args.Logger = zap.NewNop().Sugar()
	}
	if args.Profiler == nil {
		args.Profiler = profiler.New(profiler.Options{})
	}

	return &Pipeline{
		args:    args,
		logger:  args.Logger,
		mailbox: capture.NewLatest(),
	}, nil
}

// Run processes frames until ctx ends, the source is exhausted or the
// renderer stops. A Pipeline runs once.
//
// Returns:
//   - error: Nil on cancellation, end of input or a user stop; otherwise the
//     error that ended the source.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error {
		err := capture.Pump(ctx, p.args.Source, p.mailbox, p.logger)
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return p.consume(ctx, cancel)
	})

	err := g.Wait()
	s := p.Stats()
	p.logger.Infow("pipeline stopped",
		"processed", s.Processed,
		"dropped", s.Dropped,
		"failed", s.Failed,
		"avg_inference", s.AverageInference,
		"error", err,
	)
	return err
}

// consume takes frames until the mailbox closes. A stop requested while
// handling a frame cancels the pump through stopSource.
func (p *Pipeline) consume(ctx context.Context, stopSource context.CancelFunc) error {
	for {
		frame, err := p.mailbox.Take(ctx)
		if err != nil {
			// end of input, cancellation, or a source failure the pump reports
			return nil
		}

		if p.handle(ctx, frame) {
			stopSource()
			return nil
		}
	}
}

// handle runs one frame. Errors skip the frame; only a renderer stop or a
// cancelled context ends the loop.
func (p *Pipeline) handle(ctx context.Context, frame capture.Frame) bool {
	defer p.args.Profiler.StartOperation(profiler.StageFrame)()

	var (
		dets    []postprocess.Detection
		caption string
		err     error
	)
	if p.args.Classifier != nil {
		caption, err = p.classify(ctx, frame)
	} else {
		dets, err = p.detect(ctx, frame)
		caption = render.FPSCaption(p.fps.Load())
	}
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.fail(frame, err)
		return false
	}

	if p.args.Renderer != nil {
		done := p.args.Profiler.StartOperation(profiler.StageRender)
		err = p.args.Renderer.Render(frame, dets, caption)
		done()
		if errors.Is(err, render.ErrStopped) {
			p.logger.Infow("renderer requested stop", "frame", frame.ID)
			return true
		}
		if err != nil {
			p.fail(frame, errors.Wrap(err, "rendering"))
			return false
		}
	}

	p.processed.Inc()
	return false
}

func (p *Pipeline) detect(ctx context.Context, frame capture.Frame) ([]postprocess.Detection, error) {
	start := time.Now()
	raw, err := p.args.Engine.Predict(ctx, frame.Image, p.args.Thresholds)
	if err != nil {
		return nil, errors.Wrap(err, "predicting")
	}
	p.observeInference(p.args.Engine, time.Since(start))

	done := p.args.Profiler.StartOperation(profiler.StageProcess)
	dets, err := postprocess.Process(
		raw,
		p.args.Labels,
		images.ViewSizeOf(frame.Image.Bounds()),
		postprocess.WithOrigin(p.args.Origin),
	)
	done()
	if err != nil {
		return nil, err
	}
	dets = p.args.Filter(dets)

	if p.args.OnDetections != nil {
		p.args.OnDetections(frame, dets)
	}
	return dets, nil
}

// classify runs the classifier and returns the caption for its top class.
func (p *Pipeline) classify(ctx context.Context, frame capture.Frame) (string, error) {
	start := time.Now()
	scores, err := p.args.Classifier.Classify(ctx, frame.Image)
	if err != nil {
		return "", errors.Wrap(err, "classifying")
	}
	p.observeInference(p.args.Classifier, time.Since(start))

	done := p.args.Profiler.StartOperation(profiler.StageProcess)
	top, ok, err := postprocess.TopClass(scores, p.args.Labels)
	done()
	if err != nil {
		return "", err
	}

	if p.args.OnClassification != nil {
		p.args.OnClassification(frame, top, ok)
	}
	return render.ClassificationCaption(top, ok), nil
}

// observeInference records the inference time. Models that time themselves
// supply the fps; otherwise the wall time of the call is used.
func (p *Pipeline) observeInference(model any, elapsed time.Duration) {
	p.args.Profiler.Record(profiler.StagePredict, elapsed)
	if sp, ok := model.(inference.StatsProvider); ok {
		p.fps.Store(sp.Stats().FPS())
		return
	}
	if elapsed > 0 {
		p.fps.Store(1 / elapsed.Seconds())
	}
}

func (p *Pipeline) model() any {
	if p.args.Classifier != nil {
		return p.args.Classifier
	}
	return p.args.Engine
}

func (p *Pipeline) fail(frame capture.Frame, err error) {
	p.failed.Inc()
	p.args.Profiler.Increment(CounterFailed)
	if postprocess.IsPermanent(err) {
		// the model and label table disagree; retrying the frame cannot help
		p.logger.Errorw("frame rejected", "frame", frame.ID, "error", err)
		return
	}
	p.logger.Warnw("frame skipped", "frame", frame.ID, "error", err)
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Processed: p.processed.Load(),
		Dropped:   p.mailbox.Dropped(),
		Failed:    p.failed.Load(),
		FPS:       p.fps.Load(),
	}
	if sp, ok := p.model().(inference.StatsProvider); ok {
		s.AverageInference = sp.Stats().AverageDuration()
	}
	return s
}
