package pipeline

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Payload is implemented by values that can be sent through the pipeline.
type Payload interface {
	// MarkAsProcessed is called by the pipeline when the payload reaches
	// the output sink or gets discarded by a stage. Implementations may
	// recycle the payload afterwards.
	MarkAsProcessed()
}

// Processor is implemented by types that can process a Payload as part of a
// pipeline stage.
type Processor interface {
	// Process takes the input Payload and returns the Payload to be sent
	// to the next stage or the output sink. Returning a nil Payload drops
	// it from the pipeline.
	Process(context.Context, Payload) (Payload, error)
}

// ProcessorFunc is an adapter for using plain functions as Processors.
type ProcessorFunc func(context.Context, Payload) (Payload, error)

func (f ProcessorFunc) Process(ctx context.Context, p Payload) (Payload, error) {
	return f(ctx, p)
}

// StageParams includes the information required for executing a pipeline
// stage. A StageParams instance is passed to the Run() method of each stage.
type StageParams interface {
	// StageIndex returns the position of a stage in the pipeline.
	StageIndex() int
	// Input returns a channel for reading the input Payloads of the stage.
	Input() <-chan Payload
	// Output returns a channel for writing the stage output.
	Output() chan<- Payload
	// Error returns a channel for writing the errors that were encountered
	// while executing the stage.
	Error() chan<- error
}

// StageRunner is implemented by types that can be chained together to form a
// multi-stage pipeline.
type StageRunner interface {
	// Run reads Payloads from the Input channel and writes its output to
	// the Output channel. Calls to Run block until the Input channel is
	// closed or the context is cancelled.
	Run(context.Context, StageParams)
}

// Source is implemented by types that generate Payloads for the pipeline.
type Source interface {
	// Next advances the source. It returns false when the source is
	// exhausted or an error occurred.
	Next(context.Context) bool

	// Payload returns the Payload the source is currently positioned at.
	Payload() Payload

	// Error returns the last error observed by the source.
	Error() error
}

// Sink is implemented by types that consume the Payloads emitted by the last
// pipeline stage. A pipeline invokes its sink from a single goroutine.
type Sink interface {
	Consume(context.Context, Payload) error
}

// Pipeline is a sequence of stages that Payloads traverse in order.
type Pipeline struct {
	stages []StageRunner
}

// New returns a new Pipeline instance where input payloads will traverse
// each one of the stages.
func New(stages ...StageRunner) *Pipeline {
	return &Pipeline{
		stages: stages,
	}
}

// Process reads the contents of the specified source, sends them through the
// stages of the pipeline and directs the results to the specified sink.
//
// Calls to Process block until:
//  - all data from the source has been processed OR
//  - an error occurs OR
//  - the supplied context expires/cancelled
//
// If the supplied context expires before the source is drained, its error is
// included in the returned error.
//
// It is safe to call Process concurrently with different sources and sinks.
func (p *Pipeline) Process(ctx context.Context, source Source, sink Sink) error {
	var wg sync.WaitGroup
	pCtx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()

	// The output of the ith stage is the input of the i+1 th stage; one
	// extra channel is needed for wiring the sink.
	stageCh := make([]chan Payload, len(p.stages)+1)
	errCh := make(chan error, len(p.stages)+2)
	for i := range stageCh {
		stageCh[i] = make(chan Payload)
	}

	wg.Add(len(p.stages))
	for i := range p.stages {
		go func(stageIdx int) {
			defer wg.Done()
			p.stages[stageIdx].Run(
				pCtx,
				&WorkerParams{
					Stage: stageIdx,
					InCh:  stageCh[stageIdx],
					OutCh: stageCh[stageIdx+1],
					ErrCh: errCh,
				},
			)
			close(stageCh[stageIdx+1])
		}(i)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceWorker(pCtx, source, stageCh[0], errCh)
		close(stageCh[0])
	}()

	go func() {
		defer wg.Done()
		sinkWorker(pCtx, sink, stageCh[len(stageCh)-1], errCh)
	}()

	// Close the error channel once all workers have exited.
	go func() {
		wg.Wait()
		close(errCh)
		ctxCancel()
	}()

	var err error
	for pErr := range errCh {
		err = multierror.Append(err, pErr)
		ctxCancel()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierror.Append(err, xerrors.Errorf("pipeline aborted: %w", ctxErr))
	}
	return err
}
