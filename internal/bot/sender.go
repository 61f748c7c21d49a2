package bot

import (
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vrecdsxcdv/printbot/internal/logger"
)

var (
	// errQueueClosed is returned when enqueue is attempted after sender stop.
	errQueueClosed = errors.New("sender: queue closed")
	// errQueueFull indicates the queue is saturated and the job was dropped.
	errQueueFull = errors.New("sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// senderOptions controls the outbound dispatcher. Zero values fall back to
// sane defaults.
type senderOptions struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

type sendJob struct {
	action string
	run    func() error
}

// sender executes outbound Telegram calls asynchronously with retries, so
// slow deliveries never block update handling.
type sender struct {
	opts senderOptions
	jobs chan sendJob
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	errs atomic.Uint64
}

func newSender(opts senderOptions) *sender {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	s := &sender{
		opts: opts,
		jobs: make(chan sendJob, opts.QueueSize),
		stop: make(chan struct{}),
	}
	s.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go s.worker()
	}
	return s
}

// Enqueue schedules the provided call for asynchronous execution. The run
// closure must be idempotent if retries are desired.
func (s *sender) Enqueue(action string, run func() error) error {
	if run == nil {
		return errors.New("sender: nil run function")
	}
	select {
	case <-s.stop:
		return errQueueClosed
	default:
	}

	select {
	case s.jobs <- sendJob{action: action, run: run}:
		return nil
	default:
		return errQueueFull
	}
}

// ErrorCount returns the number of jobs that exhausted their retries.
func (s *sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to drain.
func (s *sender) Close() {
	s.once.Do(func() {
		close(s.stop)
		close(s.jobs)
		s.wg.Wait()
	})
}

func (s *sender) worker() {
	defer s.wg.Done()
	for j := range s.jobs {
		s.handle(j)
	}
}

func (s *sender) handle(j sendJob) {
	start := time.Now()
	attempts := s.opts.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := j.run()
		if err == nil {
			if attempt > 1 {
				logger.TG.Info("send recovered after retry",
					slog.String("event", "send.retry"),
					slog.String("action", j.action),
					slog.Int("attempt", attempt),
					slog.Duration("duration", logger.RoundMS(time.Since(start))),
				)
			}
			return
		}
		lastErr = err
		if !shouldRetry(err) || attempt == attempts {
			break
		}
		time.Sleep(s.opts.RetryBackoff * time.Duration(attempt))
	}

	s.errs.Add(1)
	logger.TG.Error("send failed",
		slog.String("event", "send.fail"),
		slog.String("action", j.action),
		slog.Int("attempts", attempts),
		slog.String("err", sanitizeError(lastErr)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}

// sanitizeError keeps bot tokens out of the logs.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
