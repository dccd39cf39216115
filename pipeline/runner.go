package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/tracking"
)

// Ledger はステージ出力と学習ランの記録先。*tracking.Ledger が満たす。
type Ledger interface {
	RecordArtifact(ctx context.Context, stage, path string) (*tracking.Artifact, error)
	RecordRun(ctx context.Context, run *tracking.Run) error
	CountRuns(ctx context.Context) (int, error)
}

// Runner はステージを実行し、サマリーを out に書き出す
type Runner struct {
	out    io.Writer
	ledger Ledger
	logger log.Logger
	now    func() time.Time
}

// Option は Runner の設定を変更する
type Option func(*Runner)

// WithLedger はランレジャーを設定する。未設定なら記録しない。
func WithLedger(l Ledger) Option { return func(r *Runner) { r.ledger = l } }

// WithLogger は構造化ログの出力先を差し替える
func WithLogger(l log.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithClock はメトリクスのタイムスタンプに使う時計を差し替える
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner は新しい Runner を作成する
func NewRunner(out io.Writer, opts ...Option) *Runner {
	r := &Runner{
		out:    out,
		logger: log.GetLoggerWithName("pipeline"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

func (r *Runner) rule(width int) {
	r.println(strings.Repeat("=", width))
}

func (r *Runner) banner(width int, title string) {
	r.rule(width)
	r.println(title)
	r.rule(width)
}

func (r *Runner) recordArtifacts(ctx context.Context, stage string, paths ...string) error {
	if r.ledger == nil {
		return nil
	}
	for _, p := range paths {
		if _, err := r.ledger.RecordArtifact(ctx, stage, p); err != nil {
			return errors.Wrapf(err, "%s: record artifact", stage)
		}
	}
	return nil
}
