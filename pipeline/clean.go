package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/popforest/frame"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

// CleanReport はデータクリーニングの結果
type CleanReport struct {
	Input  string
	Output string

	RowsIn, ColsIn   int
	Duplicates       int
	Nulls            int
	RowsOut, ColsOut int
}

// Removed は削除した行数の合計
func (c *CleanReport) Removed() int { return c.Duplicates + c.Nulls }

// Clean は重複行と欠損値を含む行を削除して out に書き出す。
// 重複の削除を先に行い、残った行から欠損行を除く。
func (r *Runner) Clean(ctx context.Context, in, out string) (*CleanReport, error) {
	started := time.Now()
	r.banner(50, "DATA CLEANING STAGE - Spotify Dataset")

	f, err := frame.ReadCSV(in)
	if err != nil {
		return nil, err
	}
	rep := &CleanReport{Input: in, Output: out}
	rep.RowsIn, rep.ColsIn = f.Shape()
	r.printf("Original dataset shape: %s\n", f.ShapeString())

	r.println("\nRemoving duplicates and missing values...")
	rep.Duplicates = f.DropDuplicates()
	rep.Nulls = f.DropNA()
	rep.RowsOut, rep.ColsOut = f.Shape()

	r.printf("✓ Removed %d rows (duplicates or nulls)\n", rep.Removed())
	r.printf("✓ Final shape: %s\n", f.ShapeString())

	if err := f.WriteCSV(out); err != nil {
		return nil, err
	}
	r.printf("\n✓ Cleaned dataset saved to: %s\n", out)
	r.rule(50)

	r.logger.Info("Cleaning completed",
		log.StageKey, "clean",
		log.PathKey, out,
		log.SamplesKey, rep.RowsOut,
		log.RemovedKey, rep.Removed(),
		"data.duplicates", rep.Duplicates,
		"data.nulls", rep.Nulls,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	if err := r.recordArtifacts(ctx, "clean", out); err != nil {
		return nil, err
	}
	return rep, nil
}
