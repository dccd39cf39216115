// Package tracking はステージ出力と学習ランをSQLiteに記録するランレジャーです。
//
// ファイルのsha256とサイズを残すことで、どのデータからどのモデルが
// 作られたかを後から辿れるようにします。
package tracking

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion は PRAGMA user_version に書き込むスキーマ番号
const schemaVersion = 1

const timeLayout = time.RFC3339Nano

// Artifact はステージが書き出したファイルの記録
type Artifact struct {
	ID        string
	Stage     string
	Path      string
	SHA256    string
	Size      int64
	CreatedAt time.Time
}

// Run は1回の学習ランの記録
type Run struct {
	ID          string
	Version     string
	RMSE        float64
	MAE         float64
	R2          float64
	NTrain      int
	NTest       int
	ModelPath   string
	MetricsPath string
	CreatedAt   time.Time
}

// Ledger はSQLiteに保存されるランレジャー
type Ledger struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

// Open はpathのデータベースを開く（無ければ作成する）。
// ":memory:" を渡すとメモリ上のデータベースになる。
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create ledger directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger")
	}
	// SQLiteの書き込みは1本に絞る
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect ledger")
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	l := &Ledger{
		db:     db,
		logger: log.GetLoggerWithName("tracking"),
		now:    time.Now,
	}
	l.logger.Debug("Ledger opened", log.PathKey, path)
	return l, nil
}

func applySchema(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "apply ledger schema")
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

// Close はデータベースを閉じる
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// RecordArtifact はpathのsha256とサイズを計算して記録する
func (l *Ledger) RecordArtifact(ctx context.Context, stage, path string) (*Artifact, error) {
	sum, size, err := fileDigest(path)
	if err != nil {
		return nil, err
	}

	a := &Artifact{
		ID:        uuid.NewString(),
		Stage:     stage,
		Path:      path,
		SHA256:    sum,
		Size:      size,
		CreatedAt: l.now().UTC(),
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, stage, path, sha256, size_bytes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Stage, a.Path, a.SHA256, a.Size, a.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, errors.Wrapf(err, "record artifact %s", path)
	}

	l.logger.Debug("Artifact recorded",
		log.StageKey, stage,
		log.PathKey, path,
		"sha256", sum,
	)
	return a, nil
}

func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, errors.NewFileNotFoundError("RecordArtifact", path)
		}
		return "", 0, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, errors.Wrapf(err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// LatestArtifact はpathについて最後に記録されたArtifactを返す。記録が無ければ nil。
func (l *Ledger) LatestArtifact(ctx context.Context, path string) (*Artifact, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, stage, path, sha256, size_bytes, created_at FROM artifacts
		 WHERE path = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, path)

	var (
		a       Artifact
		created string
	)
	err := row.Scan(&a.ID, &a.Stage, &a.Path, &a.SHA256, &a.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query artifact %s", path)
	}
	if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, errors.Wrapf(err, "parse created_at %q", created)
	}
	return &a, nil
}

// RecordRun は学習ランを記録する。ID と CreatedAt が空なら埋める。
func (l *Ledger) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = l.now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, version, rmse, mae, r2, n_train, n_test, model_path, metrics_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.RMSE, run.MAE, run.R2, run.NTrain, run.NTest,
		run.ModelPath, run.MetricsPath, run.CreatedAt.Format(timeLayout))
	if err != nil {
		return errors.Wrapf(err, "record run %s", run.Version)
	}

	l.logger.Info("Run recorded",
		log.ModelVersionKey, run.Version,
		log.RMSEKey, run.RMSE,
		log.R2ScoreKey, run.R2,
	)
	return nil
}

// ListRuns は記録された学習ランを古い順に返す
func (l *Ledger) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, version, rmse, mae, r2, n_train, n_test, model_path, metrics_path, created_at
		 FROM runs ORDER BY created_at, rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &r.Version, &r.RMSE, &r.MAE, &r.R2, &r.NTrain, &r.NTest,
			&r.ModelPath, &r.MetricsPath, &created); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, errors.Wrapf(err, "parse created_at %q", created)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return runs, nil
}

// CountRuns は記録された学習ランの数を返す
func (l *Ledger) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count runs")
	}
	return n, nil
}
