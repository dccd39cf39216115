// Package config は popline の設定（パス、ハイパーパラメータ、ログ、ランレジャー）を扱います。
//
// 設定ファイルが無い場合はデフォルト値で動作します。デフォルト値は元の
// パイプラインのパスとハイパーパラメータをそのまま再現します。
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/popforest/pipeline"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

// 環境変数による上書き
const (
	EnvLogLevel   = "POPLINE_LOG_LEVEL"
	EnvTrackingDB = "POPLINE_TRACKING_DB"
	EnvDataDir    = "POPLINE_DATA_DIR"
)

// Config は popline 全体の設定
type Config struct {
	DataDir   string `yaml:"data_dir"`
	ModelsDir string `yaml:"models_dir"`

	Files    FilesConfig    `yaml:"files"`
	Train    TrainConfig    `yaml:"train"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracking TrackingConfig `yaml:"tracking"`
	View     ViewConfig     `yaml:"view"`
}

// FilesConfig はデータディレクトリ・モデルディレクトリ内のファイル名
type FilesConfig struct {
	Raw        string `yaml:"raw"`
	Cleaned    string `yaml:"cleaned"`
	Featured   string `yaml:"featured"`
	Comparison string `yaml:"comparison"`
}

// TrainConfig は2つのモデルバージョンの学習設定
type TrainConfig struct {
	V1 ModelConfig `yaml:"v1"`
	V2 ModelConfig `yaml:"v2"`
}

// ModelConfig は1つのモデルバージョンのハイパーパラメータと出力ファイル名
type ModelConfig struct {
	Features        []string `yaml:"features"`
	Target          string   `yaml:"target"`
	TestSize        float64  `yaml:"test_size"`
	RandomState     int64    `yaml:"random_state"`
	NEstimators     int      `yaml:"n_estimators"`
	MaxDepth        int      `yaml:"max_depth"`
	MinSamplesSplit int      `yaml:"min_samples_split"`
	NJobs           int      `yaml:"n_jobs"`
	Scale           bool     `yaml:"scale"`

	ModelFile   string `yaml:"model_file"`
	ScalerFile  string `yaml:"scaler_file,omitempty"`
	MetricsFile string `yaml:"metrics_file"`
}

// LoggingConfig は構造化ログの設定
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TrackingConfig はランレジャーの設定
type TrackingConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// ViewConfig は結果ダッシュボードの設定
type ViewConfig struct {
	// ChartPath が空でなければ view がグラフを保存する
	ChartPath string `yaml:"chart_path"`
}

func modelConfig(spec pipeline.TrainSpec) ModelConfig {
	mc := ModelConfig{
		Features:        spec.Features,
		Target:          spec.Target,
		TestSize:        spec.TestSize,
		RandomState:     spec.RandomState,
		NEstimators:     spec.NEstimators,
		MaxDepth:        spec.MaxDepth,
		MinSamplesSplit: spec.MinSamplesSplit,
		NJobs:           spec.NJobs,
		Scale:           spec.Scale,
		ModelFile:       filepath.Base(spec.ModelPath),
		MetricsFile:     filepath.Base(spec.MetricsPath),
	}
	if spec.ScalerPath != "" {
		mc.ScalerFile = filepath.Base(spec.ScalerPath)
	}
	return mc
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		DataDir:   "data",
		ModelsDir: "models",
		Files: FilesConfig{
			Raw:        "spotify_songs.csv",
			Cleaned:    "spotify_cleaned.csv",
			Featured:   "spotify_featured.csv",
			Comparison: "comparison.txt",
		},
		Train: TrainConfig{
			V1: modelConfig(pipeline.V1Spec()),
			V2: modelConfig(pipeline.V2Spec()),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracking: TrackingConfig{
			Enabled: false,
			DBPath:  ".popline/runs.db",
		},
	}
}

// Load は path のYAMLをデフォルト値の上に読み込み、環境変数で上書きする。
// ファイルが無ければデフォルト値を使う。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "read config %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save は設定をYAMLとして path に書き出す
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if db := os.Getenv(EnvTrackingDB); db != "" {
		c.Tracking.DBPath = db
		c.Tracking.Enabled = true
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
}

// Validate は設定値を検証する
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return errors.NewValidationError("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return errors.NewValidationError("logging.format", "must be json or console", c.Logging.Format)
	}
	if c.Tracking.Enabled && c.Tracking.DBPath == "" {
		return errors.NewValidationError("tracking.db_path", "required when tracking is enabled", c.Tracking.DBPath)
	}
	for name, mc := range map[string]ModelConfig{"v1": c.Train.V1, "v2": c.Train.V2} {
		if err := mc.validate("train." + name); err != nil {
			return err
		}
	}
	return nil
}

func (m ModelConfig) validate(prefix string) error {
	switch {
	case len(m.Features) == 0:
		return errors.NewValidationError(prefix+".features", "must not be empty", m.Features)
	case m.Target == "":
		return errors.NewValidationError(prefix+".target", "must not be empty", m.Target)
	case m.TestSize <= 0 || m.TestSize >= 1:
		return errors.NewValidationError(prefix+".test_size", "must be in (0, 1)", m.TestSize)
	case m.NEstimators <= 0:
		return errors.NewValidationError(prefix+".n_estimators", "must be positive", m.NEstimators)
	case m.MaxDepth < 0:
		return errors.NewValidationError(prefix+".max_depth", "must be >= 0 (0 means unlimited)", m.MaxDepth)
	case m.MinSamplesSplit < 2:
		return errors.NewValidationError(prefix+".min_samples_split", "must be >= 2", m.MinSamplesSplit)
	case m.ModelFile == "" || m.MetricsFile == "":
		return errors.NewValidationError(prefix+".model_file", "model and metrics file names are required", m.ModelFile)
	case m.Scale && m.ScalerFile == "":
		return errors.NewValidationError(prefix+".scaler_file", "required when scale is true", m.ScalerFile)
	}
	return nil
}

// RawPath は生データのパス
func (c *Config) RawPath() string { return filepath.Join(c.DataDir, c.Files.Raw) }

// CleanedPath はクリーニング済みデータのパス
func (c *Config) CleanedPath() string { return filepath.Join(c.DataDir, c.Files.Cleaned) }

// FeaturedPath は特徴量データのパス
func (c *Config) FeaturedPath() string { return filepath.Join(c.DataDir, c.Files.Featured) }

// ComparisonPath は比較サマリーのパス
func (c *Config) ComparisonPath() string { return filepath.Join(c.ModelsDir, c.Files.Comparison) }

// MetricsPath はバージョンのメトリクスファイルのパス
func (c *Config) MetricsPath(version string) (string, error) {
	mc, err := c.model(version)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.ModelsDir, mc.MetricsFile), nil
}

func (c *Config) model(version string) (ModelConfig, error) {
	switch version {
	case "v1":
		return c.Train.V1, nil
	case "v2":
		return c.Train.V2, nil
	}
	return ModelConfig{}, errors.NewValidationError("version", "must be v1 or v2", version)
}

// TrainSpec はバージョンの学習設定を組み立てる
func (c *Config) TrainSpec(version string) (pipeline.TrainSpec, error) {
	mc, err := c.model(version)
	if err != nil {
		return pipeline.TrainSpec{}, err
	}

	spec := pipeline.V1Spec()
	if version == "v2" {
		spec = pipeline.V2Spec()
	}
	spec.Features = append([]string(nil), mc.Features...)
	spec.Target = mc.Target
	spec.TestSize = mc.TestSize
	spec.RandomState = mc.RandomState
	spec.NEstimators = mc.NEstimators
	spec.MaxDepth = mc.MaxDepth
	spec.MinSamplesSplit = mc.MinSamplesSplit
	spec.NJobs = mc.NJobs
	spec.Scale = mc.Scale
	spec.ModelPath = filepath.Join(c.ModelsDir, mc.ModelFile)
	spec.MetricsPath = filepath.Join(c.ModelsDir, mc.MetricsFile)
	spec.ScalerPath = ""
	if mc.ScalerFile != "" {
		spec.ScalerPath = filepath.Join(c.ModelsDir, mc.ScalerFile)
	}
	return spec, nil
}

// String は設定の要約
func (c *Config) String() string {
	return fmt.Sprintf("Config{data=%s models=%s log=%s/%s tracking=%t}",
		c.DataDir, c.ModelsDir, c.Logging.Level, c.Logging.Format, c.Tracking.Enabled)
}
