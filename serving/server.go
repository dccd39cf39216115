// Package serving は乳がん分類モデルをHTTP/JSONで提供します。
//
//	GET  /         → 200 {"status": "healthy"}
//	POST /predict  → 200 {"prediction": "Malignant" | "Benign"}
//
// モデルは起動時に一度だけ読み込み、リクエスト間で共有します。
// 入力の検証エラーは422、推論中の失敗（panicを含む）は500になります。
package serving

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

// Predictor は学習済みの分類器。*ensemble.RandomForestClassifier が満たす。
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Labeler はモデル出力をラベル文字列に変換する
type Labeler func(class float64) string

// shutdownTimeout は ctx キャンセル後に処理中のリクエストを待つ時間
const shutdownTimeout = 5 * time.Second

// Server は予測APIのHTTPサーバー
type Server struct {
	model  Predictor
	label  Labeler
	logger log.Logger
}

// NewServer は model と label でサーバーを作成する
func NewServer(model Predictor, label Labeler) *Server {
	return &Server{
		model:  model,
		label:  label,
		logger: log.GetLoggerWithName("serving"),
	}
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /predict", s.handlePredict)
	return mux
}

// ListenAndServe は addr で待ち受け、ctx がキャンセルされると
// 処理中のリクエストを待ってから終了する
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で待ち受ける。ln は Serve が閉じる。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Prediction service listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	s.logger.Info("Prediction service stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.logger.Debug("Rejected request", log.RouteKey, "/predict", log.StatusKey, http.StatusUnprocessableEntity, err)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	label, err := s.predict(req.Features())
	if err != nil {
		s.logger.Error("Prediction failed",
			err,
			log.MethodKey, r.Method,
			log.RouteKey, "/predict",
			log.StatusKey, http.StatusInternalServerError,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{Prediction: label})
}

func (s *Server) predict(features []float64) (_ string, err error) {
	defer errors.Recover(&err, "predict")

	pred, err := s.model.Predict(mat.NewDense(1, len(features), features))
	if err != nil {
		return "", err
	}
	return s.label(pred.At(0, 0)), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
