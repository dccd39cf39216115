// Package popforest provides random-forest training pipelines and a small
// inference service built on gonum matrices.
//
// The module ships two command-line tools:
//
//   - popline: a staged Spotify popularity pipeline (clean, features,
//     train v1/v2, compare, view) driven by a YAML config
//   - cancerapi: trains a breast-cancer classifier and serves it over HTTP
//     (GET / and POST /predict)
//
// # Quick Start
//
//	popline init-config configs/popline.yaml
//	popline clean && popline features
//	popline train v1 && popline train v2
//	popline compare && popline view --chart models/comparison.png
//
//	cancerapi train --data data/breast_cancer.csv
//	cancerapi serve --addr :8000
//
// # Packages
//
//   - sklearn/tree: CART regressor and classifier
//   - sklearn/ensemble: RandomForestRegressor and RandomForestClassifier
//   - sklearn/model_selection: TrainTestSplit
//   - preprocessing: StandardScaler and MinMaxScaler
//   - metrics: MSE, RMSE, MAE, R² and accuracy
//   - frame: CSV-backed string table with pandas-like cleaning helpers
//   - pipeline: the popline stages and the results dashboard
//   - tracking: SQLite ledger of produced artifacts and training runs
//   - cancer: dataset loading and model persistence for the classifier
//   - serving: HTTP handlers for the prediction API
//   - config: YAML configuration with environment overrides
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// Estimators follow the scikit-learn Fit/Predict convention:
//
//	rf := ensemble.NewRandomForestRegressor(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithRandomState(42),
//	)
//	if err := rf.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := rf.Predict(XTest)
package popforest
