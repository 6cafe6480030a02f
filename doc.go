// Package logitcv trains binary logistic regression classifiers by batch
// gradient descent and tunes them with k-fold cross-validated grid search.
//
// The reference workload is the South African heart disease data: a CSV of
// clinical risk factors, one categorical column (famhist) and a 0/1 label
// (chd). Everything that involves randomness takes an explicit seed, so a run
// can be reproduced exactly.
//
// # Features
//
//   - Gradient descent logistic regression with optional L2 penalty, early
//     stopping on the gradient norm and a per-iteration loss history
//   - One-hot encoding, standard and min-max scaling fitted on training rows only
//   - Seeded train/test split, KFold and StratifiedKFold
//   - Grid search over a bounded worker pool with per-candidate failure isolation
//   - Accuracy, precision, recall, F1, log loss, Brier score and ROC AUC
//   - JSON weight files carrying feature names, hyperparameters and scaler state
//
// # Quick Start
//
//	ds, err := dataset.LoadCSV("saheart.csv", dataset.DefaultCSVOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	encoded, _ := preprocessing.NewOneHotEncoder(preprocessing.WithDropFirst()).FitTransform(ds)
//	fm, _ := encoded.FeatureMatrix()
//	split, _ := model_selection.TrainTestSplit(fm.X, fm.Y, 0.25, 42, model_selection.WithStratify())
//
//	grid, _ := model_selection.NewParamGrid(map[string][]interface{}{
//	    "regularization_strength": {0.0, 0.01, 0.1},
//	    "max_iterations":          {100, 1000},
//	})
//	gs := model_selection.NewGridSearchCV(grid, model_selection.NewStratifiedKFold(5, true, 42))
//	gs.Factory = pipeline.Factory(pipeline.ScalingStandard)
//	result, err := gs.Fit(context.Background(), split.XTrain, split.YTrain)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pred, _ := result.BestEstimator.Predict(split.XTest)
//	acc, _ := metrics.Accuracy(split.YTest, pred)
//
// # Packages
//
//   - dataset: CSV loading, typed columns and the dense feature matrix
//   - preprocessing: OneHotEncoder, StandardScaler, MinMaxScaler
//   - linear_model: LogisticRegression and its validated Params
//   - model_selection: splitting, cross-validation and GridSearchCV
//   - metrics: classification metrics and named scorers
//   - pipeline: scaler plus classifier as one estimator
//   - plotting: gonum/plot sinks for feature scatters and loss curves
//   - config: viper-backed experiment configuration
//   - experiment: end-to-end runs used by cmd/logitcv
//   - core/model, core/parallel: shared interfaces, weight files, worker pool
//   - pkg/errors, pkg/log: error taxonomy and zerolog-backed logging
package logitcv
