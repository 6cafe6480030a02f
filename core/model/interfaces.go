// Package model は分類器・変換器の共通インターフェースと学習状態の管理を提供します。
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Classifier は二値分類器のインターフェースです。
// yの値は {0, 1} のみを想定します。
type Classifier interface {
	// Fit は訓練データでモデルを学習させる
	Fit(X mat.Matrix, y *mat.VecDense) error

	// Predict は {0, 1} のラベルを返す
	Predict(X mat.Matrix) (*mat.VecDense, error)

	// PredictProba は陽性クラス(y=1)の確率を返す
	PredictProba(X mat.Matrix) (*mat.VecDense, error)
}

// Transformer はデータ変換のインターフェースです。
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (*mat.Dense, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}

// Fittable は学習状態を公開するモデルのインターフェースです。
type Fittable interface {
	IsFitted() bool
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェースです。
// 返されるマップはログやレポート用で、キーはパラメータ名です。
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// WeightExporter は重みをエクスポート可能なモデルのインターフェースです。
type WeightExporter interface {
	// ExportWeights はモデルの重みをエクスポート
	ExportWeights() (*ModelWeights, error)

	// ImportWeights はモデルの重みをインポート
	ImportWeights(weights *ModelWeights) error

	// GetWeightHash は重みのハッシュ値を計算（再現性の検証用）
	GetWeightHash() string
}
