// Package metrics は二値分類器の評価指標を提供します。
//
// すべての関数は正解ラベル yTrue と予測 yPred を *mat.VecDense で受け取り、
// 長さが異なる場合は LengthMismatchError、空の場合は ValueError を返します。
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/pkg/errors"
)

// logLossEps は LogLoss で確率をクリップする幅
const logLossEps = 1e-15

// ScoreFunc はラベル予測を評価するスコア関数。値が大きいほど良い。
type ScoreFunc func(yTrue, yPred *mat.VecDense) (float64, error)

// checkPair は長さの一致と非空を検証し、要素数を返す
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewLengthMismatchError(op, n, yPred.Len())
	}
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	return n, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, fmt.Sprintf("label at index %d is %v, must be 0 or 1", i, v))
		}
	}
	return nil
}

// Accuracy は予測が正解と一致した割合を返す
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 1 - Accuracy を返す
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は陽性クラスを 1 とした二値混同行列
type ConfusionMatrix struct {
	TN int
	FP int
	FN int
	TP int
}

// Total は集計したサンプル数を返す
func (c ConfusionMatrix) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

func (c ConfusionMatrix) String() string {
	return fmt.Sprintf("ConfusionMatrix(TN=%d, FP=%d, FN=%d, TP=%d)", c.TN, c.FP, c.FN, c.TP)
}

// NewConfusionMatrix は二値ラベルから混同行列を計算する
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	if err := checkBinary("ConfusionMatrix", yTrue); err != nil {
		return cm, err
	}
	if err := checkBinary("ConfusionMatrix", yPred); err != nil {
		return cm, err
	}

	for i := 0; i < n; i++ {
		switch t, p := yTrue.AtVec(i), yPred.AtVec(i); {
		case t == 1 && p == 1:
			cm.TP++
		case t == 1:
			cm.FN++
		case p == 1:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Precision は TP / (TP + FP) を返す。
// 陽性予測が一つもない場合は UndefinedMetricWarning を出して 0 を返す。
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "Precision")
	}
	if cm.TP+cm.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0, nil
	}
	return float64(cm.TP) / float64(cm.TP+cm.FP), nil
}

// Recall は TP / (TP + FN) を返す。
// 陽性の正解が一つもない場合は UndefinedMetricWarning を出して 0 を返す。
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "Recall")
	}
	if cm.TP+cm.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0, nil
	}
	return float64(cm.TP) / float64(cm.TP+cm.FN), nil
}

// F1 は適合率と再現率の調和平均 2TP / (2TP + FP + FN) を返す
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "F1")
	}
	denom := 2*cm.TP + cm.FP + cm.FN
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true nor predicted samples", 0))
		return 0, nil
	}
	return float64(2*cm.TP) / float64(denom), nil
}

// BinaryLogLoss は予測確率に対する平均交差エントロピーを計算する。
// 確率は [eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yProba *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProba)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipProbability(yProba.AtVec(i), logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// LogLoss は BinaryLogLoss の別名
func LogLoss(yTrue, yProba *mat.VecDense) (float64, error) {
	return BinaryLogLoss(yTrue, yProba)
}

// BrierScore は予測確率と正解ラベルの平均二乗誤差を計算する
func BrierScore(yTrue, yProba *mat.VecDense) (float64, error) {
	n, err := checkPair("BrierScore", yTrue, yProba)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BrierScore", yTrue); err != nil {
		return 0, err
	}

	// (1/n) * Σ(yTrue - p)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yProba.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// AUC は ROC 曲線下面積を順位統計量 (Mann-Whitney U) から計算する。
// 同順位のスコアには平均順位を割り当てる。
// 片方のクラスしか存在しない場合は定義できないため 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	scores := make([]float64, n)
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		scores[i] = yScore.AtVec(i)
	}
	floats.Argsort(scores, idx)

	var nPos, nNeg int
	var rankSumPos float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && scores[end] == scores[start] {
			end++
		}
		// 1始まりの順位 start+1..end の平均
		avgRank := float64(start+1+end) / 2
		for _, j := range idx[start:end] {
			if yTrue.AtVec(j) == 1 {
				nPos++
				rankSumPos += avgRank
			} else {
				nNeg++
			}
		}
		start = end
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列形式の入力に対して AUC を計算する。最初の列を使用する。
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	if d, ok := yTrue.(*mat.Dense); ok && d.IsEmpty() {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if d, ok := yScore.(*mat.Dense); ok && d.IsEmpty() {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}

	rTrue, _ := yTrue.Dims()
	rScore, _ := yScore.Dims()
	if rTrue != rScore {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rScore, 0)
	}

	return AUC(
		mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue)),
		mat.NewVecDense(rScore, mat.Col(nil, 0, yScore)),
	)
}

var scorers = map[string]ScoreFunc{
	"accuracy":  Accuracy,
	"precision": Precision,
	"recall":    Recall,
	"f1":        F1,
}

// GetScorer は名前からスコア関数を取得する
func GetScorer(name string) (ScoreFunc, error) {
	if name == "" {
		return Accuracy, nil
	}
	fn, ok := scorers[name]
	if !ok {
		return nil, errors.NewConfigurationError("scoring", "must be one of accuracy, precision, recall, f1", name)
	}
	return fn, nil
}

// ScorerNames は GetScorer が受け付ける名前を返す
func ScorerNames() []string {
	return []string{"accuracy", "f1", "precision", "recall"}
}
