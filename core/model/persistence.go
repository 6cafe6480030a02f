package model

import (
	"io"
	"os"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// SaveWeights はWeightExporterの重みをJSONとしてwに書き出す
func SaveWeights(m WeightExporter, w io.Writer) error {
	weights, err := m.ExportWeights()
	if err != nil {
		return err
	}
	data, err := weights.ToJSON()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return lerrors.Wrap(err, "write model weights")
	}
	return nil
}

// LoadWeights はrからJSONを読み込み、mに重みを復元する
func LoadWeights(m WeightExporter, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return lerrors.Wrap(err, "read model weights")
	}
	var weights ModelWeights
	if err := weights.FromJSON(data); err != nil {
		return err
	}
	return m.ImportWeights(&weights)
}

// SaveWeightsFile はモデルの重みをファイルに保存する
//
// 使用例:
//
//	err := model.SaveWeightsFile(lr, "model.json")
func SaveWeightsFile(m WeightExporter, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return lerrors.Wrapf(err, "create %s", filename)
	}
	if err := SaveWeights(m, file); err != nil {
		_ = file.Close()
		return err
	}
	return lerrors.Wrapf(file.Close(), "close %s", filename)
}

// LoadWeightsFile はファイルからモデルの重みを読み込む
func LoadWeightsFile(m WeightExporter, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return lerrors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()
	return LoadWeights(m, file)
}
