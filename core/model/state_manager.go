package model

import (
	"sync"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// StateManager はモデルの学習状態をスレッドセーフに管理します。
// 埋め込みではなくフィールドとして保持して使います。
type StateManager struct {
	mu sync.RWMutex

	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager は未学習状態のStateManagerを作成します。
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted はモデルが学習済みかどうかを返します。
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted はモデルを学習済み状態に設定します。
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset は学習状態と次元情報をクリアします。
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// SetDimensions は学習時の特徴量数とサンプル数を記録します。
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// GetDimensions は学習時の特徴量数とサンプル数を返します。
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted は未学習の場合にNotFittedErrorを返します。
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return lerrors.NewNotFittedError(modelName, method)
	}
	return nil
}

// RequireFeatures は未学習の場合、または列数が学習時と異なる場合にエラーを返します。
func (s *StateManager) RequireFeatures(modelName, method string, nFeatures int) error {
	s.mu.RLock()
	fitted, want := s.fitted, s.nFeatures
	s.mu.RUnlock()
	if !fitted {
		return lerrors.NewNotFittedError(modelName, method)
	}
	if nFeatures != want {
		return lerrors.NewDimensionError(modelName+"."+method, want, nFeatures, 1)
	}
	return nil
}

// ModelState はモデルの状態のスナップショットです（レポート・デバッグ用）。
type ModelState struct {
	Fitted    bool                   `json:"fitted"`
	NFeatures int                    `json:"n_features,omitempty"`
	NSamples  int                    `json:"n_samples,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// GetState は現在の状態をModelStateとして返します。
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Fitted:    s.fitted,
		NFeatures: s.nFeatures,
		NSamples:  s.nSamples,
	}
}

// SetState はModelStateから状態を復元します。
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fitted = state.Fitted
	s.nFeatures = state.NFeatures
	s.nSamples = state.NSamples
}
