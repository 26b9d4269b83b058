package hmm

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

type modelJSON struct {
	States           int           `json:"states"`
	Symbols          int           `json:"symbols"`
	Transition       [][]float64   `json:"transition"`
	Emission         [][]float64   `json:"emission"`
	Initial          []float64     `json:"initial"`
	FixedTransitions bool          `json:"fixed_transitions,omitempty"`
	LogProb          *float64      `json:"logprob,omitempty"`
	Iterations       int           `json:"iterations"`
	State            TrainingState `json:"state"`
}

func rows(flat []float64, n, width int) [][]float64 {
	out := make([][]float64, n)
	for i := range n {
		out[i] = append([]float64(nil), flat[i*width:(i+1)*width]...)
	}
	return out
}

// MarshalJSON implements json.Marshaler. Scratch tensors are not serialized.
func (m *Model) MarshalJSON() ([]byte, error) {
	v := modelJSON{
		States:           m.n,
		Symbols:          m.m,
		Transition:       rows(m.a, m.n, m.n),
		Emission:         rows(m.b, m.n, m.m),
		Initial:          m.pi,
		FixedTransitions: m.fixedA,
		Iterations:       m.iterations,
		State:            m.state,
	}
	if !math.IsInf(m.logProb, -1) {
		v.LogProb = &m.logProb
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler and re-validates every probability row.
func (m *Model) UnmarshalJSON(data []byte) error {
	var v modelJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	model, err := FromParams(v.Transition, v.Emission, v.Initial)
	if err != nil {
		return err
	}
	if model.n != v.States || model.m != v.Symbols {
		return fmt.Errorf("hmm: tables are %d×%d, header says %d×%d: %w", model.n, model.m, v.States, v.Symbols, ErrInvalidConfiguration)
	}
	model.fixedA = v.FixedTransitions
	model.iterations = v.Iterations
	model.state = v.State
	if v.LogProb != nil {
		model.logProb = *v.LogProb
	}
	*m = *model
	return nil
}

// SaveModel serializes the model to JSON.
func SaveModel(model *Model, path string) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes a model from JSON.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(model *Model) ([]byte, error) {
	return json.Marshal(model)
}

// UnmarshalModel deserializes a model from JSON bytes.
func UnmarshalModel(data []byte) (*Model, error) {
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}
	return &model, nil
}
