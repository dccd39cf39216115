package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// snapshot は決定木のgob表現
type snapshot struct {
	State           model.EstimatorState
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	MaxFeaturesN    int
	RandomState     int64

	Nodes       []Node
	Importances []float64
	Depth       int
	NLeaves     int
	NFeatures   int
	Classes     []float64
}

func newSnapshot(state model.EstimatorState, p params, t fittedTree, nFeatures int, classes []float64) snapshot {
	return snapshot{
		State:           state,
		Criterion:       p.criterion,
		MaxDepth:        p.maxDepth,
		MinSamplesSplit: p.minSamplesSplit,
		MinSamplesLeaf:  p.minSamplesLeaf,
		MaxFeatures:     p.maxFeatures,
		MaxFeaturesN:    p.maxFeaturesN,
		RandomState:     p.randomState,
		Nodes:           t.nodes,
		Importances:     t.importances,
		Depth:           t.depth,
		NLeaves:         t.nLeaves,
		NFeatures:       nFeatures,
		Classes:         classes,
	}
}

func (s *snapshot) restore() (params, fittedTree) {
	p := params{
		criterion:       s.Criterion,
		maxDepth:        s.MaxDepth,
		minSamplesSplit: s.MinSamplesSplit,
		minSamplesLeaf:  s.MinSamplesLeaf,
		maxFeatures:     s.MaxFeatures,
		maxFeaturesN:    s.MaxFeaturesN,
		randomState:     s.RandomState,
	}
	t := fittedTree{
		nodes:       s.Nodes,
		importances: s.Importances,
		depth:       s.Depth,
		nLeaves:     s.NLeaves,
	}
	return p, t
}

func encodeSnapshot(s snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, errors.Wrap(err, "encode tree")
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (snapshot, error) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return s, errors.Wrap(err, "decode tree")
	}
	return s, nil
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeRegressor) GobEncode() ([]byte, error) {
	return encodeSnapshot(newSnapshot(dt.State, dt.params, dt.tree, dt.nFeatures, nil))
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeRegressor) GobDecode(data []byte) error {
	s, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	dt.State = s.State
	dt.params, dt.tree = s.restore()
	dt.nFeatures = s.NFeatures
	return nil
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	return encodeSnapshot(newSnapshot(dt.State, dt.params, dt.tree, dt.nFeatures, dt.classes))
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	s, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	dt.State = s.State
	dt.params, dt.tree = s.restore()
	dt.nFeatures = s.NFeatures
	dt.classes = s.Classes
	dt.nClasses_ = len(s.Classes)
	return nil
}
