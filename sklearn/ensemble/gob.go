package ensemble

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/tree"
)

type regressorSnapshot struct {
	State       model.EstimatorState
	Params      forestParams
	Trees       []*tree.DecisionTreeRegressor
	Importances []float64
	NFeatures   int
}

type classifierSnapshot struct {
	State       model.EstimatorState
	Params      forestParams
	Trees       []*tree.DecisionTreeClassifier
	Classes     []float64
	Importances []float64
	NFeatures   int
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "encode forest")
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errors.Wrap(err, "decode forest")
	}
	return nil
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestRegressor) GobEncode() ([]byte, error) {
	return encode(regressorSnapshot{
		State:       rf.State,
		Params:      rf.forestParams,
		Trees:       rf.trees,
		Importances: rf.importances,
		NFeatures:   rf.nFeatures,
	})
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestRegressor) GobDecode(data []byte) error {
	var s regressorSnapshot
	if err := decode(data, &s); err != nil {
		return err
	}
	rf.State = s.State
	rf.forestParams = s.Params
	rf.trees = s.Trees
	rf.importances = s.Importances
	rf.nFeatures = s.NFeatures
	return nil
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	return encode(classifierSnapshot{
		State:       rf.State,
		Params:      rf.forestParams,
		Trees:       rf.trees,
		Classes:     rf.classes,
		Importances: rf.importances,
		NFeatures:   rf.nFeatures,
	})
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var s classifierSnapshot
	if err := decode(data, &s); err != nil {
		return err
	}
	rf.State = s.State
	rf.forestParams = s.Params
	rf.trees = s.Trees
	rf.classes = s.Classes
	rf.importances = s.Importances
	rf.nFeatures = s.NFeatures
	return nil
}
