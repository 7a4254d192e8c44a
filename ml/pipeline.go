package ml

import (
	"context"
	"errors"
	"fmt"
)

const (
	ArtifactFormat = "startype-pipeline"

	EstimatorDecisionTree = "decision_tree"
	EstimatorRandomForest = "random_forest"
)

// Artifact is the serialized form of a fitted pipeline.
type Artifact struct {
	Format       string    `json:"format"`
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Classes      []string  `json:"classes"`
	Steps        []Step    `json:"steps"`
	Estimator    Estimator `json:"estimator"`
}

type Estimator struct {
	Type  string       `json:"type"`
	Trees [][]TreeNode `json:"trees"`
}

// TreePipeline runs the artifact's preprocessing steps and then a single
// decision tree or a forest whose leaf distributions are averaged.
type TreePipeline struct {
	version      string
	featureNames []string
	classes      []string
	steps        []Step
	trees        []*DecisionTree
}

func NewTreePipeline(artifact Artifact) (*TreePipeline, error) {
	if artifact.Format != ArtifactFormat {
		return nil, fmt.Errorf("unsupported artifact format %q", artifact.Format)
	}
	if len(artifact.FeatureNames) == 0 {
		return nil, errors.New("artifact has no feature names")
	}
	if len(artifact.Classes) == 0 {
		return nil, errors.New("artifact has no classes")
	}
	seen := make(map[string]struct{}, len(artifact.Classes))
	for _, class := range artifact.Classes {
		if class == "" {
			return nil, errors.New("artifact has an empty class label")
		}
		if _, ok := seen[class]; ok {
			return nil, fmt.Errorf("duplicate class label %q", class)
		}
		seen[class] = struct{}{}
	}

	featureCount := len(artifact.FeatureNames)
	for i, step := range artifact.Steps {
		if err := step.validate(featureCount); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	switch artifact.Estimator.Type {
	case EstimatorDecisionTree:
		if len(artifact.Estimator.Trees) != 1 {
			return nil, fmt.Errorf("decision_tree estimator needs exactly one tree, got %d", len(artifact.Estimator.Trees))
		}
	case EstimatorRandomForest:
		if len(artifact.Estimator.Trees) == 0 {
			return nil, errors.New("random_forest estimator has no trees")
		}
	default:
		return nil, fmt.Errorf("unsupported estimator type %q", artifact.Estimator.Type)
	}

	trees := make([]*DecisionTree, len(artifact.Estimator.Trees))
	for i, nodes := range artifact.Estimator.Trees {
		tree := NewDecisionTree(nodes)
		if err := tree.validate(featureCount, len(artifact.Classes)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}

	return &TreePipeline{
		version:      artifact.Version,
		featureNames: append([]string(nil), artifact.FeatureNames...),
		classes:      append([]string(nil), artifact.Classes...),
		steps:        artifact.Steps,
		trees:        trees,
	}, nil
}

func (p *TreePipeline) Classes() []string {
	return append([]string(nil), p.classes...)
}

func (p *TreePipeline) FeatureNames() []string {
	return append([]string(nil), p.featureNames...)
}

func (p *TreePipeline) Version() string {
	return p.version
}

func (p *TreePipeline) Predict(ctx context.Context, rows [][]float64) ([]string, error) {
	probas, err := p.PredictProba(ctx, rows)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(probas))
	for i, proba := range probas {
		labels[i] = p.classes[argmax(proba)]
	}
	return labels, nil
}

func (p *TreePipeline) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		proba, err := p.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = proba
	}
	return out, nil
}

func (p *TreePipeline) predictRow(row []float64) ([]float64, error) {
	if len(row) != len(p.featureNames) {
		return nil, fmt.Errorf("expected %d features, got %d", len(p.featureNames), len(row))
	}
	values := append([]float64(nil), row...)
	for _, step := range p.steps {
		if err := step.Apply(values); err != nil {
			return nil, err
		}
	}

	proba := make([]float64, len(p.classes))
	for _, tree := range p.trees {
		dist, err := tree.PredictProba(values)
		if err != nil {
			return nil, err
		}
		for i, v := range dist {
			proba[i] += v
		}
	}
	for i := range proba {
		proba[i] /= float64(len(p.trees))
	}
	return proba, nil
}
