package topology

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/registry"
	"github.com/fabricmgr/fabricmgr/internal/schema"
	"github.com/fabricmgr/fabricmgr/internal/tabular"
	"github.com/fabricmgr/fabricmgr/internal/visualize"
)

// DiagramsDir is the subdirectory of the output directory that receives
// rendered diagrams.
const DiagramsDir = "diagrams"

// visualize renders hierarchy diagrams from previously collected CSVs.
// Subscriptions are the diagram backbone, so a missing subscriptions.csv is
// a precondition failure. The other datasets degrade to empty layers.
func (m *Module) visualize(ctx context.Context, req registry.Request) (registry.Result, error) {
	dir := m.outputDir(req)

	subscriptions, err := tabular.ReadDataset(dir, schema.Subscriptions)
	if err != nil {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("cannot visualize: %s is missing or unreadable, run collect first",
				tabular.DatasetPath(dir, schema.Subscriptions)))
	}

	in := visualize.Inputs{
		Subscriptions:    subscriptions,
		ManagementGroups: m.optionalDataset(dir, schema.ManagementGroups),
		ResourceGroups:   m.optionalDataset(dir, schema.ResourceGroups),
		Resources:        m.optionalDataset(dir, schema.Resources),
	}

	gen, err := visualize.NewGenerator(m.log, filepath.Join(dir, DiagramsDir))
	if err != nil {
		return nil, err
	}
	paths, err := gen.RenderTopology(in)
	if err != nil {
		return nil, err
	}

	return registry.Result{
		registry.KeyStatus: registry.StatusSuccess,
		registry.KeyRunID:  uuid.NewString(),
		"diagrams":         paths,
	}, nil
}

// optionalDataset reads a dataset, tolerating absence.
func (m *Module) optionalDataset(dir, dataset string) []tabular.Record {
	records, err := tabular.ReadDataset(dir, dataset)
	if err != nil {
		m.log.Warn("dataset unavailable, rendering without it",
			logger.String("dataset", dataset), logger.Err(err))
		return nil
	}
	return records
}
