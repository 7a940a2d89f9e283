package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/semmidev/mysqlbackup/internal/domain"
)

// NewRun places the run directory for a backup started at now directly under
// root.
func NewRun(root string, now time.Time) domain.Run {
	run := domain.Run{Started: now}
	run.Dir = filepath.Join(root, domain.RunDirPrefix+run.Stamp())
	return run
}

type Planner struct {
	tree       BackupTree
	enumerator domain.SchemaEnumerator
	logger     Logger
}

func NewPlanner(tree BackupTree, enumerator domain.SchemaEnumerator, logger Logger) *Planner {
	return &Planner{
		tree:       tree,
		enumerator: enumerator,
		logger:     logger,
	}
}

// Prepare creates <run>/<database> for every database that has tables.
func (p *Planner) Prepare(ctx context.Context, run domain.Run) (domain.Schema, error) {
	schema, err := enumerate(ctx, p.enumerator, p.logger)
	if err != nil {
		return nil, err
	}

	for _, db := range schema {
		created, err := p.tree.EnsureDir(filepath.Join(run.Name(), db.Name))
		if err != nil {
			p.logger.Errorf("Failed to create backup directory %s: %v", run.DatabaseDir(db.Name), err)
			return nil, fmt.Errorf("prepare directories: %w", err)
		}
		if created {
			p.logger.Infof("Created backup directory: %s", run.DatabaseDir(db.Name))
		}
	}

	return schema, nil
}

func enumerate(ctx context.Context, enumerator domain.SchemaEnumerator, logger Logger) (domain.Schema, error) {
	logger.Infof("Acquiring database and table names...")

	schema, err := enumerator.Enumerate(ctx)
	if err != nil {
		logger.Errorf("Failed to acquire database names: %v", err)
		return nil, fmt.Errorf("enumerate schema: %w", err)
	}

	logger.Infof("Acquired %d database(s) with %d table(s)", len(schema), schema.TableCount())
	return schema, nil
}
