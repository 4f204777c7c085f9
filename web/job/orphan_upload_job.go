// Package job holds the cron jobs run by the catalog server.
package job

import (
	"context"
	"slices"
	"time"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/util/common"
	"github.com/thucvatbm/species-catalog/web/service"
)

const orphanReportTimeout = 5 * time.Minute

// OrphanUploadJob reports stored images that no species record points to.
// Deleting a species keeps its image, so these accumulate; the job only
// logs them.
type OrphanUploadJob struct {
	ctx            context.Context
	store          storage.Store
	speciesService service.SpeciesService
}

// NewOrphanUploadJob creates the job. A run in progress is abandoned once ctx
// is canceled.
func NewOrphanUploadJob(ctx context.Context, store storage.Store) *OrphanUploadJob {
	return &OrphanUploadJob{ctx: ctx, store: store}
}

// Here Run is an interface method of the Job interface
func (j *OrphanUploadJob) Run() {
	defer common.Recover("orphan upload job")

	ctx, cancel := context.WithTimeout(j.ctx, orphanReportTimeout)
	defer cancel()

	orphans, err := j.Orphans(ctx)
	if err != nil {
		logger.Warning("orphan upload job err:", err)
		return
	}
	if len(orphans) == 0 {
		logger.Debug("orphan upload job: no unreferenced uploads")
		return
	}
	logger.Infof("orphan upload job: %d unreferenced uploads", len(orphans))
	for _, name := range orphans {
		logger.Infof("unreferenced upload: %s", name)
	}
}

// Orphans returns the sorted names of stored files not referenced by any
// species.
func (j *OrphanUploadJob) Orphans(ctx context.Context) ([]string, error) {
	stored, err := j.store.List(ctx)
	if err != nil {
		return nil, err
	}
	referenced, err := j.speciesService.ImagePaths(ctx)
	if err != nil {
		return nil, err
	}

	orphans := make([]string, 0)
	for _, name := range stored {
		if _, ok := referenced[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}
