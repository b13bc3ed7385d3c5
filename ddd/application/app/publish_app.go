package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/port"
	"signage-service/ddd/domain/service"
	"signage-service/ddd/domain/vo"
	"signage-service/ddd/infrastructure/catalog"
	"signage-service/ddd/infrastructure/database/dao"
	"signage-service/ddd/infrastructure/database/po"
	"signage-service/ddd/infrastructure/notify"
	"signage-service/pkg/config"
	"signage-service/pkg/errno"
	"signage-service/pkg/logger"
)

// PublishRequest asks for one source file to be derived and published to a
// target audience.
type PublishRequest struct {
	Path   string `json:"path" binding:"required"`
	Mime   string `json:"mime" binding:"required"`
	Target string `json:"target" binding:"required"`
	Force  bool   `json:"force"`
}

// PublishApp orchestrates the whole publish pipeline: derive, catalog,
// version, notify, mirror.
type PublishApp struct {
	layout   layout.Layout
	media    config.MediaConfig
	encoder  config.EncoderConfig
	videoSvc *service.VideoService
	imageSvc *service.ImageService
	hlsSvc   *service.HLSService
	builder  *catalog.Builder
	store    *catalog.Store
	versions *catalog.VersionSource
	hub      *notify.Hub
	kafka    *notify.KafkaMirror
	redis    *catalog.RedisMirror
	storage  port.StorageGateway
	jobs     *dao.PublishJobDAO
}

func NewPublishApp(
	lay layout.Layout,
	media config.MediaConfig,
	encoder config.EncoderConfig,
	videoSvc *service.VideoService,
	imageSvc *service.ImageService,
	hlsSvc *service.HLSService,
	builder *catalog.Builder,
	store *catalog.Store,
	versions *catalog.VersionSource,
	hub *notify.Hub,
	kafka *notify.KafkaMirror,
	redis *catalog.RedisMirror,
	storage port.StorageGateway,
	jobs *dao.PublishJobDAO,
) *PublishApp {
	return &PublishApp{
		layout: lay, media: media, encoder: encoder,
		videoSvc: videoSvc, imageSvc: imageSvc, hlsSvc: hlsSvc,
		builder: builder, store: store, versions: versions,
		hub: hub, kafka: kafka, redis: redis, storage: storage, jobs: jobs,
	}
}

// Publish validates the request, records a job and runs the pipeline in the
// background. The returned id can be polled through the ledger.
func (a *PublishApp) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if req.Path == "" {
		return "", errno.ErrSourcePathRequired
	}
	if req.Target == "" {
		return "", errno.ErrTargetRequired
	}
	if !a.knownTarget(req.Target) {
		return "", errno.ErrUnknownTarget
	}
	kind, ok := entity.KindForMime(req.Mime)
	if !ok {
		return "", errno.ErrUnsupportedMime
	}
	info, err := os.Stat(req.Path)
	if err != nil || info.IsDir() {
		return "", errno.ErrSourceNotReadable
	}

	jobID := uuid.NewString()
	upload := entity.SourceUpload{
		ID:         entity.ItemID(req.Path, info.ModTime()),
		Path:       req.Path,
		MIME:       req.Mime,
		Kind:       kind,
		Target:     req.Target,
		UploadedAt: time.Now().UTC(),
	}
	if err := a.jobs.Create(ctx, &po.PublishJob{
		JobID:      jobID,
		ItemID:     upload.ID,
		Target:     upload.Target,
		SourcePath: upload.Path,
		Mime:       upload.MIME,
		Status:     po.JobStatusPending,
	}); err != nil {
		logger.Warnf("publish ledger insert failed job=%s error=%v", jobID, err)
	}

	go a.run(jobID, upload, req.Force)
	return jobID, nil
}

// JobStatus looks up one recorded publish job.
func (a *PublishApp) JobStatus(ctx context.Context, jobID string) (*po.PublishJob, error) {
	job, err := a.jobs.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, errno.ErrPublishNotFound
	}
	return job, nil
}

// RecentJobs lists the newest ledger rows for the operator history view.
// Empty when the ledger is disabled.
func (a *PublishApp) RecentJobs(ctx context.Context, limit int) ([]po.PublishJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.jobs.Recent(ctx, limit)
}

// Version reports the last published manifest version.
func (a *PublishApp) Version() int64 {
	return a.versions.Current()
}

// RefreshCatalogs rebuilds every catalog from disk without bumping the
// version. Called on startup so restarts serve the last published state.
func (a *PublishApp) RefreshCatalogs(ctx context.Context) error {
	version := a.versions.Current()
	if version == 0 {
		return nil
	}
	catalogs, err := a.builder.BuildAll(version)
	if err != nil {
		return err
	}
	for _, c := range catalogs {
		if err := a.store.Put(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *PublishApp) run(jobID string, upload entity.SourceUpload, force bool) {
	ctx := context.Background()
	_ = a.jobs.UpdateStatus(ctx, jobID, po.JobStatusRunning, "")

	version, err := a.process(ctx, upload, force)
	if err != nil {
		logger.Errorf("publish failed job=%s item=%s error=%v", jobID, upload.ID, err)
		_ = a.jobs.UpdateStatus(ctx, jobID, po.JobStatusFailed, err.Error())
		return
	}
	_ = a.jobs.MarkDone(ctx, jobID, upload.ID, version)
	logger.Infof("publish complete job=%s item=%s version=%d", jobID, upload.ID, version)
}

// process derives, catalogs and announces one upload, returning the version
// it was published under.
func (a *PublishApp) process(ctx context.Context, upload entity.SourceUpload, force bool) (int64, error) {
	source := a.layout.SourcePath(upload.Target, upload.ID, filepath.Ext(upload.Path))
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		return 0, err
	}
	if !layout.ExistsNonEmpty(source) {
		if err := copySource(upload.Path, source); err != nil {
			return 0, fmt.Errorf("retain source: %w", err)
		}
	}

	item := entity.CatalogItem{
		ID:        upload.ID,
		Type:      string(upload.Kind),
		Target:    upload.Target,
		UpdatedAt: time.Now().UTC(),
	}

	switch upload.Kind {
	case entity.MediaKindVideo:
		res, err := a.videoSvc.GenerateDerivatives(ctx, upload.Target, upload.ID, source)
		if err != nil {
			return 0, err
		}
		item.Width, item.Height = res.Meta.Width, res.Meta.Height
		item.Duration = res.Meta.DurationSeconds
		item.Normalized = res.Normalized
		for _, o := range res.Orientations {
			// An adaptive-stream failure degrades to progressive MP4
			// delivery; the publish still lands.
			if _, err := a.hlsSvc.GenerateAdaptive(ctx, upload.Target, upload.ID, o, res.Ladder[o], res.Meta.HasAudio, force); err != nil {
				logger.Warnf("hls generation failed item=%s orientation=%s error=%v", upload.ID, o, err)
			}
		}
	case entity.MediaKindImage:
		res, err := a.imageSvc.GenerateDerivatives(upload.Target, upload.ID, source)
		if err != nil {
			return 0, err
		}
		item.Width, item.Height = res.Width, res.Height
		item.Normalized = res.Normalized
	}

	item.ETag = itemETag(item.ID, item.UpdatedAt)
	if err := a.writeSidecar(&item); err != nil {
		return 0, err
	}

	version := a.versions.Next()
	catalogs, err := a.builder.BuildAll(version)
	if err != nil {
		return 0, err
	}
	for _, c := range catalogs {
		if err := a.store.Put(c); err != nil {
			return 0, err
		}
	}

	a.hub.Broadcast(version)
	if err := a.redis.Publish(ctx, version); err != nil {
		logger.Warnf("redis version mirror failed version=%d error=%v", version, err)
	}
	a.kafka.Publish(ctx, notify.ManifestEvent{
		Version:   version,
		Target:    upload.Target,
		ItemID:    upload.ID,
		Timestamp: time.Now().UTC(),
	})
	a.mirrorDerivatives(ctx, upload.Target, upload.ID)
	return version, nil
}

func (a *PublishApp) writeSidecar(item *entity.CatalogItem) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.layout.ItemInfo(item.Target, item.ID), data, 0o644)
}

// mirrorDerivatives uploads the item's derivative tree to object storage,
// best effort.
func (a *PublishApp) mirrorDerivatives(ctx context.Context, target, itemID string) {
	if a.storage == nil {
		return
	}
	root := a.layout.ItemDir(target, itemID)
	var objects []port.UploadObject
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(a.layout.Root, path)
		if relErr != nil {
			return nil
		}
		objects = append(objects, port.UploadObject{
			LocalPath:   path,
			ObjectKey:   filepath.ToSlash(rel),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
		})
		return nil
	})
	if err := a.storage.UploadObjects(ctx, objects); err != nil {
		logger.Warnf("derivative mirror failed item=%s error=%v", itemID, err)
	}
}

func (a *PublishApp) knownTarget(target string) bool {
	if target == catalog.AggregateTarget {
		return false
	}
	for _, t := range a.media.Targets {
		if t == target {
			return true
		}
	}
	return false
}

func itemETag(id string, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d", id, updatedAt.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}

func copySource(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Ladder exposes the configured rendition set so adapters can report it.
func (a *PublishApp) Ladder() []vo.Rendition {
	return vo.BuildLadder(a.encoder.Heights, a.encoder.BitrateOverrides)
}
