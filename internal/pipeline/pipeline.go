// Package pipeline executes user-initiated writes as ordered multi-step
// operations: validate, upload the artifact if any, write the record, then
// update the cache. Any step failure aborts the rest and leaves the entity
// store at its pre-mutation state.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/storage"
	"github.com/jonathan/applypilot/internal/store"
	"github.com/jonathan/applypilot/internal/types"
)

const (
	// maxResumeBytes is the upload size ceiling.
	maxResumeBytes = 5 << 20
	// resumeContentType is the only accepted artifact type.
	resumeContentType = "application/pdf"
)

// DataWriter is the subset of the data collaborator the pipeline writes
// through. Profiles are upserted by owner identity so retries never duplicate
// them; resumes are inserted so history accumulates and the newest row wins.
type DataWriter interface {
	UpsertProfile(ctx context.Context, p types.Profile) (types.Profile, error)
	InsertResume(ctx context.Context, r types.Resume) (types.Resume, error)
}

// Pipeline runs the profile-save and resume-upload flows. At most one
// execution per entity kind is in flight at a time; a second request for the
// same kind queues behind the first.
type Pipeline struct {
	session *session.Tracker
	store   *store.EntityStore
	data    DataWriter
	blobs   storage.BlobStore
	log     zerolog.Logger

	kindMu map[types.Kind]*sync.Mutex
}

// New creates a pipeline over the given collaborators.
func New(sess *session.Tracker, st *store.EntityStore, data DataWriter, blobs storage.BlobStore, log zerolog.Logger) *Pipeline {
	kindMu := make(map[types.Kind]*sync.Mutex, len(types.Kinds()))
	for _, k := range types.Kinds() {
		kindMu[k] = &sync.Mutex{}
	}
	return &Pipeline{
		session: sess,
		store:   st,
		data:    data,
		blobs:   blobs,
		log:     log.With().Str("component", "pipeline").Logger(),
		kindMu:  kindMu,
	}
}

// ResumeUpload is a resume artifact accompanying a save.
type ResumeUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ProfileDraft is the user-edited profile state submitted by the profile
// form. ResumeFile is optional; when present the artifact is uploaded and a
// resume row is written in the same operation.
type ProfileDraft struct {
	FullName     string             `validate:"required,min=1"`
	DesiredTitle string             `validate:"required,min=1"`
	Location     types.WorkLocation `validate:"required,oneof=Remote Hybrid On-site Flexible"`
	SalaryMin    int64              `validate:"gte=0"`
	SalaryMax    int64              `validate:"gtefield=SalaryMin"`
	Skills       string             `validate:"-"`
	ParsedCV     json.RawMessage    `validate:"-"`
	ResumeFile   *ResumeUpload      `validate:"-"`
}

// SaveProfile validates the draft locally, uploads the accompanying resume
// artifact if any, upserts the profile record, and applies the results to the
// cache. Validation failures are returned before any network call.
func (p *Pipeline) SaveProfile(ctx context.Context, draft ProfileDraft) (types.Profile, error) {
	owner := p.session.Current()
	if owner.IsZero() {
		return types.Profile{}, types.ErrSessionLost
	}

	if err := validateDraft(&draft); err != nil {
		return types.Profile{}, err
	}
	if draft.ResumeFile != nil {
		if err := validateUpload(draft.ResumeFile); err != nil {
			return types.Profile{}, err
		}
	}

	p.kindMu[types.KindProfile].Lock()
	defer p.kindMu[types.KindProfile].Unlock()
	if draft.ResumeFile != nil {
		p.kindMu[types.KindResume].Lock()
		defer p.kindMu[types.KindResume].Unlock()
	}

	now := time.Now().UTC()

	var resumeRow *types.Resume
	if draft.ResumeFile != nil {
		row, err := p.uploadArtifact(ctx, owner, draft.ResumeFile, now)
		if err != nil {
			return types.Profile{}, err
		}
		resumeRow = &row
	}

	profile := types.Profile{
		ID:           owner,
		FullName:     draft.FullName,
		DesiredTitle: draft.DesiredTitle,
		Location:     draft.Location,
		SalaryMin:    draft.SalaryMin,
		SalaryMax:    draft.SalaryMax,
		Skills:       draft.Skills,
		ParsedCV:     draft.ParsedCV,
		UpdatedAt:    now,
	}
	if existing, ok := p.store.Profile(); ok {
		profile.CreatedAt = existing.CreatedAt
		if profile.ParsedCV == nil {
			profile.ParsedCV = existing.ParsedCV
		}
	} else {
		profile.CreatedAt = now
	}

	saved, err := p.data.UpsertProfile(ctx, profile)
	if err != nil {
		// A previously uploaded artifact stays in object storage; orphans are
		// harmless and the cache keeps its pre-mutation values.
		return types.Profile{}, err
	}

	var savedResume *types.Resume
	if resumeRow != nil {
		inserted, err := p.data.InsertResume(ctx, *resumeRow)
		if err != nil {
			return types.Profile{}, err
		}
		savedResume = &inserted
	}

	if p.session.Current() != owner {
		// Identity changed while the write was in flight; the result belongs
		// to a session that no longer exists.
		return types.Profile{}, types.ErrSessionLost
	}

	p.store.Apply(saved)
	if savedResume != nil {
		p.store.Apply(*savedResume)
	}
	p.log.Info().Str("identity", owner.String()).Msg("profile saved")
	return saved, nil
}

// UploadResume validates the artifact, uploads it, inserts a new resume row,
// and applies it to the cache. Each upload inserts a fresh row; the newest
// row by creation time is the current resume.
func (p *Pipeline) UploadResume(ctx context.Context, up ResumeUpload) (types.Resume, error) {
	owner := p.session.Current()
	if owner.IsZero() {
		return types.Resume{}, types.ErrSessionLost
	}

	if err := validateUpload(&up); err != nil {
		return types.Resume{}, err
	}

	p.kindMu[types.KindResume].Lock()
	defer p.kindMu[types.KindResume].Unlock()

	now := time.Now().UTC()
	row, err := p.uploadArtifact(ctx, owner, &up, now)
	if err != nil {
		return types.Resume{}, err
	}

	inserted, err := p.data.InsertResume(ctx, row)
	if err != nil {
		// The artifact stays behind as an accepted orphan.
		return types.Resume{}, err
	}

	if p.session.Current() != owner {
		return types.Resume{}, types.ErrSessionLost
	}

	p.store.Apply(inserted)
	p.log.Info().Str("identity", owner.String()).Str("url", inserted.FileURL).Msg("resume uploaded")
	return inserted, nil
}

// uploadArtifact pushes the file to object storage and builds the resume row
// pointing at its public URL. Keys are addressed by owner and timestamp, so
// re-uploads never collide and orphans never conflict.
func (p *Pipeline) uploadArtifact(ctx context.Context, owner types.Identity, up *ResumeUpload, now time.Time) (types.Resume, error) {
	key := artifactKey(owner, up.FileName, now)
	if err := p.blobs.Upload(ctx, key, up.ContentType, up.Data); err != nil {
		return types.Resume{}, &types.TransportError{Op: "upload artifact", Cause: err}
	}
	return types.Resume{
		ID:        uuid.New(),
		UserID:    owner,
		FileURL:   p.blobs.PublicURL(key),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func artifactKey(owner types.Identity, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s/%d%s", owner, now.UnixMilli(), ext)
}
