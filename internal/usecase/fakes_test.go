package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/google/uuid"
)

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *fakeJobRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &job, nil
}

func (r *fakeJobRepo) get(id uuid.UUID) entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

type fakeCutRepo struct {
	cuts    map[uuid.UUID][]entity.Cut
	err     error
	noteErr error
}

func (r *fakeCutRepo) ReplaceCuts(_ context.Context, jobID uuid.UUID, cuts []entity.Cut) error {
	if r.err != nil {
		return r.err
	}
	if r.cuts == nil {
		r.cuts = map[uuid.UUID][]entity.Cut{}
	}
	r.cuts[jobID] = append([]entity.Cut(nil), cuts...)
	return nil
}

func (r *fakeCutRepo) UpdateNote(_ context.Context, jobID uuid.UUID, index int, note string) error {
	if r.noteErr != nil {
		return r.noteErr
	}
	cuts := r.cuts[jobID]
	if index < 1 || index > len(cuts) {
		return entity.ErrNotFound
	}
	cuts[index-1].Note = note
	return nil
}

type fakeStorage struct {
	downloadErr error
	uploadErr   error
	openErr     error
	downloads   int
	uploads     map[string][]byte
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, destPath string) error {
	s.downloads++
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("video"), 0o644)
}

func (s *fakeStorage) UploadResult(_ context.Context, key string, reader io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[key] = data
	return nil
}

func (s *fakeStorage) OpenResult(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	data, ok := s.uploads[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeSource yields 4x3 solid gray frames, one level per frame.
type fakeSource struct {
	video  entity.VideoDescriptor
	levels []byte
	failAt int
	// beforeFrame runs before frame i is returned.
	beforeFrame func(i int)
	reads       int
	closed      bool
}

func (s *fakeSource) Descriptor() entity.VideoDescriptor { return s.video }

func (s *fakeSource) Next(ctx context.Context) (*entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.reads == s.failAt {
		return nil, errors.New("invalid NAL unit")
	}
	if s.reads >= len(s.levels) {
		return nil, io.EOF
	}
	if s.beforeFrame != nil {
		s.beforeFrame(s.reads)
	}
	const w, h = 4, 3
	pix := make([]byte, 3*w*h)
	for i := range pix {
		pix[i] = s.levels[s.reads]
	}
	f := &entity.Frame{Index: s.reads, Width: w, Height: h, Pix: pix}
	s.reads++
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// scenes builds levels for a video whose scene changes at the given frames.
func scenes(frames int, changes ...int) []byte {
	levels := make([]byte, frames)
	palette := []byte{10, 200, 60, 240}
	scene := 0
	for i := range levels {
		for _, c := range changes {
			if c == i {
				scene++
			}
		}
		levels[i] = palette[scene%len(palette)]
	}
	return levels
}

type fakeOpener struct {
	src     *fakeSource
	openErr error
}

func (o *fakeOpener) Open(context.Context, string) (port.FrameSource, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.src, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []entity.CutStatusMessage
}

func (p *fakePublisher) PublishStatus(_ context.Context, data []byte) error {
	var msg entity.CutStatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) last() entity.CutStatusMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return entity.CutStatusMessage{}
	}
	return p.msgs[len(p.msgs)-1]
}

func (p *fakePublisher) progressUpdates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.Status == entity.JobStatusProcessing && m.Progress != nil {
			n++
		}
	}
	return n
}

type fakeDLQ struct {
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ []byte, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type fakeNotifier struct {
	calls []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, userEmail, jobID, _, _ string) error {
	n.calls = append(n.calls, userEmail+":"+jobID)
	return nil
}
