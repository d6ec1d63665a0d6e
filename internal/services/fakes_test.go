package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Lllllllleong/pdftools/internal/gcp"
	"github.com/Lllllllleong/pdftools/internal/models"
)

type storedObject struct {
	data        []byte
	contentType string
}

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string]storedObject
	writes     int
	failWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]storedObject{}}
}

func (s *fakeStore) put(bucket, name, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+name] = storedObject{data: data, contentType: contentType}
}

func (s *fakeStore) get(bucket, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+name]
	return o.data, ok
}

func (s *fakeStore) Read(_ context.Context, bucket, name string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+name]
	if !ok {
		return nil, "", fmt.Errorf("object %s/%s not found", bucket, name)
	}
	return o.data, o.contentType, nil
}

func (s *fakeStore) List(_ context.Context, bucket, prefix string) ([]gcp.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []gcp.Object
	for key, o := range s.objects {
		b, name, _ := strings.Cut(key, "/")
		if b == bucket && strings.HasPrefix(name, prefix) {
			out = append(out, gcp.Object{Bucket: b, Name: name, ContentType: o.contentType, Size: int64(len(o.data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) Write(_ context.Context, bucket, name string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failWrites > 0 {
		s.failWrites--
		return errors.New("503 backend unavailable")
	}
	s.objects[bucket+"/"+name] = storedObject{data: data, contentType: contentType}
	return nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
	next int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*models.Job{}}
}

func (j *fakeJobs) FindComplete(_ context.Context, requestHash string) (*models.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, job := range j.jobs {
		if job.RequestHash == requestHash && job.Status == models.StatusComplete {
			found := *job
			return &found, nil
		}
	}
	return nil, nil
}

func (j *fakeJobs) Create(_ context.Context, job *models.Job) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.next++
	id := fmt.Sprintf("job-%d", j.next)
	stored := *job
	stored.ID = id
	j.jobs[id] = &stored
	return id, nil
}

func (j *fakeJobs) SetStatus(_ context.Context, id, status, errDetails string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = status
	if errDetails != "" {
		job.ErrorDetails = errDetails
	}
	return nil
}

func (j *fakeJobs) Complete(_ context.Context, id string, outputs []string, savings *float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = models.StatusComplete
	job.OutputURIs = outputs
	job.OutputCount = len(outputs)
	job.Savings = savings
	return nil
}

func (j *fakeJobs) job(id string) models.Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *j.jobs[id]
}

type fakeNotifier struct {
	payloads []any
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, payload any) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.payloads = append(n.payloads, payload)
	return fmt.Sprintf("executions/%d", len(n.payloads)), nil
}
