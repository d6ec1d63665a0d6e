package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pdftools/internal/models"
	"github.com/google/uuid"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreJobs stores job records in one collection, keyed by random IDs.
type FirestoreJobs struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreJobs(client *firestore.Client, collection string) *FirestoreJobs {
	return &FirestoreJobs{client: client, collection: collection}
}

// FindComplete returns a completed job with the given request hash, or nil.
func (j *FirestoreJobs) FindComplete(ctx context.Context, requestHash string) (*models.Job, error) {
	docs, err := j.client.Collection(j.collection).
		Where("requestHash", "==", requestHash).
		Where("status", "==", models.StatusComplete).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var job models.Job
	if err := docs[0].DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", docs[0].Ref.ID, err)
	}
	job.ID = docs[0].Ref.ID
	return &job, nil
}

// Create stores a new job and returns its ID.
func (j *FirestoreJobs) Create(ctx context.Context, job *models.Job) (string, error) {
	id := uuid.NewString()
	if _, err := j.client.Collection(j.collection).Doc(id).Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job document: %w", err)
	}
	job.ID = id
	return id, nil
}

// SetStatus updates the job status, recording errDetails when non-empty.
func (j *FirestoreJobs) SetStatus(ctx context.Context, id, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if _, err := j.client.Collection(j.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	return nil
}

// Complete marks the job COMPLETE and records its outputs.
func (j *FirestoreJobs) Complete(ctx context.Context, id string, outputs []string, savings *float64) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusComplete},
		{Path: "outputUris", Value: outputs},
		{Path: "outputCount", Value: len(outputs)},
		{Path: "completedAt", Value: time.Now()},
	}
	if savings != nil {
		updates = append(updates, firestore.Update{Path: "savings", Value: *savings})
	}
	if _, err := j.client.Collection(j.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return nil
}
