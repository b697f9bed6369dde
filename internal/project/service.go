package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imgstudio/imgstudio/backend-go/internal/db"
	"github.com/imgstudio/imgstudio/backend-go/internal/document"
	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
	"github.com/imgstudio/imgstudio/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrForbidden = errors.New("forbidden")
	ErrNoImage   = errors.New("project has no image")
)

type Service struct {
	store *db.Store
}

func NewService(store *db.Store) *Service {
	return &Service{store: store}
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	ImageID   string `json:"imageId,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Project, error) {
	projectID := typeid.NewProjectID()

	err := s.store.CreateProject(ctx, db.Project{
		ID:      projectID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	dbProj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	return dbProjectToProject(dbProj), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	dbProj, err := s.getOwned(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return dbProjectToProject(dbProj), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	dbProjects, err := s.store.ListProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(dbProjects))
	for i, p := range dbProjects {
		projects[i] = *dbProjectToProject(p)
	}

	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.getOwned(ctx, projectID, userID); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, projectID)
}

// AttachImage binds an uploaded image to the project and seeds a fresh
// editing document from its display geometry. Re-attaching replaces the
// document.
func (s *Service) AttachImage(ctx context.Context, projectID, userID, imageID string, g geometry.ImageGeometry) error {
	dbProj, err := s.getOwned(ctx, projectID, userID)
	if err != nil {
		return err
	}

	doc := document.NewDocument(imageID, dbProj.Name, g)
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if err := s.store.SetProjectImage(ctx, projectID, imageID); err != nil {
		return fmt.Errorf("set project image: %w", err)
	}
	if err := s.store.SaveDocument(ctx, projectID, docJSON, doc.Version); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// SaveDocument stores an editing state snapshot for the project. The
// snapshot must be a valid document.
func (s *Service) SaveDocument(ctx context.Context, projectID, userID string, docJSON json.RawMessage, version int) error {
	if _, err := s.getOwned(ctx, projectID, userID); err != nil {
		return err
	}

	var doc document.Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	return s.store.SaveDocument(ctx, projectID, docJSON, version)
}

// GetDocument returns the latest stored editing state.
func (s *Service) GetDocument(ctx context.Context, projectID, userID string) (json.RawMessage, int, error) {
	if _, err := s.getOwned(ctx, projectID, userID); err != nil {
		return nil, 0, err
	}

	docJSON, version, err := s.store.GetDocument(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, 0, ErrNoImage
		}
		return nil, 0, fmt.Errorf("get document: %w", err)
	}
	return docJSON, version, nil
}

// getOwned loads the project and enforces that userID owns it.
func (s *Service) getOwned(ctx context.Context, projectID, userID string) (db.Project, error) {
	dbProj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Project{}, ErrNotFound
		}
		return db.Project{}, fmt.Errorf("get project: %w", err)
	}

	if dbProj.OwnerID != userID {
		return db.Project{}, ErrForbidden
	}
	return dbProj, nil
}

func dbProjectToProject(p db.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		ImageID:   p.ImageID,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
