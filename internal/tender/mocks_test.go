package tender

import (
	"context"
	"strings"
	"time"

	"github.com/przetargo/api/internal/model"
)

// mockTenderRepo はTenderRepositoryの関数フィールド式モック。
type mockTenderRepo struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.Tender, error)
	findBySourceIDFunc func(ctx context.Context, source, sourceID string) (*model.Tender, error)
	upsertFunc         func(ctx context.Context, tender *model.Tender) (bool, error)
	listRecentFunc     func(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error)
	searchFunc         func(ctx context.Context, query string, limit int) ([]*model.Tender, error)

	upserted []*model.Tender
}

func (m *mockTenderRepo) FindByID(ctx context.Context, id string) (*model.Tender, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTenderRepo) FindBySourceID(ctx context.Context, source, sourceID string) (*model.Tender, error) {
	if m.findBySourceIDFunc != nil {
		return m.findBySourceIDFunc(ctx, source, sourceID)
	}
	return nil, nil
}

func (m *mockTenderRepo) Upsert(ctx context.Context, tender *model.Tender) (bool, error) {
	m.upserted = append(m.upserted, tender)
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, tender)
	}
	return true, nil
}

func (m *mockTenderRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, since, limit)
	}
	return nil, nil
}

func (m *mockTenderRepo) Search(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

// mockWatchRepo はWatchRepositoryの関数フィールド式モック。
type mockWatchRepo struct {
	findByIDFunc                func(ctx context.Context, id string) (*model.TenderWatch, error)
	findByIdentityAndTenderFunc func(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error)
	createFunc                  func(ctx context.Context, watch *model.TenderWatch) error
	listFunc                    func(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error)
	updateStatusFunc            func(ctx context.Context, id string, status model.WatchStatus) error
	deleteFunc                  func(ctx context.Context, id string) error

	created []*model.TenderWatch
}

func (m *mockWatchRepo) FindByID(ctx context.Context, id string) (*model.TenderWatch, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockWatchRepo) FindByIdentityAndTender(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error) {
	if m.findByIdentityAndTenderFunc != nil {
		return m.findByIdentityAndTenderFunc(ctx, identityID, tenderID)
	}
	return nil, nil
}

func (m *mockWatchRepo) Create(ctx context.Context, watch *model.TenderWatch) error {
	m.created = append(m.created, watch)
	if m.createFunc != nil {
		return m.createFunc(ctx, watch)
	}
	return nil
}

func (m *mockWatchRepo) ListByIdentityWithTender(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, identityID)
	}
	return nil, nil
}

func (m *mockWatchRepo) UpdateStatus(ctx context.Context, id string, status model.WatchStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockWatchRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockWatchRepo) DeleteByIdentityID(ctx context.Context, identityID string) error {
	return nil
}

// mockProfileRepo はProfileRepositoryの関数フィールド式モック。
type mockProfileRepo struct {
	fetchByIDFunc func(ctx context.Context, identityID string) (*model.Profile, error)
}

func (m *mockProfileRepo) FetchByID(ctx context.Context, identityID string) (*model.Profile, error) {
	if m.fetchByIDFunc != nil {
		return m.fetchByIDFunc(ctx, identityID)
	}
	return nil, model.ErrProfileNotFound
}

func (m *mockProfileRepo) UpdateByID(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	return nil, model.ErrProfileNotFound
}

// markerSanitizer はサニタイズの呼び出しを検証可能にする置換式サニタイザー。
type markerSanitizer struct{}

func (markerSanitizer) Sanitize(rawHTML string) string {
	return strings.ReplaceAll(rawHTML, "<script>", "")
}

func (markerSanitizer) SanitizeText(rawHTML string) string {
	return rawHTML
}
