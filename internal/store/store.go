package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/telegraph-host/media-gateway/internal/models"
)

// Store is the relational repository for media mappings and sampled traffic
// accumulators. Every write is insert-or-ignore or additive; nothing here
// destructively overwrites an existing row.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateMedia inserts a mapping row, ignoring the insert when a row with the
// same canonical URL already exists. The pre-existing row is left untouched.
func (s *Store) CreateMedia(ctx context.Context, m *models.Media) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoNothing: true,
		}).
		Create(m).Error
}

// GetMedia returns the mapping for a canonical URL. A missing row surfaces
// as gorm.ErrRecordNotFound.
func (s *Store) GetMedia(ctx context.Context, url string) (models.Media, error) {
	var m models.Media
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&m).Error
	return m, err
}

// MediaSize returns the stored size for a URL, or 0 when the row is absent.
// Deletion between retrieval and telemetry recording is tolerated.
func (s *Store) MediaSize(ctx context.Context, url string) (int64, error) {
	m, err := s.GetMedia(ctx, url)
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.SizeBytes, nil
}

// DeleteMedia removes mapping rows for the given URLs in one batched delete.
func (s *Store) DeleteMedia(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("url IN ?", urls).Delete(&models.Media{}).Error
}

// AddViews adds a compensated increment to a media row's view accumulator.
func (s *Store) AddViews(ctx context.Context, url string, delta float64) error {
	return s.db.WithContext(ctx).Model(&models.Media{}).
		Where("url = ?", url).
		Update("views", gorm.Expr("views + ?", delta)).Error
}

// AddDailyStat upserts the accumulator row for one UTC date, merging
// concurrent updates additively on conflict.
func (s *Store) AddDailyStat(ctx context.Context, date string, requests, bandwidth, visitors float64) error {
	stat := models.DailyStat{
		Date:      date,
		Requests:  requests,
		Bandwidth: bandwidth,
		Visitors:  visitors,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"requests":  gorm.Expr("requests + ?", requests),
				"bandwidth": gorm.Expr("bandwidth + ?", bandwidth),
				"visitors":  gorm.Expr("visitors + ?", visitors),
			}),
		}).
		Create(&stat).Error
}

// DashboardStats aggregates totals and the most recent daily rows for the
// admin dashboard. Sampled values are reported as-is; rounding is left to
// the presentation layer.
type DashboardStats struct {
	FileCount  int64              `json:"file_count"`
	TotalSize  int64              `json:"total_size"`
	TotalViews float64            `json:"total_views"`
	Daily      []models.DailyStat `json:"daily"`
}

func (s *Store) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats

	row := struct {
		Count int64
		Size  int64
		Views float64
	}{}
	err := s.db.WithContext(ctx).Model(&models.Media{}).
		Select("COUNT(*) AS count, COALESCE(SUM(size_bytes), 0) AS size, COALESCE(SUM(views), 0) AS views").
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.FileCount = row.Count
	out.TotalSize = row.Size
	out.TotalViews = row.Views

	err = s.db.WithContext(ctx).
		Order("date DESC").
		Limit(7).
		Find(&out.Daily).Error
	return out, err
}

// RecentMedia lists the newest mapping rows for the admin media listing.
func (s *Store) RecentMedia(ctx context.Context, limit int) ([]models.Media, error) {
	var media []models.Media
	err := s.db.WithContext(ctx).
		Order("url DESC").
		Limit(limit).
		Find(&media).Error
	return media, err
}
