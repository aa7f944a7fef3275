package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"

	"eventflow/models"
	"eventflow/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageAll assigns a background to every known page.
const PageAll = "all"

// MediaService owns uploaded assets, landing page links, settings and page
// backgrounds.
type MediaService struct {
	DB      *gorm.DB
	Storage utils.Storage
}

func NewMediaService(db *gorm.DB, storage utils.Storage) *MediaService {
	return &MediaService{DB: db, Storage: storage}
}

func validKind(kind string) bool {
	switch kind {
	case models.MediaBrochure, models.MediaMap, models.MediaBackground:
		return true
	}
	return false
}

// fileType classifies an upload by extension, the way the guest pages pick a viewer.
func fileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return "image"
	case ".mp4", ".webm", ".mov":
		return "video"
	}
	return "file"
}

// Upload stores the file and records it as an asset of the given kind.
func (s *MediaService) Upload(ctx context.Context, kind, name string, fileHeader *multipart.FileHeader) (*models.MediaAsset, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, kind)
	}
	if fileHeader == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	key := utils.ObjectKey(kind, fileHeader.Filename)
	url, err := s.Storage.Put(ctx, key, fileHeader)
	if err != nil {
		log.Printf("❌ [MEDIA] Upload %s failed: %v", fileHeader.Filename, err)
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fileHeader.Filename
	}
	asset := &models.MediaAsset{
		ID:        uuid.NewString(),
		Kind:      kind,
		Type:      fileType(fileHeader.Filename),
		ObjectKey: key,
		URL:       url,
		Name:      name,
	}
	if err := s.DB.WithContext(ctx).Create(asset).Error; err != nil {
		_ = s.Storage.Delete(ctx, key)
		return nil, storeErr(err, "create media")
	}
	log.Printf("📁 [MEDIA] Uploaded %s %q -> %s", kind, name, url)
	return asset, nil
}

func (s *MediaService) List(ctx context.Context, kind string) ([]models.MediaAsset, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, kind)
	}
	var assets []models.MediaAsset
	if err := s.DB.WithContext(ctx).Where("kind = ?", kind).Order("created_at DESC").Find(&assets).Error; err != nil {
		return nil, storeErr(err, "list media")
	}
	return assets, nil
}

// Latest returns the newest asset of a kind, used for the venue map.
func (s *MediaService) Latest(ctx context.Context, kind string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := s.DB.WithContext(ctx).Where("kind = ?", kind).Order("created_at DESC").First(&asset).Error; err != nil {
		return nil, storeErr(err, "latest "+kind)
	}
	return &asset, nil
}

// Delete removes the asset and its stored object. Pages using a deleted
// background fall back to none.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	var asset models.MediaAsset
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&asset, "id = ?", id).Error; err != nil {
			return storeErr(err, "media "+id)
		}
		if asset.Kind == models.MediaBackground {
			if err := tx.Model(&models.PageBackground{}).
				Where("background_id = ?", id).
				Update("background_id", nil).Error; err != nil {
				return storeErr(err, "unset page backgrounds")
			}
		}
		if err := tx.Delete(&models.MediaAsset{}, "id = ?", id).Error; err != nil {
			return storeErr(err, "delete media")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeObject(ctx, asset.ObjectKey)
	log.Printf("🗑️  [MEDIA] Deleted %s %s", asset.Kind, id)
	return nil
}

// DeleteAll removes every asset of a kind, e.g. all venue maps.
func (s *MediaService) DeleteAll(ctx context.Context, kind string) (int, error) {
	assets, err := s.List(ctx, kind)
	if err != nil {
		return 0, err
	}
	for _, a := range assets {
		if err := s.Delete(ctx, a.ID); err != nil {
			return 0, err
		}
	}
	return len(assets), nil
}

func (s *MediaService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Storage.Delete(ctx, key); err != nil {
		log.Printf("⚠️  [MEDIA] Failed to remove object %s: %v", key, err)
	}
}

func (s *MediaService) ListLinks(ctx context.Context) ([]models.Link, error) {
	var links []models.Link
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, storeErr(err, "list links")
	}
	return links, nil
}

func (s *MediaService) AddLink(ctx context.Context, title, url string, iconPath, backgroundPath *string) (*models.Link, error) {
	title, url = strings.TrimSpace(title), strings.TrimSpace(url)
	if title == "" || url == "" {
		return nil, fmt.Errorf("%w: title and url are required", ErrInvalidInput)
	}
	link := &models.Link{
		ID:             uuid.NewString(),
		Title:          title,
		URL:            url,
		IconPath:       blankToNil(iconPath),
		BackgroundPath: blankToNil(backgroundPath),
	}
	if err := s.DB.WithContext(ctx).Create(link).Error; err != nil {
		return nil, storeErr(err, "add link")
	}
	return link, nil
}

func (s *MediaService) DeleteLink(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Link{}, "id = ?", id)
	if res.Error != nil {
		return storeErr(res.Error, "delete link")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MediaService) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := s.DB.WithContext(ctx).First(&setting, "setting_key = ?", key).Error; err != nil {
		return nil, storeErr(err, "setting "+key)
	}
	return &setting, nil
}

func (s *MediaService) SetSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidInput)
	}
	setting := &models.Setting{Key: key, Value: value}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, storeErr(err, "set setting")
	}
	return setting, nil
}

// SetPageBackground assigns a background asset to a page, or to every known
// page for "all". A nil backgroundID clears it.
func (s *MediaService) SetPageBackground(ctx context.Context, page string, backgroundID *string) error {
	page = strings.ToLower(strings.TrimSpace(page))
	pages := []string{page}
	if page == PageAll {
		pages = models.KnownPages
	} else if !knownPage(page) {
		return fmt.Errorf("%w: unknown page %q", ErrInvalidInput, page)
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if backgroundID != nil {
			var asset models.MediaAsset
			if err := tx.First(&asset, "id = ? AND kind = ?", *backgroundID, models.MediaBackground).Error; err != nil {
				return storeErr(err, "background "+*backgroundID)
			}
		}
		rows := make([]models.PageBackground, 0, len(pages))
		for _, p := range pages {
			rows = append(rows, models.PageBackground{PageName: p, BackgroundID: backgroundID})
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "page_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"background_id"}),
		}).Create(&rows).Error
		return storeErr(err, "set page background")
	})
}

// PageBackgrounds maps each page with a background to the asset URL.
func (s *MediaService) PageBackgrounds(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		PageName string
		URL      string
	}
	err := s.DB.WithContext(ctx).
		Table("page_backgrounds AS pb").
		Select("pb.page_name, ma.url").
		Joins("JOIN media_assets AS ma ON ma.id = pb.background_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err, "page backgrounds")
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.PageName] = r.URL
	}
	return out, nil
}

func knownPage(page string) bool {
	for _, p := range models.KnownPages {
		if p == page {
			return true
		}
	}
	return false
}
