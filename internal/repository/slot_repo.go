package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/models"
)

// ErrSlotUnavailable is returned by Allocate when the slot is taken, belongs
// to another tutor or does not exist.
var ErrSlotUnavailable = errors.New("slot unavailable")

// SlotRepository provides access to tutor slots and their allocations.
type SlotRepository interface {
	Create(ctx context.Context, slot *models.Slot) error
	DeleteForTutor(ctx context.Context, tutorID uint, ids []uint) (int64, error)
	ListFrom(ctx context.Context, tutorID uint, from time.Time) ([]models.Slot, error)
	ListPastAllocated(ctx context.Context, tutorID uint, now time.Time) ([]models.Slot, error)
	GetForTutor(ctx context.Context, tutorID, id uint) (models.Slot, error)
	ToggleAttended(ctx context.Context, tutorID, id uint) (models.Slot, error)
	Recent(ctx context.Context, tutorID uint, limit int) ([]models.Slot, error)
	Allocate(ctx context.Context, tutorID, slotID, studentID uint, now time.Time) (models.Slot, error)
	FutureForStudent(ctx context.Context, studentID uint, now time.Time) (*models.Slot, error)
	LatestForStudents(ctx context.Context, studentIDs []uint) (map[uint]models.Slot, error)
}

type slotRepository struct {
	db *gorm.DB
}

// NewSlotRepository constructs a slot repository.
func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Create(ctx context.Context, slot *models.Slot) error {
	slot.StartsAt = slot.StartsAt.UTC()
	return r.db.WithContext(ctx).Create(slot).Error
}

// DeleteForTutor removes the tutor's slots among ids whether or not they are allocated.
func (r *slotRepository) DeleteForTutor(ctx context.Context, tutorID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Where("tutor_id = ? AND id IN ?", tutorID, ids).
		Delete(&models.Slot{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *slotRepository) ListFrom(ctx context.Context, tutorID uint, from time.Time) ([]models.Slot, error) {
	var slots []models.Slot
	err := r.db.WithContext(ctx).
		Preload("AllocatedTo").
		Where("tutor_id = ? AND starts_at >= ?", tutorID, from.UTC()).
		Order("starts_at ASC").Order("id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *slotRepository) ListPastAllocated(ctx context.Context, tutorID uint, now time.Time) ([]models.Slot, error) {
	var slots []models.Slot
	err := r.db.WithContext(ctx).
		Preload("AllocatedTo").
		Where("tutor_id = ? AND starts_at <= ? AND allocated_to_id IS NOT NULL", tutorID, now.UTC()).
		Order("starts_at DESC").Order("id DESC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *slotRepository) GetForTutor(ctx context.Context, tutorID, id uint) (models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).
		Preload("AllocatedTo").
		Where("id = ? AND tutor_id = ?", id, tutorID).
		First(&slot).Error
	if err != nil {
		return models.Slot{}, err
	}
	return slot, nil
}

func (r *slotRepository) ToggleAttended(ctx context.Context, tutorID, id uint) (models.Slot, error) {
	update := r.db.WithContext(ctx).Model(&models.Slot{}).
		Where("id = ? AND tutor_id = ?", id, tutorID).
		Update("attended", gorm.Expr("NOT attended"))
	if update.Error != nil {
		return models.Slot{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.Slot{}, gorm.ErrRecordNotFound
	}

	return r.GetForTutor(ctx, tutorID, id)
}

// Recent returns the tutor's most recently created slots, newest first.
func (r *slotRepository) Recent(ctx context.Context, tutorID uint, limit int) ([]models.Slot, error) {
	if limit <= 0 {
		limit = 50
	}

	var slots []models.Slot
	err := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Order("id DESC").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// Allocate claims slotID for studentID with a single conditional update and,
// only once the claim has succeeded, releases every other slot the student
// holds that starts at or after now. Both steps share one transaction.
func (r *slotRepository) Allocate(ctx context.Context, tutorID, slotID, studentID uint, now time.Time) (models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Slot{}).
			Where("id = ? AND tutor_id = ? AND allocated_to_id IS NULL", slotID, tutorID).
			Update("allocated_to_id", studentID)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrSlotUnavailable
		}

		release := tx.Model(&models.Slot{}).
			Where("allocated_to_id = ? AND starts_at >= ? AND id <> ?", studentID, now.UTC(), slotID).
			Update("allocated_to_id", nil)
		if release.Error != nil {
			return release.Error
		}

		return tx.Preload("AllocatedTo").First(&slot, slotID).Error
	})
	if err != nil {
		return models.Slot{}, err
	}

	return slot, nil
}

func (r *slotRepository) FutureForStudent(ctx context.Context, studentID uint, now time.Time) (*models.Slot, error) {
	var slot models.Slot
	err := r.db.WithContext(ctx).
		Where("allocated_to_id = ? AND starts_at >= ?", studentID, now.UTC()).
		Order("starts_at ASC").
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// LatestForStudents returns, per student, the allocated slot with the latest start.
func (r *slotRepository) LatestForStudents(ctx context.Context, studentIDs []uint) (map[uint]models.Slot, error) {
	latest := make(map[uint]models.Slot, len(studentIDs))
	if len(studentIDs) == 0 {
		return latest, nil
	}

	var slots []models.Slot
	err := r.db.WithContext(ctx).
		Where("allocated_to_id IN ?", studentIDs).
		Order("starts_at DESC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		id := *slot.AllocatedToID
		if _, seen := latest[id]; !seen {
			latest[id] = slot
		}
	}
	return latest, nil
}
