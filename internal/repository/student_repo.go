package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
	ListByTutor(ctx context.Context, tutorID uint) ([]models.Student, error)
	ListByIDsForTutor(ctx context.Context, tutorID uint, ids []uint) ([]models.Student, error)
	DeleteForTutor(ctx context.Context, tutorID uint, ids []uint) (int64, error)
	ToggleAlert(ctx context.Context, tutorID, id uint) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

// EmailExists checks the address against every tutor's students, not only
// the importing tutor's.
func (r *studentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("LOWER(email) = ?", models.NormaliseEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) ListByTutor(ctx context.Context, tutorID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Order("name ASC").Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) ListByIDsForTutor(ctx context.Context, tutorID uint, ids []uint) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}

	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("tutor_id = ? AND id IN ?", tutorID, ids).
		Order("name ASC").Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

// DeleteForTutor removes the tutor's students among ids. Slots they held are
// released first so deletion never depends on the database cascading it.
func (r *studentRepository) DeleteForTutor(ctx context.Context, tutorID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []uint
		if err := tx.Model(&models.Student{}).
			Where("tutor_id = ? AND id IN ?", tutorID, ids).
			Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}

		if err := tx.Model(&models.Slot{}).
			Where("allocated_to_id IN ?", owned).
			Update("allocated_to_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id IN ?", owned).Delete(&models.Student{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func (r *studentRepository) ToggleAlert(ctx context.Context, tutorID, id uint) (models.Student, error) {
	update := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ? AND tutor_id = ?", id, tutorID).
		Update("alert", gorm.Expr("NOT alert"))
	if update.Error != nil {
		return models.Student{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}
