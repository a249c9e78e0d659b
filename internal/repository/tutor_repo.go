package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/models"
)

// TutorRepository provides access to tutor accounts.
type TutorRepository interface {
	Create(ctx context.Context, tutor *models.Tutor) error
	GetByID(ctx context.Context, id uint) (models.Tutor, error)
	GetByEmail(ctx context.Context, email string) (models.Tutor, error)
	UpdateName(ctx context.Context, id uint, name string) (models.Tutor, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	List(ctx context.Context) ([]models.Tutor, error)
}

type tutorRepository struct {
	db *gorm.DB
}

// NewTutorRepository constructs a tutor repository.
func NewTutorRepository(db *gorm.DB) TutorRepository {
	return &tutorRepository{db: db}
}

func (r *tutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	tutor.Email = models.NormaliseEmail(tutor.Email)
	return r.db.WithContext(ctx).Create(tutor).Error
}

func (r *tutorRepository) GetByID(ctx context.Context, id uint) (models.Tutor, error) {
	var tutor models.Tutor
	if err := r.db.WithContext(ctx).First(&tutor, id).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

func (r *tutorRepository) GetByEmail(ctx context.Context, email string) (models.Tutor, error) {
	var tutor models.Tutor
	query := r.db.WithContext(ctx).Where("email = ?", models.NormaliseEmail(email))
	if err := query.First(&tutor).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

func (r *tutorRepository) UpdateName(ctx context.Context, id uint, name string) (models.Tutor, error) {
	update := r.db.WithContext(ctx).Model(&models.Tutor{}).
		Where("id = ?", id).
		Update("name", name)
	if update.Error != nil {
		return models.Tutor{}, update.Error
	}
	if update.RowsAffected == 0 {
		return models.Tutor{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *tutorRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	update := r.db.WithContext(ctx).Model(&models.Tutor{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tutorRepository) List(ctx context.Context) ([]models.Tutor, error) {
	var tutors []models.Tutor
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&tutors).Error; err != nil {
		return nil, err
	}
	return tutors, nil
}
