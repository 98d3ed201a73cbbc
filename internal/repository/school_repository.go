package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/observability"
)

var (
	ErrSchoolNotFound  = errors.New("school not found")
	ErrStudentNotFound = errors.New("student not found")
)

type SchoolRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.School, error)
	CreateSchool(ctx context.Context, school *domain.School) error
	IsAdmin(ctx context.Context, schoolID, userID uint) (bool, error)
	IsInstructor(ctx context.Context, schoolID, userID uint) (bool, error)
	AddAdmin(ctx context.Context, schoolID, userID uint) error
	AddInstructor(ctx context.Context, schoolID, userID uint) error

	FindStudentByID(ctx context.Context, id uint) (*domain.Student, error)
	ListStudentsBySchool(ctx context.Context, schoolID uint) ([]domain.Student, error)
	CreateStudent(ctx context.Context, student *domain.Student) error
	UpdateStudent(ctx context.Context, student *domain.Student) error
}

type GormSchoolRepository struct{ db *gorm.DB }

func NewSchoolRepository(db *gorm.DB) SchoolRepository { return &GormSchoolRepository{db: db} }

func (r *GormSchoolRepository) FindByID(ctx context.Context, id uint) (*domain.School, error) {
	var s domain.School
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "school", "find_by_id", "not_found")
			return nil, ErrSchoolNotFound
		}
		observability.RecordRepositoryOperation(ctx, "school", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "school", "find_by_id", "success")
	return &s, nil
}

func (r *GormSchoolRepository) CreateSchool(ctx context.Context, school *domain.School) error {
	if err := r.db.WithContext(ctx).Create(school).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "school", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "school", "create", "success")
	return nil
}

func (r *GormSchoolRepository) IsAdmin(ctx context.Context, schoolID, userID uint) (bool, error) {
	return r.isMember(ctx, "school_admins", schoolID, userID)
}

func (r *GormSchoolRepository) IsInstructor(ctx context.Context, schoolID, userID uint) (bool, error) {
	return r.isMember(ctx, "school_instructors", schoolID, userID)
}

func (r *GormSchoolRepository) isMember(ctx context.Context, table string, schoolID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(table).
		Where("school_id = ? AND user_id = ?", schoolID, userID).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "school", "membership", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "school", "membership", "success")
	return count > 0, nil
}

func (r *GormSchoolRepository) AddAdmin(ctx context.Context, schoolID, userID uint) error {
	school := domain.School{ID: schoolID}
	user := domain.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(&school).Association("Admins").Append(&user); err != nil {
		observability.RecordRepositoryOperation(ctx, "school", "add_admin", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "school", "add_admin", "success")
	return nil
}

func (r *GormSchoolRepository) AddInstructor(ctx context.Context, schoolID, userID uint) error {
	school := domain.School{ID: schoolID}
	user := domain.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(&school).Association("Instructors").Append(&user); err != nil {
		observability.RecordRepositoryOperation(ctx, "school", "add_instructor", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "school", "add_instructor", "success")
	return nil
}

func (r *GormSchoolRepository) FindStudentByID(ctx context.Context, id uint) (*domain.Student, error) {
	var s domain.Student
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "student", "find_by_id", "not_found")
			return nil, ErrStudentNotFound
		}
		observability.RecordRepositoryOperation(ctx, "student", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "student", "find_by_id", "success")
	return &s, nil
}

func (r *GormSchoolRepository) ListStudentsBySchool(ctx context.Context, schoolID uint) ([]domain.Student, error) {
	var students []domain.Student
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("id").Find(&students).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "student", "list_by_school", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "student", "list_by_school", "success")
	return students, nil
}

func (r *GormSchoolRepository) CreateStudent(ctx context.Context, student *domain.Student) error {
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "student", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "student", "create", "success")
	return nil
}

func (r *GormSchoolRepository) UpdateStudent(ctx context.Context, student *domain.Student) error {
	if err := r.db.WithContext(ctx).Save(student).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "student", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "student", "update", "success")
	return nil
}
