package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRepository implements Repository on a relational users table.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Omit("password").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *GormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *GormRepository) FindByIDs(ctx context.Context, ids []string) (map[string]User, error) {
	ids = dedupe(ids)
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var found []User
	if err := r.db.WithContext(ctx).Omit("password").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for _, u := range found {
		out[u.ID] = u
	}
	return out, nil
}

func (r *GormRepository) FindAll(ctx context.Context) ([]User, error) {
	var all []User
	if err := r.db.WithContext(ctx).Omit("password").Order("created_at ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return all, nil
}

func (r *GormRepository) Update(ctx context.Context, user *User) error {
	updates := map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
		"is_admin": user.IsAdmin,
	}
	if user.Password != "" {
		updates["password"] = user.Password
	}

	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
