package service

import (
	"context"
	"fmt"
	"strings"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// EmployeeStore creates employee accounts
type EmployeeStore interface {
	EnsureUser(ctx context.Context, user *models.User) (bool, error)
}

// SeedEmployees makes sure every listed employee can record sales. Accounts
// that already exist are left as they are. An empty role means EMPLOYEE.
func SeedEmployees(ctx context.Context, st EmployeeStore, users []models.User) error {
	logger := util.GetLogger()

	for _, u := range users {
		user := u
		user.ID = strings.TrimSpace(user.ID)
		user.Username = strings.TrimSpace(user.Username)
		user.Role = strings.ToUpper(strings.TrimSpace(user.Role))
		if user.Role == "" {
			user.Role = models.RoleEmployee
		}

		if user.ID == "" || user.Username == "" {
			return &ValidationError{Field: "employee", Message: "id and username are required"}
		}
		if user.Role != models.RoleOwner && user.Role != models.RoleEmployee {
			return &ValidationError{Field: "employee", Message: "unknown role " + user.Role + " for " + user.ID}
		}

		created, err := st.EnsureUser(ctx, &user)
		if err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", user.ID, err)
		}
		if created {
			logger.Info("Employee account created",
				zap.String("user_id", user.ID),
				zap.String("username", user.Username),
				zap.String("role", user.Role))
		} else {
			logger.Debug("Employee account already present", zap.String("user_id", user.ID))
		}
	}
	return nil
}
