// Command seed bootstraps a DynamoDB environment: it creates the table when
// asked, waits for it to go active, and loads the development fixture (the
// three role accounts and a baseline episode form). Running it against an
// already-seeded table is a no-op.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"carelog-backend/domain/entities"
	"carelog-backend/infrastructure/config"
	"carelog-backend/infrastructure/persistence/dynamodb"
	"carelog-backend/infrastructure/persistence/memory"
	"carelog-backend/pkg/auth"
	apperrors "carelog-backend/pkg/errors"
)

const seedPassword = "changeme"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.DataBackend = config.BackendDynamoDB
	cfg.CreateTables = true

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	client, err := dynamodb.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}

	users := dynamodb.NewUserRepository(client, logger)
	forms := dynamodb.NewFormRepository(client, logger)

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		logger.Fatal("Failed to hash seed password", zap.Error(err))
	}

	seedUsers := []entities.NewUser{
		{ID: "u-sys", Email: "sys@example.com", Role: entities.RoleSysadmin,
			FirstName: "System", LastName: "Admin", PasswordHash: hash},
		{ID: "u-clin", Email: "clin@example.com", Role: entities.RoleClinician,
			FirstName: "Cleo", LastName: "Linden", PasswordHash: hash},
		{ID: "u-teach", Email: "teach@example.com", Role: entities.RoleTeacher,
			FirstName: "Theo", LastName: "Acker", PasswordHash: hash},
	}

	seeded := false
	for _, u := range seedUsers {
		if _, err := users.Create(ctx, u); err != nil {
			if apperrors.IsConflict(err) {
				logger.Info("User already present", zap.String("email", u.Email))
				continue
			}
			logger.Fatal("Failed to seed user", zap.String("email", u.Email), zap.Error(err))
		}
		seeded = true
		logger.Info("Seeded user", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}

	if !seeded {
		// Users were already there; assume the form fixture is too.
		logger.Info("Fixture already present, nothing to do")
		return
	}

	form, err := forms.Create(ctx, entities.NewForm{
		Title:     "Baseline Episode",
		Status:    entities.FormStatusActive,
		CreatedBy: "u-clin",
	})
	if err != nil {
		logger.Fatal("Failed to seed form", zap.Error(err))
	}

	one, two := 1, 2
	if _, err := forms.ReplaceFields(ctx, form.ID, []entities.NewFormField{
		{FieldID: "fld-ctx", Label: "Context", Type: entities.FieldTypeSelect, Required: true, Order: &one,
			Options: memory.SeedContextOptions},
		{FieldID: "fld-notes", Label: "Notes", Type: entities.FieldTypeTextarea, Order: &two},
	}); err != nil {
		logger.Fatal("Failed to seed form fields", zap.Error(err))
	}

	logger.Info("Seed complete",
		zap.String("table", cfg.TableName),
		zap.String("formID", form.ID),
	)
}
