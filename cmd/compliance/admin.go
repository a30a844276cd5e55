package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/importer"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/middleware"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const cliOperator = "cli"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := initDatabase(cfg.Database, false)
		if err != nil {
			return err
		}
		if err := repository.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		zapLogger.Info("Schema migrated")
		return nil
	},
}

var importFlags struct {
	kind         string
	file         string
	templateID   string
	templateName string
	scopeType    string
	frequency    string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import reference data (indicators, checklist, compliance-items) from an Excel file",
	Example: `  compliance import --kind indicators --file indicators.xlsx
  compliance import --kind compliance-items --file site.xlsx --template-name "Site daily" --scope-type SITE --frequency DAILY`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFlags.kind, "kind", "", "indicators | checklist | compliance-items")
	f.StringVar(&importFlags.file, "file", "", "xlsx file to import")
	f.StringVar(&importFlags.templateID, "template-id", "", "target template id")
	f.StringVar(&importFlags.templateName, "template-name", "", "compliance template name (found or created)")
	f.StringVar(&importFlags.scopeType, "scope-type", "", "SITE | PARTICIPANT, for a new compliance template")
	f.StringVar(&importFlags.frequency, "frequency", "", "DAILY | WEEKLY, for a new compliance template")
	_ = importCmd.MarkFlagRequired("kind")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := initDatabase(cfg.Database, false)
	if err != nil {
		return err
	}

	f, err := excelize.OpenFile(importFlags.file)
	if err != nil {
		return fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	svc := service.NewServices(db, zapLogger, service.DefaultOptions())
	operator := service.Actor{UserID: cliOperator, Roles: []string{policy.RoleCompanyAdmin}}
	result, err := svc.Reference.Import(cmd.Context(), operator, service.ImportReq{
		Kind:         importer.Kind(importFlags.kind),
		TemplateID:   importFlags.templateID,
		TemplateName: importFlags.templateName,
		ScopeType:    entity.ScopeType(importFlags.scopeType),
		Frequency:    entity.Frequency(importFlags.frequency),
	}, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var tokenFlags struct {
	userID string
	name   string
	roles  []string
	ttl    time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, r := range tokenFlags.roles {
			if !policy.ValidRole(r) {
				return fmt.Errorf("unknown role: %s", r)
			}
		}
		ttl := tokenFlags.ttl
		if ttl <= 0 {
			ttl = cfg.JWT.AccessTokenExpire
		}
		token, err := middleware.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer,
			tokenFlags.userID, tokenFlags.name, tokenFlags.roles, ttl)
		if err != nil {
			return err
		}
		zapLogger.Debug("token issued", zap.String("user_id", tokenFlags.userID), zap.Strings("roles", tokenFlags.roles))
		fmt.Println(token)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenFlags.userID, "user", "", "user id")
	f.StringVar(&tokenFlags.name, "name", "", "display name")
	f.StringSliceVar(&tokenFlags.roles, "role", nil, "role (repeatable): CompanyAdmin, Auditor, Reviewer, StaffReadOnly")
	f.DurationVar(&tokenFlags.ttl, "ttl", 0, "token lifetime (default jwt.access_token_expire)")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("role")
}
